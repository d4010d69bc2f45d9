package catalog

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/numistry/cointrade-api/internal/types"
	"github.com/numistry/cointrade-api/pkg/apperrors"
	"github.com/numistry/cointrade-api/pkg/response"
)

// Service provides the coin catalog lookups the trade engine depends on:
// ownership and trade eligibility. The full cataloging feature set (images,
// grading, collections) lives outside this API.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// CoinInput carries the fields a collector supplies when cataloging a coin.
type CoinInput struct {
	Title         string
	Country       string
	Year          int
	Description   string
	TradeEligible bool
}

// RegisterCoin adds a coin to the caller's collection.
func (s *Service) RegisterCoin(ownerID string, input CoinInput) (*Coin, error) {
	coin := &Coin{
		CoinID:        "COIN_" + uuid.New().String(),
		OwnerID:       ownerID,
		Title:         input.Title,
		Country:       input.Country,
		Year:          input.Year,
		Description:   input.Description,
		TradeEligible: input.TradeEligible,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := s.db.CreateCoin(coin); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to create coin", err)
	}

	log.Info().
		Str("coin_id", coin.CoinID).
		Str("owner_id", coin.OwnerID).
		Bool("trade_eligible", coin.TradeEligible).
		Msg("registered coin")

	return coin, nil
}

// GetCoin returns the catalog summary for a coin, or a not-found error.
func (s *Service) GetCoin(coinID string) (*types.CoinSummary, error) {
	coin, err := s.db.GetCoin(coinID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up coin", err)
	}
	if coin == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "coin not found")
	}

	return &types.CoinSummary{
		CoinID:        coin.CoinID,
		OwnerID:       coin.OwnerID,
		Title:         coin.Title,
		TradeEligible: coin.TradeEligible,
	}, nil
}

// ListCoins returns all coins in a collector's collection, newest first.
func (s *Service) ListCoins(ownerID string) ([]Coin, error) {
	coins, err := s.db.ListCoinsByOwner(ownerID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list coins", err)
	}
	return coins, nil
}

// IsOwnedBy reports whether the coin exists and belongs to the given user.
// Ownership is always read from the store, never cached.
func (s *Service) IsOwnedBy(coinID, userID string) (bool, error) {
	coin, err := s.db.GetCoin(coinID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindInternal, "failed to look up coin", err)
	}
	if coin == nil {
		return false, nil
	}
	return coin.OwnerID == userID, nil
}

// GinHandlers contains HTTP handlers for catalog endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type createCoinRequest struct {
	Title         string `json:"title" binding:"required,max=128"`
	Country       string `json:"country" binding:"max=64"`
	Year          int    `json:"year"`
	Description   string `json:"description" binding:"max=2000"`
	TradeEligible *bool  `json:"trade_eligible"`
}

// CreateCoinHandler handles POST requests to catalog a new coin for the
// authenticated caller.
func (h *GinHandlers) CreateCoinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			response.Unauthorized(c, "Missing caller identity")
			return
		}

		var req createCoinRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		// Coins are tradeable unless the collector opts out.
		eligible := true
		if req.TradeEligible != nil {
			eligible = *req.TradeEligible
		}

		coin, err := h.service.RegisterCoin(userID, CoinInput{
			Title:         req.Title,
			Country:       req.Country,
			Year:          req.Year,
			Description:   req.Description,
			TradeEligible: eligible,
		})
		response.Handle(c, coin, err)
	}
}

// GetCoinHandler handles GET requests for a single coin.
func (h *GinHandlers) GetCoinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		coinID := c.Param("coin_id")
		if coinID == "" {
			response.BadRequest(c, "Coin ID is required")
			return
		}

		coin, err := h.service.GetCoin(coinID)
		response.Handle(c, coin, err)
	}
}

// ListMyCoinsHandler handles GET requests for the caller's collection.
func (h *GinHandlers) ListMyCoinsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			response.Unauthorized(c, "Missing caller identity")
			return
		}

		coins, err := h.service.ListCoins(userID)
		response.Handle(c, coins, err)
	}
}
