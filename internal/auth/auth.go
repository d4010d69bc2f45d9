package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/numistry/cointrade-api/internal/users"
	"github.com/numistry/cointrade-api/pkg/apperrors"
	"github.com/numistry/cointrade-api/pkg/response"
)

var ErrTokenGeneration = errors.New("failed to generate token")

// TokenResponse represents the JWT token response
type TokenResponse struct {
	Token      string    `json:"jwt_token"`
	UserID     string    `json:"user_id"`
	Expiration time.Time `json:"expiration"`
}

// Claims represents the JWT claims structure
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Service issues and validates identity tokens. It is the only component that
// touches credentials; everything downstream trusts the resolved claims.
type Service struct {
	jwtSecret []byte
	users     *users.Service
}

func NewService(jwtSecret string, userService *users.Service) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		users:     userService,
	}
}

// GenerateToken creates a signed JWT for an authenticated user with 24-hour
// expiration.
func (s *Service) GenerateToken(user *users.User) (*TokenResponse, error) {
	expiration := time.Now().Add(24 * time.Hour)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
		UserID:   user.UserID,
		Username: user.Username,
		Role:     user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{
		Token:      tokenString,
		UserID:     user.UserID,
		Expiration: expiration,
	}, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type registerRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=32"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"display_name" binding:"max=64"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterHandler handles POST requests to create a new user account and
// returns a token for it.
func (h *GinHandlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		displayName := req.DisplayName
		if displayName == "" {
			displayName = req.Username
		}

		user, err := h.service.users.Register(req.Username, req.Password, displayName)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		token, err := h.service.GenerateToken(user)
		response.Handle(c, token, err)
	}
}

// LoginHandler handles POST requests to exchange credentials for a JWT.
func (h *GinHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		user, err := h.service.users.Authenticate(req.Username, req.Password)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindUnauthenticated {
				response.Unauthorized(c, apperrors.MessageOf(err))
				return
			}
			response.Handle(c, nil, err)
			return
		}

		token, err := h.service.GenerateToken(user)
		response.Handle(c, token, err)
	}
}
