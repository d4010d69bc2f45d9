package trades

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/numistry/cointrade-api/internal/types"
	"github.com/numistry/cointrade-api/internal/users"
	"github.com/numistry/cointrade-api/pkg/apperrors"
)

// CoinCatalog is the catalog collaborator the engine depends on. Ownership
// and eligibility are always resolved through it at action time.
type CoinCatalog interface {
	GetCoin(coinID string) (*types.CoinSummary, error)
	IsOwnedBy(coinID, userID string) (bool, error)
}

// UserDirectory resolves user references to public profiles for projections.
type UserDirectory interface {
	GetPublicProfile(userID string) (*types.PublicProfile, error)
}

// Service is the trade lifecycle engine. Every action is a single atomic
// read-check-write against the store: all precondition checks run before any
// write, and the one mutating write happens inside a transaction guarded by
// the trade's version.
type Service struct {
	db      *Database
	catalog CoinCatalog
	users   UserDirectory
}

func NewService(gormDB *gorm.DB, catalog CoinCatalog, directory UserDirectory) *Service {
	return &Service{
		db:      NewDatabase(gormDB),
		catalog: catalog,
		users:   directory,
	}
}

// loadTrade fetches the trade or returns a typed not-found error.
func (s *Service) loadTrade(tradeID string) (*Trade, error) {
	trade, err := s.db.GetTrade(tradeID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load trade", err)
	}
	if trade == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "trade not found")
	}
	return trade, nil
}

// storeErr maps store failures onto the error taxonomy. Version conflicts
// become retryable conflicts; everything else is internal.
func storeErr(context string, err error) error {
	if errors.Is(err, ErrVersionConflict) {
		return apperrors.Wrap(apperrors.KindConflict,
			"trade was modified concurrently, retry the request", err)
	}
	return apperrors.Wrap(apperrors.KindInternal, context, err)
}

// InitiateTrade opens a negotiation on someone else's trade-eligible coin.
// The trade and its shipping record are created in the same transaction.
func (s *Service) InitiateTrade(callerID, coinID string) (*Trade, error) {
	logger := log.With().
		Str("caller_id", callerID).
		Str("coin_id", coinID).
		Str("service", "trades").
		Logger()

	coin, err := s.catalog.GetCoin(coinID)
	if err != nil {
		return nil, err
	}
	if !coin.TradeEligible {
		return nil, apperrors.New(apperrors.KindInvalidState, "coin is not open for trade")
	}
	if coin.OwnerID == callerID {
		return nil, apperrors.New(apperrors.KindValidation, "cannot trade for your own coin")
	}

	now := time.Now()
	trade := &Trade{
		TradeID:     "TRD_" + uuid.New().String(),
		InitiatorID: callerID,
		OwnerID:     coin.OwnerID,
		CoinID:      coinID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	shipping := &TradeShipping{
		TradeID:   trade.TradeID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.CreateTradeWithShipping(trade, shipping); err != nil {
		if errors.Is(err, ErrDuplicateLiveTrade) {
			return nil, apperrors.New(apperrors.KindConflict, "a live trade for this coin already exists")
		}
		return nil, storeErr("failed to create trade", err)
	}

	logger.Info().
		Str("trade_id", trade.TradeID).
		Str("owner_id", trade.OwnerID).
		Msg("trade initiated")

	return trade, nil
}

// ListTrades returns the caller's trades, optionally filtered by status and
// by the caller's role in them.
func (s *Service) ListTrades(callerID, statusFilter, roleFilter string) ([]Trade, error) {
	status := TradeStatus(statusFilter)
	if statusFilter != "" && !status.Valid() {
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown status filter %q", statusFilter)
	}

	role := strings.ToLower(roleFilter)
	if role != "" && role != "initiator" && role != "owner" {
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown role filter %q", roleFilter)
	}

	result, err := s.db.ListTradesForUser(callerID, status, role)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list trades", err)
	}
	return result, nil
}

// SubmitOffer attaches a new immutable offer to the trade. The first offer
// flips a pending trade to countered; later offers stack. An offered coin is
// re-validated against the catalog at submission time.
func (s *Service) SubmitOffer(callerID, tradeID string, offeredCoinID *string, message string) (*TradeOffer, error) {
	logger := log.With().
		Str("caller_id", callerID).
		Str("trade_id", tradeID).
		Str("service", "trades").
		Logger()

	if len(message) > maxOfferMessageLen {
		return nil, apperrors.Newf(apperrors.KindValidation, "offer message exceeds %d characters", maxOfferMessageLen)
	}

	trade, err := s.loadTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if err := CanSubmitOffer(trade, callerID); err != nil {
		return nil, err
	}

	if offeredCoinID != nil {
		owned, err := s.catalog.IsOwnedBy(*offeredCoinID, callerID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, apperrors.New(apperrors.KindForbidden, "offered coin is not owned by the caller")
		}
	}

	lastOffer, err := s.db.GetLastOffer(tradeID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load preceding offer", err)
	}

	counteredOfferID := ""
	isCounter := false
	if lastOffer != nil && lastOffer.OffererID != callerID {
		isCounter = true
		counteredOfferID = lastOffer.OfferID
	}

	now := time.Now()
	offer := &TradeOffer{
		OfferID:        "OFR_" + uuid.New().String(),
		TradeID:        tradeID,
		OffererID:      callerID,
		OfferedCoinID:  offeredCoinID,
		Message:        message,
		IsCounterOffer: isCounter,
		Status:         OfferPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.db.CreateOfferWithTransition(offer, trade, trade.Status.afterOffer(), counteredOfferID); err != nil {
		return nil, storeErr("failed to create offer", err)
	}

	logger.Info().
		Str("offer_id", offer.OfferID).
		Bool("is_counter_offer", offer.IsCounterOffer).
		Int("sequence", offer.Sequence).
		Str("trade_status", string(trade.Status)).
		Msg("offer submitted")

	return offer, nil
}

// loadOfferForDecision fetches the offer, verifies it belongs to the trade
// and is still open to a decision.
func (s *Service) loadOfferForDecision(trade *Trade, offerID string) (*TradeOffer, error) {
	offer, err := s.db.GetOffer(offerID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load offer", err)
	}
	if offer == nil || offer.TradeID != trade.TradeID {
		return nil, apperrors.New(apperrors.KindNotFound, "offer not found")
	}
	if offer.Status != OfferPending {
		return nil, apperrors.Newf(apperrors.KindInvalidState, "offer is already %s", offer.Status)
	}
	return offer, nil
}

// AcceptOffer is the coin owner's decision to take the proposed exchange.
// The offer and the trade move to accepted together.
func (s *Service) AcceptOffer(callerID, tradeID, offerID string) error {
	trade, err := s.loadTrade(tradeID)
	if err != nil {
		return err
	}
	if err := CanDecideOffer(trade, callerID); err != nil {
		return err
	}

	offer, err := s.loadOfferForDecision(trade, offerID)
	if err != nil {
		return err
	}

	if err := s.db.DecideOffer(trade, offer, OfferAccepted, StatusAccepted); err != nil {
		return storeErr("failed to accept offer", err)
	}

	log.Info().
		Str("trade_id", tradeID).
		Str("offer_id", offerID).
		Str("service", "trades").
		Msg("offer accepted")

	return nil
}

// RejectOffer declines a single offer; the trade stays open for further
// negotiation.
func (s *Service) RejectOffer(callerID, tradeID, offerID string) error {
	trade, err := s.loadTrade(tradeID)
	if err != nil {
		return err
	}
	if err := CanDecideOffer(trade, callerID); err != nil {
		return err
	}

	offer, err := s.loadOfferForDecision(trade, offerID)
	if err != nil {
		return err
	}

	if err := s.db.DecideOffer(trade, offer, OfferRejected, trade.Status); err != nil {
		return storeErr("failed to reject offer", err)
	}

	log.Info().
		Str("trade_id", tradeID).
		Str("offer_id", offerID).
		Str("service", "trades").
		Msg("offer rejected")

	return nil
}

// SendMessage appends a private note to the trade conversation.
func (s *Service) SendMessage(callerID, tradeID, content string) (*TradeMessage, error) {
	if content == "" {
		return nil, apperrors.New(apperrors.KindValidation, "message content is required")
	}
	if len(content) > maxMessageLen {
		return nil, apperrors.Newf(apperrors.KindValidation, "message exceeds %d characters", maxMessageLen)
	}

	trade, err := s.loadTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if err := CanSendMessage(trade, callerID); err != nil {
		return nil, err
	}

	message := &TradeMessage{
		MessageID: "MSG_" + uuid.New().String(),
		TradeID:   tradeID,
		SenderID:  callerID,
		Content:   content,
		CreatedAt: time.Now(),
	}

	if err := s.db.CreateMessage(message); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to create message", err)
	}

	return message, nil
}

// MarkShipped records the caller-side shipment on an accepted trade. The
// other side's fields are untouched. Repeating the call is a no-op: the
// original tracking number and timestamp stay as recorded.
func (s *Service) MarkShipped(callerID, tradeID, trackingNumber string) error {
	trade, err := s.loadTrade(tradeID)
	if err != nil {
		return err
	}
	if err := CanMarkShipped(trade, callerID); err != nil {
		return err
	}

	shipping, err := s.db.GetShipping(tradeID)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to load shipping record", err)
	}

	alreadyShipped := shipping.OwnerShipped
	prefix := "owner"
	if callerID == trade.InitiatorID {
		alreadyShipped = shipping.InitiatorShipped
		prefix = "initiator"
	}
	if alreadyShipped {
		return nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		prefix + "_shipped":    true,
		prefix + "_tracking":   trackingNumber,
		prefix + "_shipped_at": now,
		"updated_at":           now,
	}

	if err := s.db.UpdateShippingSide(trade, updates); err != nil {
		return storeErr("failed to record shipment", err)
	}

	log.Info().
		Str("trade_id", tradeID).
		Str("caller_id", callerID).
		Str("tracking_number", trackingNumber).
		Str("service", "trades").
		Msg("shipment recorded")

	return nil
}

// MarkReceived records the caller-side receipt. When both sides have
// confirmed receipt, the trade completes in the same transaction — the one
// automatic transition in the machine. Repeating the call for a side that
// already confirmed is a no-op on the flag but still evaluates completion.
func (s *Service) MarkReceived(callerID, tradeID string) (bool, error) {
	trade, err := s.loadTrade(tradeID)
	if err != nil {
		return false, err
	}
	if err := CanMarkReceived(trade, callerID); err != nil {
		return false, err
	}

	shipping, err := s.db.GetShipping(tradeID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindInternal, "failed to load shipping record", err)
	}

	now := time.Now()
	updates := map[string]interface{}{}
	if callerID == trade.InitiatorID && !shipping.InitiatorReceived {
		updates["initiator_received"] = true
		updates["initiator_received_at"] = now
		updates["updated_at"] = now
	}
	if callerID == trade.OwnerID && !shipping.OwnerReceived {
		updates["owner_received"] = true
		updates["owner_received_at"] = now
		updates["updated_at"] = now
	}

	completed, err := s.db.MarkReceivedSide(trade, updates)
	if err != nil {
		return false, storeErr("failed to record receipt", err)
	}

	log.Info().
		Str("trade_id", tradeID).
		Str("caller_id", callerID).
		Bool("completed", completed).
		Str("service", "trades").
		Msg("receipt recorded")

	return completed, nil
}

// FileReport records a violation report against the other party and forces
// the trade into disputed status, short-circuiting any in-progress
// negotiation. Completed trades are closed to disputes.
func (s *Service) FileReport(callerID, tradeID, reason, description string) (*TradeReport, error) {
	if reason == "" {
		return nil, apperrors.New(apperrors.KindValidation, "report reason is required")
	}
	if len(reason) > maxReasonLen {
		return nil, apperrors.Newf(apperrors.KindValidation, "reason exceeds %d characters", maxReasonLen)
	}
	if len(description) > maxDescriptionLen {
		return nil, apperrors.Newf(apperrors.KindValidation, "description exceeds %d characters", maxDescriptionLen)
	}

	trade, err := s.loadTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if err := CanFileReport(trade, callerID); err != nil {
		return nil, err
	}

	now := time.Now()
	report := &TradeReport{
		ReportID:     "RPT_" + uuid.New().String(),
		TradeID:      tradeID,
		ReporterID:   callerID,
		ReportedID:   trade.OtherParty(callerID),
		Reason:       reason,
		Description:  description,
		ReviewStatus: ReportPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.CreateReportWithDispute(report, trade); err != nil {
		return nil, storeErr("failed to file report", err)
	}

	log.Info().
		Str("trade_id", tradeID).
		Str("report_id", report.ReportID).
		Str("reporter_id", report.ReporterID).
		Str("reported_id", report.ReportedID).
		Str("service", "trades").
		Msg("report filed, trade disputed")

	return report, nil
}

// CancelTrade abandons the trade. Before acceptance only the initiator may
// cancel; after acceptance either party may back out.
func (s *Service) CancelTrade(callerID, tradeID string) error {
	trade, err := s.loadTrade(tradeID)
	if err != nil {
		return err
	}
	if err := CanCancel(trade, callerID); err != nil {
		return err
	}

	if err := s.db.TransitionTrade(trade, StatusCancelled); err != nil {
		return storeErr("failed to cancel trade", err)
	}

	log.Info().
		Str("trade_id", tradeID).
		Str("caller_id", callerID).
		Str("service", "trades").
		Msg("trade cancelled")

	return nil
}

// ListReports exposes a trade's reports to the moderation role.
func (s *Service) ListReports(callerRole, tradeID string) ([]TradeReport, error) {
	if callerRole != users.RoleModerator {
		return nil, apperrors.New(apperrors.KindForbidden, "report review requires the moderator role")
	}

	if _, err := s.loadTrade(tradeID); err != nil {
		return nil, err
	}

	reports, err := s.db.ListReports(tradeID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list reports", err)
	}
	return reports, nil
}

// ReviewReport lets a moderator move a report through triage.
func (s *Service) ReviewReport(reviewerID, reportID string, status ReportStatus, notes string) (*TradeReport, error) {
	if !status.Valid() {
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown review status %q", status)
	}

	report, err := s.db.GetReport(reportID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load report", err)
	}
	if report == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "report not found")
	}

	report.ReviewStatus = status
	report.ReviewerID = reviewerID
	report.ReviewNotes = notes

	if err := s.db.UpdateReportReview(report); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to update report review", err)
	}

	log.Info().
		Str("report_id", reportID).
		Str("reviewer_id", reviewerID).
		Str("review_status", string(status)).
		Str("service", "trades").
		Msg("report review updated")

	return report, nil
}
