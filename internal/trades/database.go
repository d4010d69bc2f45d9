package trades

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrVersionConflict is returned when a concurrent writer advanced the trade
// between this request's read and write. No partial state is left behind, so
// the caller may safely retry once.
var ErrVersionConflict = errors.New("trade was modified concurrently")

// ErrDuplicateLiveTrade is returned when the (initiator, coin) pair already
// has a pending, countered or accepted trade.
var ErrDuplicateLiveTrade = errors.New("a live trade for this coin already exists")

// isUniqueViolation matches the sqlite unique-constraint error raised by the
// partial index on live (initiator_id, coin_id) pairs.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// advanceTrade writes the trade's status guarded by the version the request
// read. RowsAffected == 0 means another writer won the race; the surrounding
// transaction must roll back. Every mutating action routes its trade write
// through here, even when the status does not change, so that all writes to
// one aggregate serialize.
func advanceTrade(tx *gorm.DB, t *Trade, newStatus TradeStatus) error {
	res := tx.Model(&Trade{}).
		Where("trade_id = ? AND version = ?", t.TradeID, t.Version).
		Updates(map[string]interface{}{
			"status":     newStatus,
			"version":    t.Version + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}

	t.Status = newStatus
	t.Version++
	return nil
}

// CreateTradeWithShipping persists a new trade and its shipping row in one
// transaction, so a trade can never exist without its shipping record. The
// one-live-trade-per-(initiator, coin) rule is enforced inside the same
// transaction: the live count runs under the tx, and the partial unique index
// on live pairs catches the writer that loses an insert race anyway.
func (d *Database) CreateTradeWithShipping(trade *Trade, shipping *TradeShipping) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var live int64
	if err := tx.Model(&Trade{}).
		Where("initiator_id = ? AND coin_id = ? AND status IN ?",
			trade.InitiatorID, trade.CoinID,
			[]TradeStatus{StatusPending, StatusCountered, StatusAccepted}).
		Count(&live).Error; err != nil {
		tx.Rollback()
		return err
	}
	if live > 0 {
		tx.Rollback()
		return ErrDuplicateLiveTrade
	}

	if err := tx.Create(trade).Error; err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return ErrDuplicateLiveTrade
		}
		return err
	}

	if err := tx.Create(shipping).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (d *Database) GetTrade(tradeID string) (*Trade, error) {
	var trade Trade
	if err := d.db.Where("trade_id = ?", tradeID).First(&trade).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trade, nil
}

// ListTradesForUser returns trades the user is party to, newest first,
// optionally narrowed by status and by the user's role in the trade.
func (d *Database) ListTradesForUser(userID string, status TradeStatus, role string) ([]Trade, error) {
	query := d.db.Model(&Trade{})

	switch role {
	case "initiator":
		query = query.Where("initiator_id = ?", userID)
	case "owner":
		query = query.Where("owner_id = ?", userID)
	default:
		query = query.Where("initiator_id = ? OR owner_id = ?", userID, userID)
	}

	if status != "" {
		query = query.Where("status = ?", status)
	}

	var result []Trade
	if err := query.Order("created_at DESC").Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Database) GetOffer(offerID string) (*TradeOffer, error) {
	var offer TradeOffer
	if err := d.db.Where("offer_id = ?", offerID).First(&offer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

func (d *Database) ListOffers(tradeID string) ([]TradeOffer, error) {
	var offers []TradeOffer
	if err := d.db.Where("trade_id = ?", tradeID).
		Order("sequence ASC").
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// GetLastOffer returns the offer with the highest sequence, or nil when the
// trade has no offers yet.
func (d *Database) GetLastOffer(tradeID string) (*TradeOffer, error) {
	var offer TradeOffer
	if err := d.db.Where("trade_id = ?", tradeID).
		Order("sequence DESC").
		First(&offer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

// CreateOfferWithTransition assigns the next offer sequence, persists the
// offer, and advances the trade status, all in one transaction. When the new
// offer counters a preceding one, that offer moves to countered if it is
// still pending.
func (d *Database) CreateOfferWithTransition(offer *TradeOffer, trade *Trade, newStatus TradeStatus, counteredOfferID string) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// The sequence is maintained here, under the transaction, rather than
	// derived by re-counting rows at read time.
	var maxSeq int64
	if err := tx.Model(&TradeOffer{}).
		Where("trade_id = ?", trade.TradeID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&maxSeq).Error; err != nil {
		tx.Rollback()
		return err
	}
	offer.Sequence = int(maxSeq) + 1

	if err := tx.Create(offer).Error; err != nil {
		tx.Rollback()
		return err
	}

	if counteredOfferID != "" {
		if err := tx.Model(&TradeOffer{}).
			Where("offer_id = ? AND status = ?", counteredOfferID, OfferPending).
			Updates(map[string]interface{}{
				"status":     OfferCountered,
				"updated_at": time.Now(),
			}).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := advanceTrade(tx, trade, newStatus); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// DecideOffer sets the offer's status and advances the trade in one
// transaction. The offer write is guarded on the pending status so that two
// racing decisions on the same offer cannot both apply.
func (d *Database) DecideOffer(trade *Trade, offer *TradeOffer, offerStatus OfferStatus, tradeStatus TradeStatus) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	res := tx.Model(&TradeOffer{}).
		Where("offer_id = ? AND status = ?", offer.OfferID, OfferPending).
		Updates(map[string]interface{}{
			"status":     offerStatus,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		tx.Rollback()
		return res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return ErrVersionConflict
	}

	if err := advanceTrade(tx, trade, tradeStatus); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	offer.Status = offerStatus
	return nil
}

func (d *Database) CreateMessage(message *TradeMessage) error {
	return d.db.Create(message).Error
}

func (d *Database) ListMessages(tradeID string) ([]TradeMessage, error) {
	var messages []TradeMessage
	if err := d.db.Where("trade_id = ?", tradeID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (d *Database) GetShipping(tradeID string) (*TradeShipping, error) {
	var shipping TradeShipping
	if err := d.db.Where("trade_id = ?", tradeID).First(&shipping).Error; err != nil {
		return nil, err
	}
	return &shipping, nil
}

// TransitionTrade advances the trade status with no child writes (cancel).
func (d *Database) TransitionTrade(trade *Trade, newStatus TradeStatus) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := advanceTrade(tx, trade, newStatus); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// UpdateShippingSide applies one side's shipping fields and serializes the
// write against the trade aggregate.
func (d *Database) UpdateShippingSide(trade *Trade, updates map[string]interface{}) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&TradeShipping{}).
		Where("trade_id = ?", trade.TradeID).
		Updates(updates).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := advanceTrade(tx, trade, trade.Status); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// MarkReceivedSide applies one side's received flag, then re-reads both flags
// inside the same transaction and completes the trade when both parties have
// confirmed receipt. Returns whether the trade completed.
func (d *Database) MarkReceivedSide(trade *Trade, updates map[string]interface{}) (bool, error) {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return false, err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if len(updates) > 0 {
		if err := tx.Model(&TradeShipping{}).
			Where("trade_id = ?", trade.TradeID).
			Updates(updates).Error; err != nil {
			tx.Rollback()
			return false, err
		}
	}

	var shipping TradeShipping
	if err := tx.Where("trade_id = ?", trade.TradeID).First(&shipping).Error; err != nil {
		tx.Rollback()
		return false, err
	}

	newStatus := trade.Status
	if shipping.BothReceived() && trade.Status == StatusAccepted {
		newStatus = StatusCompleted
	}

	if err := advanceTrade(tx, trade, newStatus); err != nil {
		tx.Rollback()
		return false, err
	}

	if err := tx.Commit().Error; err != nil {
		return false, err
	}

	return newStatus == StatusCompleted, nil
}

// CreateReportWithDispute persists the report and forces the trade into
// disputed status in one transaction.
func (d *Database) CreateReportWithDispute(report *TradeReport, trade *Trade) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(report).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := advanceTrade(tx, trade, StatusDisputed); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (d *Database) ListReports(tradeID string) ([]TradeReport, error) {
	var reports []TradeReport
	if err := d.db.Where("trade_id = ?", tradeID).
		Order("created_at ASC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (d *Database) GetReport(reportID string) (*TradeReport, error) {
	var report TradeReport
	if err := d.db.Where("report_id = ?", reportID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// UpdateReportReview mutates only the moderation fields of a report.
func (d *Database) UpdateReportReview(report *TradeReport) error {
	return d.db.Model(&TradeReport{}).
		Where("report_id = ?", report.ReportID).
		Updates(map[string]interface{}{
			"review_status": report.ReviewStatus,
			"reviewer_id":   report.ReviewerID,
			"review_notes":  report.ReviewNotes,
			"updated_at":    time.Now(),
		}).Error
}
