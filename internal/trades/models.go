package trades

import (
	"time"

	"gorm.io/gorm"
)

const (
	maxOfferMessageLen = 1000
	maxMessageLen      = 2000
	maxReasonLen       = 256
	maxDescriptionLen  = 2000
)

// Trade is the root aggregate of a negotiation between an initiator and the
// owner of the subject coin. InitiatorID, OwnerID and CoinID are immutable
// for the trade's lifetime. Version is the optimistic lock counter: every
// state-relevant mutation bumps it, and a stale writer loses (see database.go).
type Trade struct {
	gorm.Model  `json:"-"`
	TradeID     string      `gorm:"uniqueIndex" json:"trade_id"`
	InitiatorID string      `gorm:"index" json:"initiator_id"`
	OwnerID     string      `gorm:"index" json:"owner_id"`
	CoinID      string      `gorm:"index" json:"coin_id"`
	Status      TradeStatus `json:"status"`
	Version     uint        `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TradeOffer is a proposed exchange within a trade. Offers are immutable once
// created; only Status changes, and only through accept/reject. Sequence is a
// per-trade counter assigned transactionally at creation.
type TradeOffer struct {
	gorm.Model     `json:"-"`
	OfferID        string      `gorm:"uniqueIndex" json:"offer_id"`
	TradeID        string      `gorm:"index" json:"trade_id"`
	OffererID      string      `json:"offerer_id"`
	OfferedCoinID  *string     `json:"offered_coin_id,omitempty"`
	Message        string      `json:"message,omitempty"`
	IsCounterOffer bool        `json:"is_counter_offer"`
	Sequence       int         `json:"sequence"`
	Status         OfferStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TradeMessage is a private note between the two parties. Append-only.
type TradeMessage struct {
	gorm.Model `json:"-"`
	MessageID  string    `gorm:"uniqueIndex" json:"message_id"`
	TradeID    string    `gorm:"index" json:"trade_id"`
	SenderID   string    `json:"sender_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// TradeShipping tracks shipment and receipt per side. Exactly one row exists
// per trade, created in the same transaction as the trade itself.
type TradeShipping struct {
	gorm.Model `json:"-"`
	TradeID    string `gorm:"uniqueIndex" json:"trade_id"`

	InitiatorShipped    bool       `json:"initiator_shipped"`
	InitiatorTracking   string     `json:"initiator_tracking,omitempty"`
	InitiatorShippedAt  *time.Time `json:"initiator_shipped_at,omitempty"`
	InitiatorReceived   bool       `json:"initiator_received"`
	InitiatorReceivedAt *time.Time `json:"initiator_received_at,omitempty"`

	OwnerShipped    bool       `json:"owner_shipped"`
	OwnerTracking   string     `json:"owner_tracking,omitempty"`
	OwnerShippedAt  *time.Time `json:"owner_shipped_at,omitempty"`
	OwnerReceived   bool       `json:"owner_received"`
	OwnerReceivedAt *time.Time `json:"owner_received_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BothReceived reports whether both parties have confirmed receipt.
func (s *TradeShipping) BothReceived() bool {
	return s.InitiatorReceived && s.OwnerReceived
}

// TradeReport is a dispute/violation record. The reported party is always
// derived server-side as the other party relative to the reporter. Review
// fields are mutated only through the moderation endpoint.
type TradeReport struct {
	gorm.Model   `json:"-"`
	ReportID     string       `gorm:"uniqueIndex" json:"report_id"`
	TradeID      string       `gorm:"index" json:"trade_id"`
	ReporterID   string       `json:"reporter_id"`
	ReportedID   string       `json:"reported_id"`
	Reason       string       `json:"reason"`
	Description  string       `json:"description,omitempty"`
	ReviewStatus ReportStatus `json:"review_status"`
	ReviewerID   string       `json:"reviewer_id,omitempty"`
	ReviewNotes  string       `json:"review_notes,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
