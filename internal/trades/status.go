package trades

// TradeStatus is the closed set of trade lifecycle states.
type TradeStatus string

const (
	StatusPending   TradeStatus = "pending"
	StatusCountered TradeStatus = "countered"
	StatusAccepted  TradeStatus = "accepted"
	StatusRejected  TradeStatus = "rejected"
	StatusCompleted TradeStatus = "completed"
	StatusCancelled TradeStatus = "cancelled"
	StatusDisputed  TradeStatus = "disputed"
)

// Valid reports whether s is a known trade status. Used to validate filter
// input, not stored rows.
func (s TradeStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCountered, StatusAccepted, StatusRejected,
		StatusCompleted, StatusCancelled, StatusDisputed:
		return true
	}
	return false
}

// Live reports whether the trade still counts against the one-live-trade-per
// (initiator, coin) rule.
func (s TradeStatus) Live() bool {
	switch s {
	case StatusPending, StatusCountered, StatusAccepted:
		return true
	}
	return false
}

// Terminal reports whether no further negotiation action is defined for the
// status. Disputed is terminal for normal flow; only moderation acts on it.
func (s TradeStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled, StatusDisputed:
		return true
	}
	return false
}

// canOffer reports whether a new offer may be attached in this status.
func (s TradeStatus) canOffer() bool {
	return !s.Terminal()
}

// canDecideOffer reports whether an offer may be accepted or rejected in this
// status. Accepting from an already-accepted trade is an invalid transition,
// which is what makes a double-accept race surface as an error for the loser.
func (s TradeStatus) canDecideOffer() bool {
	return s == StatusPending || s == StatusCountered
}

// canCancel reports whether the trade may be cancelled in this status.
func (s TradeStatus) canCancel() bool {
	return s == StatusPending || s == StatusCountered || s == StatusAccepted
}

// canShip reports whether shipping may be recorded in this status.
func (s TradeStatus) canShip() bool {
	return s == StatusAccepted
}

// canReport reports whether a violation report may be filed in this status.
// Completed trades are closed to disputes; a cancelled or rejected trade can
// still be disputed, and further reports on a disputed trade are recorded.
func (s TradeStatus) canReport() bool {
	return s != StatusCompleted
}

// afterOffer returns the trade status after a new offer is attached. The
// first offer against a fresh trade signals that negotiation is underway;
// later offers stack without re-triggering the transition.
func (s TradeStatus) afterOffer() TradeStatus {
	if s == StatusPending {
		return StatusCountered
	}
	return s
}

// OfferStatus is the closed set of offer states.
type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferCountered OfferStatus = "countered"
)

// ReportStatus is the closed set of report review states.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportInReview  ReportStatus = "in_review"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportInReview, ReportResolved, ReportDismissed:
		return true
	}
	return false
}
