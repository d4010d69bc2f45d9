package trades

import (
	"github.com/numistry/cointrade-api/internal/users"
	"github.com/numistry/cointrade-api/pkg/apperrors"
)

// Authorization predicates for every trade action, kept in one place so each
// rule is testable in isolation from persistence. Each predicate checks the
// caller's relationship to the trade first, then the status precondition, and
// returns a typed error describing the first violated rule.

// IsParty reports whether the caller is the initiator or the coin owner.
func (t *Trade) IsParty(callerID string) bool {
	return callerID == t.InitiatorID || callerID == t.OwnerID
}

// OtherParty returns the counterparty relative to the caller. Callers must
// have checked IsParty first.
func (t *Trade) OtherParty(callerID string) string {
	if callerID == t.InitiatorID {
		return t.OwnerID
	}
	return t.InitiatorID
}

// CanView allows the two parties plus moderators to read a trade.
func CanView(t *Trade, callerID, role string) error {
	if t.IsParty(callerID) || role == users.RoleModerator {
		return nil
	}
	return apperrors.New(apperrors.KindForbidden, "caller is not a party to this trade")
}

// CanSubmitOffer allows either party to attach an offer while the trade is
// still negotiable.
func CanSubmitOffer(t *Trade, callerID string) error {
	if !t.IsParty(callerID) {
		return apperrors.New(apperrors.KindForbidden, "caller is not a party to this trade")
	}
	if !t.Status.canOffer() {
		return apperrors.Newf(apperrors.KindInvalidState, "cannot submit an offer on a %s trade", t.Status)
	}
	return nil
}

// CanDecideOffer allows only the coin owner to accept or reject offers. The
// owner controls final disposition of their coin, so the role check comes
// before the status check: a non-owner is Forbidden in every status.
func CanDecideOffer(t *Trade, callerID string) error {
	if callerID != t.OwnerID {
		return apperrors.New(apperrors.KindForbidden, "only the coin owner may accept or reject offers")
	}
	if !t.Status.canDecideOffer() {
		return apperrors.Newf(apperrors.KindInvalidState, "cannot decide an offer on a %s trade", t.Status)
	}
	return nil
}

// CanSendMessage allows either party to message on the trade thread.
func CanSendMessage(t *Trade, callerID string) error {
	if !t.IsParty(callerID) {
		return apperrors.New(apperrors.KindForbidden, "caller is not a party to this trade")
	}
	return nil
}

// CanCancel allows the initiator to abandon a trade during negotiation, and
// either party to back out after acceptance but before completion.
func CanCancel(t *Trade, callerID string) error {
	if !t.IsParty(callerID) {
		return apperrors.New(apperrors.KindForbidden, "caller is not a party to this trade")
	}
	if !t.Status.canCancel() {
		return apperrors.Newf(apperrors.KindInvalidState, "cannot cancel a %s trade", t.Status)
	}
	if (t.Status == StatusPending || t.Status == StatusCountered) && callerID != t.InitiatorID {
		return apperrors.New(apperrors.KindForbidden, "only the initiator may cancel before acceptance")
	}
	return nil
}

// CanMarkShipped allows either party to record their shipment once the trade
// is accepted.
func CanMarkShipped(t *Trade, callerID string) error {
	if !t.IsParty(callerID) {
		return apperrors.New(apperrors.KindForbidden, "caller is not a party to this trade")
	}
	if !t.Status.canShip() {
		return apperrors.Newf(apperrors.KindInvalidState, "cannot record shipping on a %s trade", t.Status)
	}
	return nil
}

// CanMarkReceived allows either party to confirm receipt. There is no status
// precondition: goods may arrive before the system reflects acceptance.
func CanMarkReceived(t *Trade, callerID string) error {
	if !t.IsParty(callerID) {
		return apperrors.New(apperrors.KindForbidden, "caller is not a party to this trade")
	}
	return nil
}

// CanFileReport allows either party to dispute the trade unless it already
// completed.
func CanFileReport(t *Trade, callerID string) error {
	if !t.IsParty(callerID) {
		return apperrors.New(apperrors.KindForbidden, "caller is not a party to this trade")
	}
	if !t.Status.canReport() {
		return apperrors.New(apperrors.KindInvalidState, "completed trades cannot be disputed")
	}
	return nil
}
