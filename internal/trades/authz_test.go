package trades

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numistry/cointrade-api/internal/users"
	"github.com/numistry/cointrade-api/pkg/apperrors"
)

const (
	initiatorID = "USR_initiator"
	ownerID     = "USR_owner"
	strangerID  = "USR_stranger"
)

func testTrade(status TradeStatus) *Trade {
	return &Trade{
		TradeID:     "TRD_test",
		InitiatorID: initiatorID,
		OwnerID:     ownerID,
		CoinID:      "COIN_subject",
		Status:      status,
	}
}

func TestIsPartyAndOtherParty(t *testing.T) {
	trade := testTrade(StatusPending)

	assert.True(t, trade.IsParty(initiatorID))
	assert.True(t, trade.IsParty(ownerID))
	assert.False(t, trade.IsParty(strangerID))

	assert.Equal(t, ownerID, trade.OtherParty(initiatorID))
	assert.Equal(t, initiatorID, trade.OtherParty(ownerID))
}

func TestCanView(t *testing.T) {
	trade := testTrade(StatusPending)

	assert.NoError(t, CanView(trade, initiatorID, users.RoleUser))
	assert.NoError(t, CanView(trade, ownerID, users.RoleUser))
	assert.NoError(t, CanView(trade, strangerID, users.RoleModerator))

	err := CanView(trade, strangerID, users.RoleUser)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

// Only the coin owner may decide offers, in every status. The role check
// runs before the status check so a non-owner always sees Forbidden, never
// an InvalidState hint about the trade's progress.
func TestCanDecideOffer_NonOwnerForbiddenInEveryStatus(t *testing.T) {
	statuses := []TradeStatus{
		StatusPending, StatusCountered, StatusAccepted, StatusRejected,
		StatusCompleted, StatusCancelled, StatusDisputed,
	}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			trade := testTrade(status)

			for _, caller := range []string{initiatorID, strangerID} {
				err := CanDecideOffer(trade, caller)
				require.Error(t, err)
				assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
			}
		})
	}
}

func TestCanDecideOffer_OwnerStatusGate(t *testing.T) {
	assert.NoError(t, CanDecideOffer(testTrade(StatusPending), ownerID))
	assert.NoError(t, CanDecideOffer(testTrade(StatusCountered), ownerID))

	for _, status := range []TradeStatus{StatusAccepted, StatusCompleted, StatusCancelled, StatusRejected, StatusDisputed} {
		err := CanDecideOffer(testTrade(status), ownerID)
		require.Error(t, err, status)
		assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err), status)
	}
}

func TestCanSubmitOffer(t *testing.T) {
	assert.NoError(t, CanSubmitOffer(testTrade(StatusPending), initiatorID))
	assert.NoError(t, CanSubmitOffer(testTrade(StatusCountered), ownerID))

	err := CanSubmitOffer(testTrade(StatusPending), strangerID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	err = CanSubmitOffer(testTrade(StatusCancelled), initiatorID)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestCanCancel(t *testing.T) {
	// Before acceptance only the initiator may walk away.
	assert.NoError(t, CanCancel(testTrade(StatusPending), initiatorID))
	assert.NoError(t, CanCancel(testTrade(StatusCountered), initiatorID))

	err := CanCancel(testTrade(StatusPending), ownerID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	// After acceptance either party may back out.
	assert.NoError(t, CanCancel(testTrade(StatusAccepted), initiatorID))
	assert.NoError(t, CanCancel(testTrade(StatusAccepted), ownerID))

	err = CanCancel(testTrade(StatusCompleted), initiatorID)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	err = CanCancel(testTrade(StatusAccepted), strangerID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestCanMarkShipped(t *testing.T) {
	assert.NoError(t, CanMarkShipped(testTrade(StatusAccepted), initiatorID))
	assert.NoError(t, CanMarkShipped(testTrade(StatusAccepted), ownerID))

	err := CanMarkShipped(testTrade(StatusPending), initiatorID)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	err = CanMarkShipped(testTrade(StatusAccepted), strangerID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestCanMarkReceived(t *testing.T) {
	// No status precondition: goods may arrive before the system reflects
	// acceptance.
	for _, status := range []TradeStatus{StatusPending, StatusAccepted, StatusDisputed} {
		assert.NoError(t, CanMarkReceived(testTrade(status), initiatorID), status)
	}

	err := CanMarkReceived(testTrade(StatusAccepted), strangerID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestCanFileReport(t *testing.T) {
	for _, status := range []TradeStatus{StatusPending, StatusCountered, StatusAccepted, StatusCancelled, StatusRejected, StatusDisputed} {
		assert.NoError(t, CanFileReport(testTrade(status), initiatorID), status)
		assert.NoError(t, CanFileReport(testTrade(status), ownerID), status)
	}

	err := CanFileReport(testTrade(StatusCompleted), initiatorID)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	err = CanFileReport(testTrade(StatusPending), strangerID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}
