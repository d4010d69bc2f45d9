package trades

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTradeStatusSets(t *testing.T) {
	tests := []struct {
		status   TradeStatus
		live     bool
		terminal bool
	}{
		{StatusPending, true, false},
		{StatusCountered, true, false},
		{StatusAccepted, true, false},
		{StatusRejected, false, true},
		{StatusCompleted, false, true},
		{StatusCancelled, false, true},
		{StatusDisputed, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.Valid())
			assert.Equal(t, tt.live, tt.status.Live())
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}

	assert.False(t, TradeStatus("shipped").Valid())
	assert.False(t, TradeStatus("").Valid())
}

func TestTradeStatusActionPreconditions(t *testing.T) {
	tests := []struct {
		status      TradeStatus
		offer       bool
		decideOffer bool
		cancel      bool
		ship        bool
		report      bool
	}{
		{StatusPending, true, true, true, false, true},
		{StatusCountered, true, true, true, false, true},
		{StatusAccepted, true, false, true, true, true},
		{StatusRejected, false, false, false, false, true},
		{StatusCompleted, false, false, false, false, false},
		{StatusCancelled, false, false, false, false, true},
		{StatusDisputed, false, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.offer, tt.status.canOffer(), "canOffer")
			assert.Equal(t, tt.decideOffer, tt.status.canDecideOffer(), "canDecideOffer")
			assert.Equal(t, tt.cancel, tt.status.canCancel(), "canCancel")
			assert.Equal(t, tt.ship, tt.status.canShip(), "canShip")
			assert.Equal(t, tt.report, tt.status.canReport(), "canReport")
		})
	}
}

func TestAfterOffer(t *testing.T) {
	// The first offer signals that negotiation is underway; later offers
	// stack without changing the status again.
	assert.Equal(t, StatusCountered, StatusPending.afterOffer())
	assert.Equal(t, StatusCountered, StatusCountered.afterOffer())
	assert.Equal(t, StatusAccepted, StatusAccepted.afterOffer())
}

func TestReportStatusValid(t *testing.T) {
	for _, s := range []ReportStatus{ReportPending, ReportInReview, ReportResolved, ReportDismissed} {
		assert.True(t, s.Valid())
	}
	assert.False(t, ReportStatus("escalated").Valid())
}
