package trades

import (
	"github.com/numistry/cointrade-api/internal/types"
	"github.com/numistry/cointrade-api/pkg/apperrors"
)

// TradeDetail is the read model for a single trade: the aggregate plus its
// nested offers, messages and shipping, with user references resolved to
// display-friendly profiles.
type TradeDetail struct {
	Trade     Trade                `json:"trade"`
	Initiator *types.PublicProfile `json:"initiator,omitempty"`
	Owner     *types.PublicProfile `json:"owner,omitempty"`
	Offers    []TradeOffer         `json:"offers"`
	Messages  []TradeMessage       `json:"messages"`
	Shipping  *TradeShipping       `json:"shipping"`
}

// GetTradeDetail assembles the full projection for a trade. Readable by the
// two parties and by moderators.
func (s *Service) GetTradeDetail(callerID, callerRole, tradeID string) (*TradeDetail, error) {
	trade, err := s.loadTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if err := CanView(trade, callerID, callerRole); err != nil {
		return nil, err
	}

	offers, err := s.db.ListOffers(tradeID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list offers", err)
	}

	messages, err := s.db.ListMessages(tradeID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list messages", err)
	}

	shipping, err := s.db.GetShipping(tradeID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load shipping record", err)
	}

	detail := &TradeDetail{
		Trade:    *trade,
		Offers:   offers,
		Messages: messages,
		Shipping: shipping,
	}

	// Profile resolution is best-effort: a missing directory entry should
	// not make the trade itself unreadable.
	if profile, err := s.users.GetPublicProfile(trade.InitiatorID); err == nil {
		detail.Initiator = profile
	}
	if profile, err := s.users.GetPublicProfile(trade.OwnerID); err == nil {
		detail.Owner = profile
	}

	return detail, nil
}
