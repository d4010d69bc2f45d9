package types

// CoinSummary is the catalog view the trade engine depends on: who owns the
// coin and whether it may be traded at all.
type CoinSummary struct {
	CoinID        string `json:"coin_id"`
	OwnerID       string `json:"owner_id"`
	Title         string `json:"title"`
	TradeEligible bool   `json:"trade_eligible"`
}

// PublicProfile is the display-friendly user view used when projecting trades
// for API responses. It never carries credentials or private fields.
type PublicProfile struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
