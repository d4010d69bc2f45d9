package catalog

import (
	"time"

	"gorm.io/gorm"
)

type Coin struct {
	gorm.Model    `json:"-"`
	CoinID        string    `gorm:"uniqueIndex" json:"coin_id"`
	OwnerID       string    `gorm:"index" json:"owner_id"`
	Title         string    `json:"title"`
	Country       string    `json:"country,omitempty"`
	Year          int       `json:"year,omitempty"`
	Description   string    `json:"description,omitempty"`
	TradeEligible bool      `json:"trade_eligible"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
