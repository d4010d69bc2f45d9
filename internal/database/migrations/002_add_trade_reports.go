package migrations

import (
	"github.com/numistry/cointrade-api/internal/trades"
	"gorm.io/gorm"
)

// AddTradeReports creates the dispute report table.
func AddTradeReports(db *gorm.DB) error {
	return db.AutoMigrate(&trades.TradeReport{})
}
