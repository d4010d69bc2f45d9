package migrations

import (
	"github.com/numistry/cointrade-api/internal/trades"
	"gorm.io/gorm"
)

// AddTradeShipping creates the shipping and message tables. Shipping rows
// predate AutoMigrate of the rest of the schema because trade creation writes
// both tables in one transaction.
func AddTradeShipping(db *gorm.DB) error {
	if err := db.AutoMigrate(&trades.TradeShipping{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&trades.TradeMessage{}); err != nil {
		return err
	}

	return nil
}
