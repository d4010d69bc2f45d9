package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/numistry/cointrade-api/internal/catalog"
	"github.com/numistry/cointrade-api/internal/database/migrations"
	"github.com/numistry/cointrade-api/internal/trades"
	"github.com/numistry/cointrade-api/internal/users"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddTradeShipping(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddTradeReports(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&users.User{},
		&catalog.Coin{},
		&trades.Trade{},
		&trades.TradeOffer{},
	)
	if err != nil {
		return nil, err
	}

	// Depends on the trades table, so it runs after AutoMigrate.
	if err := migrations.AddLiveTradeIndex(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
