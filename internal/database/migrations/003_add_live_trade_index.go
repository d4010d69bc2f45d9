package migrations

import (
	"gorm.io/gorm"
)

// AddLiveTradeIndex creates a partial unique index so the database itself
// rejects a second live trade for the same (initiator, coin) pair. The
// application checks the rule inside the create transaction; the index is the
// backstop for two inserts racing past that check. Runs after the trades
// table exists.
func AddLiveTradeIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_live_pair
		ON trades(initiator_id, coin_id)
		WHERE status IN ('pending', 'countered', 'accepted')
	`).Error
}
