package catalog

import (
	"errors"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateCoin(coin *Coin) error {
	return d.db.Create(coin).Error
}

func (d *Database) GetCoin(coinID string) (*Coin, error) {
	var coin Coin
	if err := d.db.Where("coin_id = ?", coinID).First(&coin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coin, nil
}

func (d *Database) ListCoinsByOwner(ownerID string) ([]Coin, error) {
	var coins []Coin
	if err := d.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&coins).Error; err != nil {
		return nil, err
	}
	return coins, nil
}
