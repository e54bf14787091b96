package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is one row of the append-only price history. At most
// one row per listing has IsCurrent set; an unchanged price only
// refreshes LastConfirmedAt on the current row.
type PriceSnapshot struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement"`
	ListingID       uint64          `gorm:"not null;index:idx_price_snapshots_listing"`
	Price           decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	IsCurrent       bool            `gorm:"not null;default:true;index:idx_price_snapshots_listing"`
	CheckedAt       time.Time       `gorm:"type:timestamptz;not null"`
	LastConfirmedAt time.Time       `gorm:"type:timestamptz;not null"`
}

func (PriceSnapshot) TableName() string {
	return "price_snapshots"
}
