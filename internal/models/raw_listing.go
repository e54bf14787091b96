package models

import (
	"time"

	"gorm.io/datatypes"
)

// RawListing is one scraped advertisement as the crawler delivered it.
// Crawlers append or replace rows per source; the merge pipeline only
// ever reads them. SourceKey and PlateNo are hoisted out of the payload
// because every downstream join needs them.
type RawListing struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	Source    string         `gorm:"type:varchar(30);not null;index:idx_raw_listings_source_id,priority:1"`
	SourceKey string         `gorm:"type:varchar(100);not null"`
	PlateNo   *string        `gorm:"type:varchar(30)"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	FetchedAt time.Time      `gorm:"type:timestamptz;autoCreateTime"`
}

func (RawListing) TableName() string {
	return "raw_listings"
}
