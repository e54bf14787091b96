package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Default advertisement status of a listing; platforms that publish
// their own status overwrite it on merge.
const ListingOnSale = "ONSALE"

// Listing is the normalized per-platform advertisement row, one per
// (source, source key). Rows are never deleted: staleness is carried by
// LastSeenDate, not removal.
type Listing struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement"`
	Source    string  `gorm:"type:varchar(30);not null;uniqueIndex:uq_listings_source_key,priority:1"`
	SourceKey string  `gorm:"type:varchar(100);not null;uniqueIndex:uq_listings_source_key,priority:2"`
	PlateNo   *string `gorm:"type:varchar(30);index"`
	VehicleID *uint64 `gorm:"index"`

	// Platform-native taxonomy, as scraped.
	MakerCode      *string `gorm:"type:varchar(50)"`
	ModelGroupCode *string `gorm:"type:varchar(50)"`
	ModelCode      *string `gorm:"type:varchar(50)"`
	TrimCode       *string `gorm:"type:varchar(50)"`
	GradeCode      *string `gorm:"type:varchar(50)"`
	MakerName      *string `gorm:"type:varchar(100)"`
	ModelGroupName *string `gorm:"type:varchar(100)"`
	ModelName      *string `gorm:"type:varchar(100)"`
	TrimName       *string `gorm:"type:varchar(100)"`
	GradeName      *string `gorm:"type:varchar(100)"`

	Price        decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Status       string          `gorm:"type:varchar(20);not null;default:ONSALE"`
	Mileage      *int
	Year         *int
	Color        *string `gorm:"type:varchar(50)"`
	Fuel         *string `gorm:"type:varchar(50)"`
	Transmission *string `gorm:"type:varchar(50)"`
	BodyType     *string `gorm:"type:varchar(50)"`
	Region       *string `gorm:"type:varchar(100)"`
	Displacement *int
	DetailURL    *string `gorm:"type:text"`

	Payload      datatypes.JSON `gorm:"type:jsonb"`
	LastSeenDate time.Time      `gorm:"type:date;not null;index"`
	CreatedAt    time.Time      `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Listing) TableName() string {
	return "listings"
}
