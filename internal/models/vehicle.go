package models

import "time"

// Advertisement status of a canonical vehicle.
const (
	VehicleOnSale = "ON_SALE"
	VehicleSold   = "SOLD"
)

// Vehicle is the canonical cross-platform record for one physical car,
// keyed by the normalized plate number. First writer wins: the unique
// index on PlateNo is the dedup mechanism, not a pre-check.
type Vehicle struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	PlateNo string `gorm:"type:varchar(30);not null;uniqueIndex"`

	// Consolidated canonical taxonomy, copied from the authoritative
	// listing by the linker.
	MakerCode      *string `gorm:"type:varchar(50)"`
	ModelGroupCode *string `gorm:"type:varchar(50)"`
	ModelCode      *string `gorm:"type:varchar(50)"`
	TrimCode       *string `gorm:"type:varchar(50)"`
	GradeCode      *string `gorm:"type:varchar(50)"`

	Year         *int
	Mileage      *int
	Color        *string `gorm:"type:varchar(50)"`
	Transmission *string `gorm:"type:varchar(50)"`
	Fuel         *string `gorm:"type:varchar(50)"`
	Region       *string `gorm:"type:varchar(100)"`
	Displacement *int
	BodyType     *string `gorm:"type:varchar(50)"`

	AdvStatus    string    `gorm:"type:varchar(20);not null;default:ON_SALE;index"`
	LastSeenDate time.Time `gorm:"type:date;not null"`
	CreatedAt    time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}
