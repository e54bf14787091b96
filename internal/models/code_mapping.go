package models

import "time"

// Code mapping lifecycle states. LOCKED rows come from manual curation
// and are never overwritten by automatic re-resolution.
const (
	MappingAuto   = "AUTO"
	MappingReview = "REVIEW"
	MappingLocked = "LOCKED"
)

// Match reasons recorded on a mapping.
const (
	ReasonForced     = "FORCED"
	ReasonPlateEqual = "PLATE_EQUAL"
	ReasonHierText   = "HIER_TEXT"
)

// CodeMapping maps one platform's raw taxonomy-code tuple onto the
// canonical hierarchy. One row per (source, full raw tuple); the empty
// string stands in for absent tuple members so the composite unique
// index stays total.
type CodeMapping struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Source string `gorm:"type:varchar(30);not null;uniqueIndex:uq_code_mappings_tuple,priority:1"`

	RawMakerCode      string `gorm:"type:varchar(50);not null;default:'';uniqueIndex:uq_code_mappings_tuple,priority:2"`
	RawModelGroupCode string `gorm:"type:varchar(50);not null;default:'';uniqueIndex:uq_code_mappings_tuple,priority:3"`
	RawModelCode      string `gorm:"type:varchar(50);not null;default:'';uniqueIndex:uq_code_mappings_tuple,priority:4"`
	RawTrimCode       string `gorm:"type:varchar(50);not null;default:'';uniqueIndex:uq_code_mappings_tuple,priority:5"`
	RawGradeCode      string `gorm:"type:varchar(50);not null;default:'';uniqueIndex:uq_code_mappings_tuple,priority:6"`

	// Normalized platform names, stored for review tooling.
	MakerNameNorm      *string `gorm:"type:varchar(100)"`
	ModelGroupNameNorm *string `gorm:"type:varchar(100)"`
	ModelNameNorm      *string `gorm:"type:varchar(100)"`
	TrimNameNorm       *string `gorm:"type:varchar(100)"`
	GradeNameNorm      *string `gorm:"type:varchar(100)"`

	RefPlateNo *string `gorm:"type:varchar(30)"`

	MakerCode      *string `gorm:"type:varchar(50)"`
	ModelGroupCode *string `gorm:"type:varchar(50)"`
	ModelCode      *string `gorm:"type:varchar(50)"`
	TrimCode       *string `gorm:"type:varchar(50)"`
	GradeCode      *string `gorm:"type:varchar(50)"`

	Confidence  float64   `gorm:"not null"`
	MatchReason *string   `gorm:"type:varchar(20)"`
	Status      string    `gorm:"type:varchar(10);not null;default:REVIEW;index"`
	FirstSeen   time.Time `gorm:"type:date;not null"`
	LastSeen    time.Time `gorm:"type:date;not null"`
}

func (CodeMapping) TableName() string {
	return "code_mappings"
}
