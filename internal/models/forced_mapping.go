package models

import "time"

// ForcedMapping is an operator-authored override: a raw-code prefix at
// the given depth always resolves to the canonical codes below,
// regardless of what fuzzy matching would decide. Depth 1 matches on
// the raw maker code alone, depth 5 on the full tuple.
type ForcedMapping struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Source string `gorm:"type:varchar(30);not null;index"`
	Depth  int    `gorm:"not null"`

	RawMakerCode      *string `gorm:"type:varchar(50)"`
	RawModelGroupCode *string `gorm:"type:varchar(50)"`
	RawModelCode      *string `gorm:"type:varchar(50)"`
	RawTrimCode       *string `gorm:"type:varchar(50)"`
	RawGradeCode      *string `gorm:"type:varchar(50)"`

	MakerCode      *string `gorm:"type:varchar(50)"`
	ModelGroupCode *string `gorm:"type:varchar(50)"`
	ModelCode      *string `gorm:"type:varchar(50)"`
	TrimCode       *string `gorm:"type:varchar(50)"`
	GradeCode      *string `gorm:"type:varchar(50)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ForcedMapping) TableName() string {
	return "forced_mappings"
}

// PlatformPriority is the total order over sources used to pick the
// authoritative listing when attributes disagree. Lower wins.
type PlatformPriority struct {
	Source    string    `gorm:"primaryKey;type:varchar(30)"`
	Priority  int       `gorm:"not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (PlatformPriority) TableName() string {
	return "platform_priorities"
}
