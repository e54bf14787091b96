package models

import "time"

// Run statuses.
const (
	RunStarted = "STARTED"
	RunSuccess = "SUCCESS"
	RunFail    = "FAIL"
)

// MergeRun records one invocation of a batch operation for
// observability: which source, what happened, how many items, and a
// truncated error message on failure.
type MergeRun struct {
	RunID     string     `gorm:"primaryKey;type:varchar(36)"`
	Source    string     `gorm:"type:varchar(30);not null;index"`
	Operation string     `gorm:"type:varchar(30);not null"`
	Status    string     `gorm:"type:varchar(10);not null;index"`
	ItemCount int        `gorm:"not null;default:0"`
	StartedAt time.Time  `gorm:"type:timestamptz;not null;index"`
	EndedAt   *time.Time `gorm:"type:timestamptz"`
	Message   *string    `gorm:"type:varchar(500)"`
}

func (MergeRun) TableName() string {
	return "merge_runs"
}
