package pipeline

import (
	"errors"
	"time"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrRunInProgress is returned when a run cannot start because another run
// holds the running status.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Run is the bookkeeping record of one pipeline execution. A row in
// running status blocks new runs until it finishes or goes stale.
type Run struct {
	ID         string     `gorm:"primaryKey;size:36"`
	StartedAt  time.Time  `gorm:"index;type:datetime;not null"`
	FinishedAt *time.Time `gorm:"type:datetime"`
	Status     string     `gorm:"index;not null"`
	Error      string

	// Row counts of the snapshot this run loaded and the mart rows it wrote.
	Products   int64 `gorm:"not null;default:0"`
	Sessions   int64 `gorm:"not null;default:0"`
	Pageviews  int64 `gorm:"not null;default:0"`
	Orders     int64 `gorm:"not null;default:0"`
	OrderItems int64 `gorm:"not null;default:0"`
	Refunds    int64 `gorm:"not null;default:0"`
	MartRows   int64 `gorm:"not null;default:0"`
}

// TableName specifies the table name for GORM
func (Run) TableName() string {
	return "pipeline_runs"
}

// Duration returns how long the run took, zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
