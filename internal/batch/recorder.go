package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heesms/carizon/internal/models"
	"github.com/heesms/carizon/internal/repository"
)

// Failure messages are cut so any driver error fits the column.
const maxMessageLen = 480

// Recorder persists the lifecycle of one batch operation. Recording
// failures are logged, never propagated: observability must not break
// the batch itself.
type Recorder struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewRecorder(repo repository.Repository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Start opens a run record and returns its id.
func (r *Recorder) Start(ctx context.Context, source, operation string) string {
	runID := uuid.NewString()
	err := r.repo.InsertMergeRun(ctx, &models.MergeRun{
		RunID:     runID,
		Source:    source,
		Operation: operation,
		Status:    models.RunStarted,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		r.logger.Warn("run record insert failed",
			zap.String("run_id", runID),
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
	return runID
}

func (r *Recorder) Success(ctx context.Context, runID string, itemCount int) {
	r.finish(ctx, runID, models.RunSuccess, itemCount, nil)
}

func (r *Recorder) Fail(ctx context.Context, runID string, itemCount int, cause error) {
	msg := Truncate(cause.Error(), maxMessageLen)
	r.finish(ctx, runID, models.RunFail, itemCount, &msg)
}

func (r *Recorder) finish(ctx context.Context, runID, status string, itemCount int, message *string) {
	if err := r.repo.FinishMergeRun(ctx, runID, status, itemCount, message, time.Now().UTC()); err != nil {
		r.logger.Warn("run record update failed",
			zap.String("run_id", runID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

// Truncate shortens msg to at most limit runes.
func Truncate(msg string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(msg)
	if len(runes) <= limit {
		return msg
	}
	return string(runes[:limit])
}
