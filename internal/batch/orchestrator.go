// Package batch sequences the merge pipeline and records every
// operation as a run: merge raw rows, resolve taxonomy, link vehicles,
// snapshot prices, retire stale vehicles.
package batch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/heesms/carizon/internal/lifecycle"
	"github.com/heesms/carizon/internal/linker"
	"github.com/heesms/carizon/internal/merge"
	"github.com/heesms/carizon/internal/models"
	"github.com/heesms/carizon/internal/repository"
	"github.com/heesms/carizon/internal/resolver"
	"github.com/heesms/carizon/internal/retry"
)

// Operation names stamped on run records.
const (
	OpMerge     = "MERGE"
	OpResolve   = "RESOLVE"
	OpLink      = "LINK"
	OpSnapshot  = "SNAPSHOT"
	OpRetire    = "RETIRE"
	OpFullBatch = "FULL_BATCH"
)

// Source stamped on runs that span all platforms.
const sourceAll = "ALL"

type Orchestrator struct {
	repo      repository.Repository
	merger    *merge.Merger
	resolver  *resolver.Service
	linker    *linker.Service
	lifecycle *lifecycle.Service
	recorder  *Recorder
	retryCfg  retry.Config
	sources   []string
	loc       *time.Location
	logger    *zap.Logger
}

func NewOrchestrator(
	repo repository.Repository,
	merger *merge.Merger,
	res *resolver.Service,
	link *linker.Service,
	life *lifecycle.Service,
	recorder *Recorder,
	retryCfg retry.Config,
	sources []string,
	loc *time.Location,
	logger *zap.Logger,
) *Orchestrator {
	if loc == nil {
		loc = time.UTC
	}
	return &Orchestrator{
		repo:      repo,
		merger:    merger,
		resolver:  res,
		linker:    link,
		lifecycle: life,
		recorder:  recorder,
		retryCfg:  retryCfg,
		sources:   sources,
		loc:       loc,
		logger:    logger,
	}
}

// BusinessDate is today in the configured market timezone, truncated
// to midnight.
func (o *Orchestrator) BusinessDate() time.Time {
	now := time.Now().In(o.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// run wraps one operation in a run record and transient-failure retry.
func (o *Orchestrator) run(ctx context.Context, source, operation string, fn func() (int, error)) (int, error) {
	runID := o.recorder.Start(ctx, source, operation)
	var count int
	err := retry.Do(ctx, o.retryCfg, func() error {
		var err error
		count, err = fn()
		return err
	})
	if err != nil {
		o.recorder.Fail(ctx, runID, count, err)
		o.logger.Error("batch operation failed",
			zap.String("operation", operation),
			zap.String("source", source),
			zap.Error(err),
		)
		return count, err
	}
	o.recorder.Success(ctx, runID, count)
	return count, nil
}

// MergeSource merges one platform's raw rows for the business date.
func (o *Orchestrator) MergeSource(ctx context.Context, source string, businessDate time.Time) (int, error) {
	return o.run(ctx, source, OpMerge, func() (int, error) {
		return o.merger.MergeSource(ctx, source, businessDate)
	})
}

// MergeAllResult reports one full pipeline pass.
type MergeAllResult struct {
	PerSource   map[string]int `json:"per_source"`
	NewVehicles int            `json:"new_vehicles"`
}

// MergeAll runs the whole pipeline for businessDate: per-source merge
// and taxonomy resolution, then linking, price snapshots and
// retirement. A failing source aborts before the cross-source phases
// so partial per-source progress stays committed.
func (o *Orchestrator) MergeAll(ctx context.Context, businessDate time.Time) (MergeAllResult, error) {
	result := MergeAllResult{PerSource: make(map[string]int, len(o.sources))}
	for _, source := range o.sources {
		n, err := o.MergeSource(ctx, source, businessDate)
		result.PerSource[source] = n
		if err != nil {
			return result, err
		}
		if _, err := o.ResolveTaxonomy(ctx, source, resolver.ScopeToday, businessDate); err != nil {
			return result, err
		}
	}

	_, created, err := o.LinkToMaster(ctx)
	if err != nil {
		return result, err
	}
	result.NewVehicles = created

	if _, err := o.SnapshotPrices(ctx, businessDate); err != nil {
		return result, err
	}
	if _, err := o.RetireStale(ctx, businessDate); err != nil {
		return result, err
	}
	return result, nil
}

// ResolveTaxonomy resolves raw tuples of one source. Scope TODAY limits
// the scan to listings seen on businessDate, FULL rescans everything.
func (o *Orchestrator) ResolveTaxonomy(ctx context.Context, source, scope string, businessDate time.Time) (int, error) {
	return o.run(ctx, source, OpResolve, func() (int, error) {
		return o.resolver.Run(ctx, source, scope, businessDate)
	})
}

// LinkToMaster materializes vehicles for unlinked plated listings and
// consolidates vehicle attributes.
func (o *Orchestrator) LinkToMaster(ctx context.Context) (linked, created int, err error) {
	_, err = o.run(ctx, sourceAll, OpLink, func() (int, error) {
		var err error
		linked, created, err = o.linker.Link(ctx)
		if err != nil {
			return linked, err
		}
		if _, err := o.linker.Consolidate(ctx); err != nil {
			return linked, err
		}
		return linked, nil
	})
	return linked, created, err
}

// SnapshotPrices maintains the price history for businessDate.
func (o *Orchestrator) SnapshotPrices(ctx context.Context, businessDate time.Time) (int, error) {
	return o.run(ctx, sourceAll, OpSnapshot, func() (int, error) {
		return o.lifecycle.SnapshotPrices(ctx, businessDate)
	})
}

// RetireStale marks vehicles without a listing seen on businessDate as
// sold.
func (o *Orchestrator) RetireStale(ctx context.Context, businessDate time.Time) (int, error) {
	return o.run(ctx, sourceAll, OpRetire, func() (int, error) {
		return o.lifecycle.RetireStale(ctx, businessDate)
	})
}

// RunFullBatch is the nightly entrypoint: MergeAll for today.
func (o *Orchestrator) RunFullBatch(ctx context.Context) {
	businessDate := o.BusinessDate()
	runID := o.recorder.Start(ctx, sourceAll, OpFullBatch)
	result, err := o.MergeAll(ctx, businessDate)
	total := 0
	for _, n := range result.PerSource {
		total += n
	}
	if err != nil {
		o.recorder.Fail(ctx, runID, total, err)
		return
	}
	o.recorder.Success(ctx, runID, total)
	o.logger.Info("full batch finished",
		zap.Time("business_date", businessDate),
		zap.Int("merged", total),
		zap.Int("new_vehicles", result.NewVehicles),
	)
}

// RecentRuns returns the latest run records for the observability read
// path.
func (o *Orchestrator) RecentRuns(ctx context.Context, limit int) ([]models.MergeRun, error) {
	return o.repo.ListRecentRuns(ctx, limit)
}
