package merge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heesms/carizon/internal/config"
	"github.com/heesms/carizon/internal/lock"
	"github.com/heesms/carizon/internal/models"
	"github.com/heesms/carizon/internal/repository"
	"github.com/heesms/carizon/internal/textnorm"
)

// Merger drives per-source merges: raw rows are read in primary-key
// chunks, mapped through the source adapter and upserted, each chunk in
// its own transaction so an interrupted run keeps committed progress.
type Merger struct {
	repo        repository.Repository
	locker      lock.Locker
	lockTimeout time.Duration
	chunkSize   int
	adapters    map[string]SourceAdapter
	logger      *zap.Logger
}

func NewMerger(repo repository.Repository, locker lock.Locker, cfg config.MergeConfig, lockCfg config.LockConfig, logger *zap.Logger) *Merger {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = 1000
	}
	return &Merger{
		repo:        repo,
		locker:      locker,
		lockTimeout: lockCfg.Timeout,
		chunkSize:   chunk,
		adapters:    make(map[string]SourceAdapter),
		logger:      logger,
	}
}

func (m *Merger) Register(a SourceAdapter) {
	m.adapters[a.Source()] = a
}

// Sources lists the registered adapter names.
func (m *Merger) Sources() []string {
	out := make([]string, 0, len(m.adapters))
	for name := range m.adapters {
		out = append(out, name)
	}
	return out
}

// MergeSource upserts every raw row of one source into listings and
// returns the upserted count. Merges of the same source are serialized
// by a named lease; different sources run in parallel. An empty raw
// table is a no-op, not an error.
func (m *Merger) MergeSource(ctx context.Context, source string, businessDate time.Time) (int, error) {
	adapter, ok := m.adapters[source]
	if !ok {
		return 0, fmt.Errorf("merge: no adapter for source %q", source)
	}

	release, err := m.locker.Acquire(ctx, "merge:"+source, m.lockTimeout)
	if err != nil {
		return 0, fmt.Errorf("merge: acquire %s lease: %w", source, err)
	}
	defer release()

	merged := 0
	skipped := 0
	var cursor uint64

	for {
		var page []models.RawListing
		chunkMerged := 0
		err := m.repo.InTx(ctx, func(tx *gorm.DB) error {
			var err error
			page, err = m.repo.ListRawListingsAfterTx(ctx, tx, source, cursor, m.chunkSize)
			if err != nil {
				return err
			}
			if len(page) == 0 {
				return nil
			}

			items := make([]models.Listing, 0, len(page))
			for _, raw := range page {
				l, err := adapter.Map(raw)
				if err != nil {
					if errors.Is(err, ErrBadRow) {
						skipped++
						m.logger.Warn("skipping malformed raw row",
							zap.String("source", source),
							zap.Uint64("raw_id", raw.ID),
							zap.Error(err),
						)
						continue
					}
					return err
				}
				l.Source = source
				l.LastSeenDate = businessDate
				l.Payload = raw.Payload
				if l.PlateNo != nil {
					if plate := textnorm.NormalizePlate(*l.PlateNo); plate != "" {
						l.PlateNo = &plate
					} else {
						l.PlateNo = nil
					}
				}
				items = append(items, l)
			}
			// Raw tables are append-mode, so one chunk can carry the same
			// (source, source_key) from two crawl cycles. A single insert
			// batch must not touch a target row twice, so only the newest
			// raw occurrence of each key survives.
			items = dedupBySourceKey(items)
			if err := m.repo.UpsertListingsTx(ctx, tx, items); err != nil {
				return err
			}
			chunkMerged = len(items)
			return nil
		})
		if err != nil {
			return merged, fmt.Errorf("merge: %s chunk after id %d: %w", source, cursor, err)
		}
		merged += chunkMerged
		if len(page) == 0 {
			break
		}
		cursor = page[len(page)-1].ID
		if len(page) < m.chunkSize {
			break
		}
	}

	m.logger.Info("source merge finished",
		zap.String("source", source),
		zap.Int("merged", merged),
		zap.Int("skipped", skipped),
	)
	return merged, nil
}

// dedupBySourceKey drops earlier duplicates of a source key. Chunks are
// read in raw id order, so the last occurrence is the newest crawl of
// that listing. Order of first appearance is preserved.
func dedupBySourceKey(items []models.Listing) []models.Listing {
	if len(items) < 2 {
		return items
	}
	index := make(map[string]int, len(items))
	out := make([]models.Listing, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.SourceKey]; ok {
			out[i] = item
			continue
		}
		index[item.SourceKey] = len(out)
		out = append(out, item)
	}
	return out
}
