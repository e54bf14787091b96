// Package lifecycle maintains the price history and the vehicle
// advertisement state derived from listing freshness.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heesms/carizon/internal/config"
	"github.com/heesms/carizon/internal/models"
	"github.com/heesms/carizon/internal/repository"
)

type Service struct {
	repo      repository.Repository
	chunkSize int
	logger    *zap.Logger
}

func NewService(repo repository.Repository, cfg config.LifecycleConfig, logger *zap.Logger) *Service {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = 1000
	}
	return &Service{repo: repo, chunkSize: chunk, logger: logger}
}

// SnapshotPrices walks listings seen on businessDate and maintains the
// append-only price history: a changed price closes the current row and
// inserts a new one, an unchanged price only refreshes the confirmation
// timestamp. At most one current row per listing survives any sequence
// of observations. Returns the number of new snapshot rows.
func (s *Service) SnapshotPrices(ctx context.Context, businessDate time.Time) (int, error) {
	inserted := 0
	var cursor uint64
	for {
		page, err := s.repo.ListListingsAfter(ctx, repository.ListListingsParams{
			SeenOn:  &businessDate,
			AfterID: cursor,
			Limit:   s.chunkSize,
		})
		if err != nil {
			return inserted, fmt.Errorf("lifecycle: list listings: %w", err)
		}
		if len(page) == 0 {
			break
		}
		cursor = page[len(page)-1].ID

		chunkInserted := 0
		err = s.repo.InTx(ctx, func(tx *gorm.DB) error {
			chunkInserted = 0
			ids := make([]uint64, len(page))
			for i, l := range page {
				ids[i] = l.ID
			}
			current, err := s.repo.ListCurrentSnapshotsTx(ctx, tx, ids)
			if err != nil {
				return err
			}
			byListing := make(map[uint64]models.PriceSnapshot, len(current))
			for _, snap := range current {
				byListing[snap.ListingID] = snap
			}

			now := time.Now().UTC()
			var fresh []models.PriceSnapshot
			for _, l := range page {
				cur, ok := byListing[l.ID]
				switch {
				case !ok:
					fresh = append(fresh, newSnapshot(l, now))
				case !cur.Price.Equal(l.Price):
					if err := s.repo.CloseSnapshotTx(ctx, tx, cur.ID, now); err != nil {
						return err
					}
					fresh = append(fresh, newSnapshot(l, now))
				default:
					if err := s.repo.TouchSnapshotTx(ctx, tx, cur.ID, now); err != nil {
						return err
					}
				}
			}
			if err := s.repo.InsertSnapshotsTx(ctx, tx, fresh); err != nil {
				return err
			}
			chunkInserted = len(fresh)
			return nil
		})
		if err != nil {
			return inserted, fmt.Errorf("lifecycle: snapshot chunk: %w", err)
		}
		inserted += chunkInserted

		if len(page) < s.chunkSize {
			break
		}
	}

	s.logger.Info("price snapshots finished",
		zap.Time("business_date", businessDate),
		zap.Int("inserted", inserted),
	)
	return inserted, nil
}

func newSnapshot(l models.Listing, now time.Time) models.PriceSnapshot {
	return models.PriceSnapshot{
		ListingID:       l.ID,
		Price:           l.Price,
		IsCurrent:       true,
		CheckedAt:       now,
		LastConfirmedAt: now,
	}
}

// RetireStale marks every ON_SALE vehicle with no listing seen on
// businessDate as SOLD. Absence is the only signal; SOLD vehicles are
// never reactivated here, so a second run for the same date is a no-op.
func (s *Service) RetireStale(ctx context.Context, businessDate time.Time) (int, error) {
	retired := 0
	var cursor uint64
	for {
		ids, err := s.repo.ListStaleVehicleIDs(ctx, businessDate, cursor, s.chunkSize)
		if err != nil {
			return retired, fmt.Errorf("lifecycle: list stale vehicles: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		cursor = ids[len(ids)-1]

		var n int64
		err = s.repo.InTx(ctx, func(tx *gorm.DB) error {
			var err error
			n, err = s.repo.MarkVehiclesSoldTx(ctx, tx, ids)
			return err
		})
		if err != nil {
			return retired, fmt.Errorf("lifecycle: retire chunk: %w", err)
		}
		retired += int(n)

		if len(ids) < s.chunkSize {
			break
		}
	}

	s.logger.Info("stale retirement finished",
		zap.Time("business_date", businessDate),
		zap.Int("retired", retired),
	)
	return retired, nil
}
