package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heesms/carizon/internal/config"
	"github.com/heesms/carizon/internal/models"
	"github.com/heesms/carizon/internal/repository"
)

type fakeLifecycleRepo struct {
	repository.Repository

	listings  []models.Listing
	snapshots []models.PriceSnapshot
	nextID    uint64

	staleIDs []uint64
	sold     map[uint64]bool
	touched  int
}

func newFakeLifecycleRepo() *fakeLifecycleRepo {
	return &fakeLifecycleRepo{nextID: 1, sold: make(map[uint64]bool)}
}

func (f *fakeLifecycleRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (f *fakeLifecycleRepo) ListListingsAfter(ctx context.Context, params repository.ListListingsParams) ([]models.Listing, error) {
	var page []models.Listing
	for _, l := range f.listings {
		if l.ID > params.AfterID {
			page = append(page, l)
		}
		if len(page) == params.Limit {
			break
		}
	}
	return page, nil
}

func (f *fakeLifecycleRepo) ListCurrentSnapshotsTx(ctx context.Context, tx *gorm.DB, listingIDs []uint64) ([]models.PriceSnapshot, error) {
	want := make(map[uint64]bool, len(listingIDs))
	for _, id := range listingIDs {
		want[id] = true
	}
	var out []models.PriceSnapshot
	for _, s := range f.snapshots {
		if s.IsCurrent && want[s.ListingID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeLifecycleRepo) CloseSnapshotTx(ctx context.Context, tx *gorm.DB, snapshotID uint64, closedAt time.Time) error {
	for i := range f.snapshots {
		if f.snapshots[i].ID == snapshotID {
			f.snapshots[i].IsCurrent = false
		}
	}
	return nil
}

func (f *fakeLifecycleRepo) InsertSnapshotsTx(ctx context.Context, tx *gorm.DB, items []models.PriceSnapshot) error {
	for _, s := range items {
		s.ID = f.nextID
		f.nextID++
		f.snapshots = append(f.snapshots, s)
	}
	return nil
}

func (f *fakeLifecycleRepo) TouchSnapshotTx(ctx context.Context, tx *gorm.DB, snapshotID uint64, confirmedAt time.Time) error {
	f.touched++
	for i := range f.snapshots {
		if f.snapshots[i].ID == snapshotID {
			f.snapshots[i].LastConfirmedAt = confirmedAt
		}
	}
	return nil
}

func (f *fakeLifecycleRepo) ListStaleVehicleIDs(ctx context.Context, businessDate time.Time, afterID uint64, limit int) ([]uint64, error) {
	var out []uint64
	for _, id := range f.staleIDs {
		if id > afterID && !f.sold[id] {
			out = append(out, id)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLifecycleRepo) MarkVehiclesSoldTx(ctx context.Context, tx *gorm.DB, ids []uint64) (int64, error) {
	var n int64
	for _, id := range ids {
		if !f.sold[id] {
			f.sold[id] = true
			n++
		}
	}
	return n, nil
}

func (f *fakeLifecycleRepo) currentCount(listingID uint64) int {
	n := 0
	for _, s := range f.snapshots {
		if s.ListingID == listingID && s.IsCurrent {
			n++
		}
	}
	return n
}

func bizDate() time.Time {
	return time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
}

func newTestService(repo repository.Repository) *Service {
	return NewService(repo, config.LifecycleConfig{ChunkSize: 100}, zap.NewNop())
}

func TestSnapshotPricesObservationSequence(t *testing.T) {
	repo := newFakeLifecycleRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	setPrice := func(p int64) {
		repo.listings = []models.Listing{{
			ID:           1,
			Source:       "ENCAR",
			Price:        decimal.NewFromInt(p),
			LastSeenDate: bizDate(),
		}}
	}

	// First observation inserts a current row.
	setPrice(1500)
	n, err := svc.SnapshotPrices(ctx, bizDate())
	if err != nil {
		t.Fatalf("SnapshotPrices: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted = %d, want 1", n)
	}

	// Repeat at the same price only refreshes confirmation.
	n, err = svc.SnapshotPrices(ctx, bizDate())
	if err != nil {
		t.Fatalf("SnapshotPrices repeat: %v", err)
	}
	if n != 0 {
		t.Fatalf("inserted = %d on unchanged price, want 0", n)
	}
	if repo.touched == 0 {
		t.Fatalf("unchanged price did not refresh confirmation")
	}

	// A price change closes the old row and opens a new one.
	setPrice(1450)
	n, err = svc.SnapshotPrices(ctx, bizDate())
	if err != nil {
		t.Fatalf("SnapshotPrices change: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted = %d on change, want 1", n)
	}

	if got := repo.currentCount(1); got != 1 {
		t.Fatalf("current rows = %d, want exactly 1", got)
	}
	if len(repo.snapshots) != 2 {
		t.Fatalf("history rows = %d, want 2", len(repo.snapshots))
	}
}

func TestRetireStale(t *testing.T) {
	repo := newFakeLifecycleRepo()
	repo.staleIDs = []uint64{3, 7}
	svc := newTestService(repo)

	n, err := svc.RetireStale(context.Background(), bizDate())
	if err != nil {
		t.Fatalf("RetireStale: %v", err)
	}
	if n != 2 {
		t.Fatalf("retired = %d, want 2", n)
	}
	if !repo.sold[3] || !repo.sold[7] {
		t.Fatalf("stale vehicles not marked sold: %v", repo.sold)
	}

	// Second run for the same date is a no-op.
	n, err = svc.RetireStale(context.Background(), bizDate())
	if err != nil {
		t.Fatalf("RetireStale rerun: %v", err)
	}
	if n != 0 {
		t.Fatalf("retired = %d on rerun, want 0", n)
	}
}
