package gormrepository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/heesms/carizon/internal/models"
)

// sqlRecorder keeps the statements gorm renders in dry-run mode so the
// conflict and locking clauses can be checked without a live database.
type sqlRecorder struct {
	statements []string
}

func (r *sqlRecorder) record(db *gorm.DB) {
	r.statements = append(r.statements, db.Statement.SQL.String())
}

func (r *sqlRecorder) last(t *testing.T) string {
	t.Helper()
	if len(r.statements) == 0 {
		t.Fatalf("no statement recorded")
	}
	return r.statements[len(r.statements)-1]
}

func newDryRunStore(t *testing.T) (*Store, *sqlRecorder) {
	t.Helper()
	gdb, err := gorm.Open(postgres.Open("host=127.0.0.1 user=carizon dbname=carizon sslmode=disable"), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open dry-run handle: %v", err)
	}
	rec := &sqlRecorder{}
	if err := gdb.Callback().Create().After("gorm:create").Register("test_record_sql", rec.record); err != nil {
		t.Fatalf("register create callback: %v", err)
	}
	if err := gdb.Callback().Query().After("gorm:query").Register("test_record_sql", rec.record); err != nil {
		t.Fatalf("register query callback: %v", err)
	}
	return New(gdb), rec
}

func mustContain(t *testing.T, stmt, want string) {
	t.Helper()
	if !strings.Contains(stmt, want) {
		t.Fatalf("statement missing %q:\n%s", want, stmt)
	}
}

// A re-scan of an already-resolved listing carries null taxonomy again.
// The refresh must overwrite observation fields but never null out a
// resolved code or name.
func TestUpsertListingsKeepsResolvedTaxonomy(t *testing.T) {
	store, rec := newDryRunStore(t)

	items := []models.Listing{{
		Source:       "ENCAR",
		SourceKey:    "E100",
		Price:        decimal.NewFromInt(1450),
		Status:       models.ListingOnSale,
		LastSeenDate: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	}}
	if err := store.UpsertListingsTx(context.Background(), nil, items); err != nil {
		t.Fatalf("UpsertListingsTx: %v", err)
	}

	stmt := rec.last(t)
	mustContain(t, stmt, `ON CONFLICT ("source","source_key") DO UPDATE`)
	for _, col := range []string{
		"maker_code", "model_group_code", "model_code", "trim_code", "grade_code",
		"maker_name", "model_group_name", "model_name", "trim_name", "grade_name",
	} {
		mustContain(t, stmt, fmt.Sprintf(`"%s"=COALESCE(listings.%s, excluded.%s)`, col, col, col))
	}
	for _, col := range []string{"price", "status", "payload", "last_seen_date"} {
		mustContain(t, stmt, fmt.Sprintf(`"%s"=excluded.%s`, col, col))
	}
}

// A LOCKED mapping is curator-owned: re-resolution may advance its seen
// window but must not touch codes, confidence, reason or status.
func TestUpsertCodeMappingsKeepsLockedRows(t *testing.T) {
	store, rec := newDryRunStore(t)

	items := []models.CodeMapping{{
		Source:       "ENCAR",
		RawMakerCode: "101",
		Confidence:   0.95,
		Status:       models.MappingAuto,
		FirstSeen:    time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		LastSeen:     time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	}}
	if err := store.UpsertCodeMappingsTx(context.Background(), nil, items); err != nil {
		t.Fatalf("UpsertCodeMappingsTx: %v", err)
	}

	stmt := rec.last(t)
	mustContain(t, stmt, `ON CONFLICT ("source","raw_maker_code","raw_model_group_code","raw_model_code","raw_trim_code","raw_grade_code") DO UPDATE`)
	for _, col := range []string{
		"maker_code", "model_group_code", "model_code", "trim_code", "grade_code",
		"confidence", "match_reason", "status",
	} {
		want := fmt.Sprintf(`"%s"=CASE WHEN code_mappings.status = 'LOCKED' THEN code_mappings.%s ELSE excluded.%s END`, col, col, col)
		mustContain(t, stmt, want)
	}
	mustContain(t, stmt, `"first_seen"=LEAST(code_mappings.first_seen, excluded.first_seen)`)
	mustContain(t, stmt, `"last_seen"=GREATEST(code_mappings.last_seen, excluded.last_seen)`)
}

func TestClaimUnlinkedListingsSkipsLockedRows(t *testing.T) {
	store, rec := newDryRunStore(t)

	if _, err := store.ClaimUnlinkedListingsTx(context.Background(), nil, 10); err != nil {
		t.Fatalf("ClaimUnlinkedListingsTx: %v", err)
	}
	stmt := rec.last(t)
	mustContain(t, stmt, "vehicle_id IS NULL")
	mustContain(t, stmt, "FOR UPDATE SKIP LOCKED")
}

func TestListCurrentSnapshotsLocksCurrentRows(t *testing.T) {
	store, rec := newDryRunStore(t)

	if _, err := store.ListCurrentSnapshotsTx(context.Background(), nil, []uint64{1, 2}); err != nil {
		t.Fatalf("ListCurrentSnapshotsTx: %v", err)
	}
	stmt := rec.last(t)
	mustContain(t, stmt, "is_current")
	mustContain(t, stmt, "FOR UPDATE")
	if strings.Contains(stmt, "SKIP LOCKED") {
		t.Fatalf("snapshot read must wait for the lock, not skip:\n%s", stmt)
	}
}
