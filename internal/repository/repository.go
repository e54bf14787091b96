package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/heesms/carizon/internal/models"
)

// Repository is the storage surface of the merge pipeline. Chunked
// writers pass the chunk transaction explicitly (Tx suffix); reads that
// only feed in-memory computation run outside any transaction.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Raw ingestion (read-only to the core).
	ListRawListingsAfterTx(ctx context.Context, tx *gorm.DB, source string, afterID uint64, limit int) ([]models.RawListing, error)

	// Normalized listings.
	UpsertListingsTx(ctx context.Context, tx *gorm.DB, items []models.Listing) error
	ListListingsAfter(ctx context.Context, params ListListingsParams) ([]models.Listing, error)
	ListListingsByVehicle(ctx context.Context, vehicleID uint64) ([]models.Listing, error)
	ClaimUnlinkedListingsTx(ctx context.Context, tx *gorm.DB, limit int) ([]models.Listing, error)
	LinkListingTx(ctx context.Context, tx *gorm.DB, listingID, vehicleID uint64) error

	// Canonical vehicles.
	InsertVehicleIgnoreTx(ctx context.Context, tx *gorm.DB, item *models.Vehicle) error
	GetVehicleByPlateTx(ctx context.Context, tx *gorm.DB, plateNo string) (*models.Vehicle, error)
	ListVehiclesAfter(ctx context.Context, status string, afterID uint64, limit int) ([]models.Vehicle, error)
	UpdateVehicleConsolidated(ctx context.Context, item *models.Vehicle) error
	ListStaleVehicleIDs(ctx context.Context, businessDate time.Time, afterID uint64, limit int) ([]uint64, error)
	MarkVehiclesSoldTx(ctx context.Context, tx *gorm.DB, ids []uint64) (int64, error)

	// Taxonomy resolution.
	LoadMakers(ctx context.Context) ([]models.Maker, error)
	LoadModelGroups(ctx context.Context) ([]models.ModelGroup, error)
	LoadModels(ctx context.Context) ([]models.Model, error)
	LoadTrims(ctx context.Context) ([]models.Trim, error)
	LoadGrades(ctx context.Context) ([]models.Grade, error)
	LoadForcedMappings(ctx context.Context, source string) ([]models.ForcedMapping, error)
	LoadPlateIndex(ctx context.Context, refSource string) ([]PlateCodes, error)
	UpsertCodeMappingsTx(ctx context.Context, tx *gorm.DB, items []models.CodeMapping) error
	ListMappingsByStatus(ctx context.Context, statuses []string) ([]models.CodeMapping, error)

	// Priority lookup.
	LoadPlatformPriorities(ctx context.Context) (map[string]int, error)

	// Price history.
	ListCurrentSnapshotsTx(ctx context.Context, tx *gorm.DB, listingIDs []uint64) ([]models.PriceSnapshot, error)
	CloseSnapshotTx(ctx context.Context, tx *gorm.DB, snapshotID uint64, closedAt time.Time) error
	InsertSnapshotsTx(ctx context.Context, tx *gorm.DB, items []models.PriceSnapshot) error
	TouchSnapshotTx(ctx context.Context, tx *gorm.DB, snapshotID uint64, confirmedAt time.Time) error

	// Run records.
	InsertMergeRun(ctx context.Context, item *models.MergeRun) error
	FinishMergeRun(ctx context.Context, runID, status string, itemCount int, message *string, endedAt time.Time) error
	ListRecentRuns(ctx context.Context, limit int) ([]models.MergeRun, error)
}

// ListListingsParams bounds one cursor page over listings. Source and
// SeenOn are optional filters; AfterID/Limit drive the cursor.
type ListListingsParams struct {
	Source  string
	SeenOn  *time.Time
	AfterID uint64
	Limit   int
}

// PlateCodes is one entry of the reference-source plate index: the
// canonical codes the reference platform publishes for a plate.
type PlateCodes struct {
	PlateNo        string
	MakerCode      *string
	ModelGroupCode *string
	ModelCode      *string
	TrimCode       *string
	GradeCode      *string
}
