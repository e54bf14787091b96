package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heesms/carizon/internal/models"
	"github.com/heesms/carizon/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// session returns tx when the caller runs inside a chunk transaction,
// the root handle otherwise.
func (s *Store) session(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// --- raw ingestion ----------------------------------------------------------

func (s *Store) ListRawListingsAfterTx(ctx context.Context, tx *gorm.DB, source string, afterID uint64, limit int) ([]models.RawListing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 1000)
	var items []models.RawListing
	err := s.session(tx).WithContext(ctx).
		Model(&models.RawListing{}).
		Where("source = ?", source).
		Where("id > ?", afterID).
		Order("id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- normalized listings ----------------------------------------------------

// listingRefreshAssignments overwrites observation fields from the
// incoming row while keeping any already-resolved taxonomy value: a
// stale re-scan must never downgrade a resolved field back to null.
var listingRefreshAssignments = map[string]any{
	"price":          gorm.Expr("excluded.price"),
	"status":         gorm.Expr("excluded.status"),
	"plate_no":       gorm.Expr("COALESCE(excluded.plate_no, listings.plate_no)"),
	"mileage":        gorm.Expr("excluded.mileage"),
	"year":           gorm.Expr("excluded.year"),
	"color":          gorm.Expr("excluded.color"),
	"fuel":           gorm.Expr("excluded.fuel"),
	"transmission":   gorm.Expr("excluded.transmission"),
	"body_type":      gorm.Expr("excluded.body_type"),
	"region":         gorm.Expr("excluded.region"),
	"displacement":   gorm.Expr("excluded.displacement"),
	"detail_url":     gorm.Expr("excluded.detail_url"),
	"payload":        gorm.Expr("excluded.payload"),
	"last_seen_date": gorm.Expr("excluded.last_seen_date"),
	"updated_at":     gorm.Expr("excluded.updated_at"),

	"maker_code":       gorm.Expr("COALESCE(listings.maker_code, excluded.maker_code)"),
	"model_group_code": gorm.Expr("COALESCE(listings.model_group_code, excluded.model_group_code)"),
	"model_code":       gorm.Expr("COALESCE(listings.model_code, excluded.model_code)"),
	"trim_code":        gorm.Expr("COALESCE(listings.trim_code, excluded.trim_code)"),
	"grade_code":       gorm.Expr("COALESCE(listings.grade_code, excluded.grade_code)"),
	"maker_name":       gorm.Expr("COALESCE(listings.maker_name, excluded.maker_name)"),
	"model_group_name": gorm.Expr("COALESCE(listings.model_group_name, excluded.model_group_name)"),
	"model_name":       gorm.Expr("COALESCE(listings.model_name, excluded.model_name)"),
	"trim_name":        gorm.Expr("COALESCE(listings.trim_name, excluded.trim_name)"),
	"grade_name":       gorm.Expr("COALESCE(listings.grade_name, excluded.grade_name)"),
}

func (s *Store) UpsertListingsTx(ctx context.Context, tx *gorm.DB, items []models.Listing) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.session(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "source_key"}},
		DoUpdates: clause.Assignments(listingRefreshAssignments),
	}).Create(&items).Error
}

func (s *Store) ListListingsAfter(ctx context.Context, params repository.ListListingsParams) ([]models.Listing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id > ?", params.AfterID)
	if strings.TrimSpace(params.Source) != "" {
		query = query.Where("source = ?", params.Source)
	}
	if params.SeenOn != nil && !params.SeenOn.IsZero() {
		query = query.Where("last_seen_date = ?", params.SeenOn.Format("2006-01-02"))
	}
	limit := normalizeLimit(params.Limit, 1000)
	var items []models.Listing
	if err := query.Order("id asc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListListingsByVehicle(ctx context.Context, vehicleID uint64) ([]models.Listing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Listing
	err := s.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("vehicle_id = ?", vehicleID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ClaimUnlinkedListingsTx(ctx context.Context, tx *gorm.DB, limit int) ([]models.Listing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 1000)
	var items []models.Listing
	err := s.session(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Model(&models.Listing{}).
		Where("vehicle_id IS NULL").
		Where("plate_no IS NOT NULL").
		Order("id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LinkListingTx(ctx context.Context, tx *gorm.DB, listingID, vehicleID uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.session(tx).WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", listingID).
		Update("vehicle_id", vehicleID).Error
}

// --- canonical vehicles -----------------------------------------------------

func (s *Store) InsertVehicleIgnoreTx(ctx context.Context, tx *gorm.DB, item *models.Vehicle) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	// First write wins: a concurrent insert for the same plate is not
	// an error, the caller re-reads the surviving row.
	return s.session(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plate_no"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) GetVehicleByPlateTx(ctx context.Context, tx *gorm.DB, plateNo string) (*models.Vehicle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Vehicle
	err := s.session(tx).WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("plate_no = ?", plateNo).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListVehiclesAfter(ctx context.Context, status string, afterID uint64, limit int) ([]models.Vehicle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 1000)
	query := s.db.WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("id > ?", afterID)
	if strings.TrimSpace(status) != "" {
		query = query.Where("adv_status = ?", status)
	}
	var items []models.Vehicle
	if err := query.Order("id asc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateVehicleConsolidated(ctx context.Context, item *models.Vehicle) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"maker_code":       item.MakerCode,
			"model_group_code": item.ModelGroupCode,
			"model_code":       item.ModelCode,
			"trim_code":        item.TrimCode,
			"grade_code":       item.GradeCode,
			"year":             item.Year,
			"mileage":          item.Mileage,
			"color":            item.Color,
			"transmission":     item.Transmission,
			"fuel":             item.Fuel,
			"region":           item.Region,
			"displacement":     item.Displacement,
			"body_type":        item.BodyType,
			"last_seen_date":   item.LastSeenDate.Format("2006-01-02"),
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (s *Store) ListStaleVehicleIDs(ctx context.Context, businessDate time.Time, afterID uint64, limit int) ([]uint64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 1000)
	var ids []uint64
	err := s.db.WithContext(ctx).
		Model(&models.Vehicle{}).
		Select("vehicles.id").
		Where("vehicles.adv_status = ?", models.VehicleOnSale).
		Where("vehicles.id > ?", afterID).
		Where(`NOT EXISTS (
			SELECT 1 FROM listings l
			WHERE l.vehicle_id = vehicles.id AND l.last_seen_date = ?
		)`, businessDate.Format("2006-01-02")).
		Order("vehicles.id asc").
		Limit(limit).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) MarkVehiclesSoldTx(ctx context.Context, tx *gorm.DB, ids []uint64) (int64, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return 0, nil
	}
	res := s.session(tx).WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("id IN ?", ids).
		Where("adv_status = ?", models.VehicleOnSale).
		Updates(map[string]any{"adv_status": models.VehicleSold, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// --- taxonomy resolution ----------------------------------------------------

func (s *Store) LoadMakers(ctx context.Context) ([]models.Maker, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Maker
	if err := s.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LoadModelGroups(ctx context.Context) ([]models.ModelGroup, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ModelGroup
	if err := s.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LoadModels(ctx context.Context) ([]models.Model, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Model
	if err := s.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LoadTrims(ctx context.Context) ([]models.Trim, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Trim
	if err := s.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LoadGrades(ctx context.Context) ([]models.Grade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Grade
	if err := s.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LoadForcedMappings(ctx context.Context, source string) ([]models.ForcedMapping, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ForcedMapping
	err := s.db.WithContext(ctx).
		Where("source = ?", source).
		Order("depth desc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LoadPlateIndex(ctx context.Context, refSource string) ([]repository.PlateCodes, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.PlateCodes
	err := s.db.WithContext(ctx).
		Model(&models.Listing{}).
		Select("plate_no, maker_code, model_group_code, model_code, trim_code, grade_code").
		Where("source = ?", refSource).
		Where("plate_no IS NOT NULL").
		Where("maker_code IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mappingRefreshAssignments keeps curated rows untouched: a LOCKED
// mapping retains its codes, confidence, reason and status while
// last_seen still advances.
var mappingRefreshAssignments = map[string]any{
	"maker_name_norm":       gorm.Expr("excluded.maker_name_norm"),
	"model_group_name_norm": gorm.Expr("excluded.model_group_name_norm"),
	"model_name_norm":       gorm.Expr("excluded.model_name_norm"),
	"trim_name_norm":        gorm.Expr("excluded.trim_name_norm"),
	"grade_name_norm":       gorm.Expr("excluded.grade_name_norm"),
	"ref_plate_no":          gorm.Expr("COALESCE(excluded.ref_plate_no, code_mappings.ref_plate_no)"),

	"maker_code":       gorm.Expr("CASE WHEN code_mappings.status = 'LOCKED' THEN code_mappings.maker_code ELSE excluded.maker_code END"),
	"model_group_code": gorm.Expr("CASE WHEN code_mappings.status = 'LOCKED' THEN code_mappings.model_group_code ELSE excluded.model_group_code END"),
	"model_code":       gorm.Expr("CASE WHEN code_mappings.status = 'LOCKED' THEN code_mappings.model_code ELSE excluded.model_code END"),
	"trim_code":        gorm.Expr("CASE WHEN code_mappings.status = 'LOCKED' THEN code_mappings.trim_code ELSE excluded.trim_code END"),
	"grade_code":       gorm.Expr("CASE WHEN code_mappings.status = 'LOCKED' THEN code_mappings.grade_code ELSE excluded.grade_code END"),
	"confidence":       gorm.Expr("CASE WHEN code_mappings.status = 'LOCKED' THEN code_mappings.confidence ELSE excluded.confidence END"),
	"match_reason":     gorm.Expr("CASE WHEN code_mappings.status = 'LOCKED' THEN code_mappings.match_reason ELSE excluded.match_reason END"),
	"status":           gorm.Expr("CASE WHEN code_mappings.status = 'LOCKED' THEN code_mappings.status ELSE excluded.status END"),

	"first_seen": gorm.Expr("LEAST(code_mappings.first_seen, excluded.first_seen)"),
	"last_seen":  gorm.Expr("GREATEST(code_mappings.last_seen, excluded.last_seen)"),
}

func (s *Store) UpsertCodeMappingsTx(ctx context.Context, tx *gorm.DB, items []models.CodeMapping) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.session(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source"},
			{Name: "raw_maker_code"},
			{Name: "raw_model_group_code"},
			{Name: "raw_model_code"},
			{Name: "raw_trim_code"},
			{Name: "raw_grade_code"},
		},
		DoUpdates: clause.Assignments(mappingRefreshAssignments),
	}).Create(&items).Error
}

func (s *Store) ListMappingsByStatus(ctx context.Context, statuses []string) ([]models.CodeMapping, error) {
	if s == nil || s.db == nil || len(statuses) == 0 {
		return nil, nil
	}
	var items []models.CodeMapping
	err := s.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- priority lookup --------------------------------------------------------

func (s *Store) LoadPlatformPriorities(ctx context.Context) (map[string]int, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []models.PlatformPriority
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Source] = r.Priority
	}
	return out, nil
}

// --- price history ----------------------------------------------------------

func (s *Store) ListCurrentSnapshotsTx(ctx context.Context, tx *gorm.DB, listingIDs []uint64) ([]models.PriceSnapshot, error) {
	if s == nil || s.db == nil || len(listingIDs) == 0 {
		return nil, nil
	}
	var items []models.PriceSnapshot
	// Locked so two overlapping snapshot runs cannot both close the same
	// current row and insert twice.
	err := s.session(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Model(&models.PriceSnapshot{}).
		Where("listing_id IN ?", listingIDs).
		Where("is_current = ?", true).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CloseSnapshotTx(ctx context.Context, tx *gorm.DB, snapshotID uint64, closedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.session(tx).WithContext(ctx).
		Model(&models.PriceSnapshot{}).
		Where("id = ?", snapshotID).
		Updates(map[string]any{"is_current": false, "last_confirmed_at": closedAt}).Error
}

func (s *Store) InsertSnapshotsTx(ctx context.Context, tx *gorm.DB, items []models.PriceSnapshot) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.session(tx).WithContext(ctx).Create(&items).Error
}

func (s *Store) TouchSnapshotTx(ctx context.Context, tx *gorm.DB, snapshotID uint64, confirmedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.session(tx).WithContext(ctx).
		Model(&models.PriceSnapshot{}).
		Where("id = ?", snapshotID).
		Update("last_confirmed_at", confirmedAt).Error
}

// --- run records ------------------------------------------------------------

func (s *Store) InsertMergeRun(ctx context.Context, item *models.MergeRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) FinishMergeRun(ctx context.Context, runID, status string, itemCount int, message *string, endedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.MergeRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]any{
			"status":     status,
			"item_count": itemCount,
			"message":    message,
			"ended_at":   endedAt,
		}).Error
}

func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]models.MergeRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.MergeRun
	err := s.db.WithContext(ctx).
		Model(&models.MergeRun{}).
		Order("started_at desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > 5000 {
		return 5000
	}
	return limit
}
