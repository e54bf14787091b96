// Package linker ties normalized listings to canonical vehicles and
// consolidates vehicle attributes from the most trusted listing.
package linker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heesms/carizon/internal/config"
	"github.com/heesms/carizon/internal/models"
	"github.com/heesms/carizon/internal/repository"
)

// Priority assumed for a source missing from platform_priorities.
const defaultPriority = 9

type Service struct {
	repo      repository.Repository
	chunkSize int
	logger    *zap.Logger
}

func NewService(repo repository.Repository, cfg config.LinkerConfig, logger *zap.Logger) *Service {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = 1000
	}
	return &Service{repo: repo, chunkSize: chunk, logger: logger}
}

// Link claims unlinked plated listings chunk by chunk and attaches each
// to its canonical vehicle, creating the vehicle when the plate is new.
// Claims skip rows held by concurrent workers, so parallel runs make
// progress on disjoint listings. Returns linked and created counts.
func (s *Service) Link(ctx context.Context) (linked, created int, err error) {
	for {
		chunkLinked, chunkCreated := 0, 0
		err := s.repo.InTx(ctx, func(tx *gorm.DB) error {
			page, err := s.repo.ClaimUnlinkedListingsTx(ctx, tx, s.chunkSize)
			if err != nil {
				return err
			}
			for _, l := range page {
				if l.PlateNo == nil || *l.PlateNo == "" {
					continue
				}
				plate := *l.PlateNo
				v, err := s.repo.GetVehicleByPlateTx(ctx, tx, plate)
				if err != nil {
					return err
				}
				if v == nil {
					// Uniqueness on plate_no is the dedup mechanism: a
					// losing concurrent insert is absorbed and re-read.
					nv := vehicleFromListing(l)
					if err := s.repo.InsertVehicleIgnoreTx(ctx, tx, nv); err != nil {
						return err
					}
					v, err = s.repo.GetVehicleByPlateTx(ctx, tx, plate)
					if err != nil {
						return err
					}
					if v == nil {
						return fmt.Errorf("linker: vehicle for plate %s missing after insert", plate)
					}
					chunkCreated++
				}
				if err := s.repo.LinkListingTx(ctx, tx, l.ID, v.ID); err != nil {
					return err
				}
				chunkLinked++
			}
			return nil
		})
		if err != nil {
			return linked, created, fmt.Errorf("linker: link chunk: %w", err)
		}
		if chunkLinked == 0 {
			break
		}
		linked += chunkLinked
		created += chunkCreated
	}

	s.logger.Info("vehicle linking finished",
		zap.Int("linked", linked),
		zap.Int("created", created),
	)
	return linked, created, nil
}

func vehicleFromListing(l models.Listing) *models.Vehicle {
	return &models.Vehicle{
		PlateNo:      *l.PlateNo,
		AdvStatus:    models.VehicleOnSale,
		LastSeenDate: l.LastSeenDate,
	}
}

// Consolidate copies attributes of the authoritative listing onto every
// ON_SALE vehicle. The listing's raw taxonomy is translated through
// trusted code mappings first; listings from the reference platform
// already carry canonical codes and pass through unchanged.
func (s *Service) Consolidate(ctx context.Context) (int, error) {
	priorities, err := s.repo.LoadPlatformPriorities(ctx)
	if err != nil {
		return 0, fmt.Errorf("linker: load priorities: %w", err)
	}
	mappings, err := s.repo.ListMappingsByStatus(ctx, []string{models.MappingAuto, models.MappingLocked})
	if err != nil {
		return 0, fmt.Errorf("linker: load mappings: %w", err)
	}
	mapIndex := make(map[string]models.CodeMapping, len(mappings))
	for _, m := range mappings {
		mapIndex[mappingKey(m.Source, m.RawMakerCode, m.RawModelGroupCode, m.RawModelCode, m.RawTrimCode, m.RawGradeCode)] = m
	}

	updated := 0
	var cursor uint64
	for {
		vehicles, err := s.repo.ListVehiclesAfter(ctx, models.VehicleOnSale, cursor, s.chunkSize)
		if err != nil {
			return updated, fmt.Errorf("linker: list vehicles: %w", err)
		}
		if len(vehicles) == 0 {
			break
		}
		for _, v := range vehicles {
			cursor = v.ID
			listings, err := s.repo.ListListingsByVehicle(ctx, v.ID)
			if err != nil {
				return updated, fmt.Errorf("linker: listings of vehicle %d: %w", v.ID, err)
			}
			if len(listings) == 0 {
				continue
			}
			best := PickAuthoritative(listings, priorities)
			applyConsolidation(&v, best, mapIndex)
			if err := s.repo.UpdateVehicleConsolidated(ctx, &v); err != nil {
				return updated, fmt.Errorf("linker: update vehicle %d: %w", v.ID, err)
			}
			updated++
		}
		if len(vehicles) < s.chunkSize {
			break
		}
	}

	s.logger.Info("vehicle consolidation finished", zap.Int("updated", updated))
	return updated, nil
}

// PickAuthoritative selects the listing whose attributes win: lowest
// platform priority, then most recently seen, then highest id for
// determinism.
func PickAuthoritative(listings []models.Listing, priorities map[string]int) models.Listing {
	sorted := make([]models.Listing, len(listings))
	copy(sorted, listings)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := priorityOf(sorted[i].Source, priorities), priorityOf(sorted[j].Source, priorities)
		if pi != pj {
			return pi < pj
		}
		if !sorted[i].LastSeenDate.Equal(sorted[j].LastSeenDate) {
			return sorted[i].LastSeenDate.After(sorted[j].LastSeenDate)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted[0]
}

func priorityOf(source string, priorities map[string]int) int {
	if p, ok := priorities[source]; ok {
		return p
	}
	return defaultPriority
}

func applyConsolidation(v *models.Vehicle, best models.Listing, mapIndex map[string]models.CodeMapping) {
	maker, group, model, trim, grade := canonicalCodes(best, mapIndex)
	v.MakerCode = maker
	v.ModelGroupCode = group
	v.ModelCode = model
	v.TrimCode = trim
	v.GradeCode = grade

	v.Year = best.Year
	v.Mileage = best.Mileage
	v.Color = best.Color
	v.Transmission = best.Transmission
	v.Fuel = best.Fuel
	v.Region = best.Region
	v.Displacement = best.Displacement
	v.BodyType = best.BodyType
	if best.LastSeenDate.After(v.LastSeenDate) {
		v.LastSeenDate = best.LastSeenDate
	}
}

func canonicalCodes(l models.Listing, mapIndex map[string]models.CodeMapping) (maker, group, model, trim, grade *string) {
	key := mappingKey(l.Source, deref(l.MakerCode), deref(l.ModelGroupCode), deref(l.ModelCode), deref(l.TrimCode), deref(l.GradeCode))
	if m, ok := mapIndex[key]; ok {
		return m.MakerCode, m.ModelGroupCode, m.ModelCode, m.TrimCode, m.GradeCode
	}
	return l.MakerCode, l.ModelGroupCode, l.ModelCode, l.TrimCode, l.GradeCode
}

func mappingKey(source string, codes ...string) string {
	return source + "|" + strings.Join(codes, "|")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
