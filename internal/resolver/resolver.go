// Package resolver maps platform-specific taxonomy tuples onto the
// canonical hierarchy. Precedence per tuple: forced override, then the
// reference-source plate shortcut, then a cascading parent-constrained
// fuzzy match over the dictionaries.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heesms/carizon/internal/config"
	"github.com/heesms/carizon/internal/models"
	"github.com/heesms/carizon/internal/repository"
	"github.com/heesms/carizon/internal/similarity"
	"github.com/heesms/carizon/internal/textnorm"
)

// Resolution scopes.
const (
	ScopeToday = "TODAY"
	ScopeFull  = "FULL"
)

// Per-level weights of the accumulated confidence. A sum, not a
// product, so partially resolved tuples still score comparably.
const (
	weightMaker = 0.15
	weightGroup = 0.25
	weightModel = 0.30
	weightTrim  = 0.15
	weightGrade = 0.15
)

// RawTuple is one platform taxonomy observation. Codes are the
// platform's own identifiers, names its display strings; either may be
// absent below some level.
type RawTuple struct {
	MakerCode      string
	ModelGroupCode string
	ModelCode      string
	TrimCode       string
	GradeCode      string

	MakerName      string
	ModelGroupName string
	ModelName      string
	TrimName       string
	GradeName      string

	PlateNo string
}

// Key identifies the tuple for dedup and for the mapping table.
func (t RawTuple) Key() string {
	return strings.Join([]string{t.MakerCode, t.ModelGroupCode, t.ModelCode, t.TrimCode, t.GradeCode}, "|")
}

// Resolution is the outcome for one tuple. Nil code pointers mean the
// level stayed unresolved.
type Resolution struct {
	MakerCode      *string
	ModelGroupCode *string
	ModelCode      *string
	TrimCode       *string
	GradeCode      *string

	Confidence  float64
	MatchReason string
	Status      string
}

// Thresholds are the per-level minimum scores plus the overall commit
// score above which a fuzzy result is trusted unattended.
type Thresholds struct {
	Maker  float64
	Group  float64
	Model  float64
	Trim   float64
	Grade  float64
	Commit float64
}

// Resolve maps one tuple against the snapshot. Deterministic for a
// fixed snapshot, so re-runs are idempotent.
func Resolve(snap *Snapshot, tuple RawTuple, th Thresholds) Resolution {
	if res, ok := resolveForced(snap, tuple); ok {
		return res
	}
	if res, ok := resolvePlate(snap, tuple); ok {
		return res
	}
	return resolveCascade(snap, tuple, th)
}

func resolveForced(snap *Snapshot, tuple RawTuple) (Resolution, bool) {
	for _, f := range snap.forced {
		if f.RawMakerCode != tuple.MakerCode {
			continue
		}
		if f.Depth >= 2 && f.RawModelGroupCode != tuple.ModelGroupCode {
			continue
		}
		if f.Depth >= 3 && f.RawModelCode != tuple.ModelCode {
			continue
		}
		if f.Depth >= 4 && f.RawTrimCode != tuple.TrimCode {
			continue
		}
		if f.Depth >= 5 && f.RawGradeCode != tuple.GradeCode {
			continue
		}
		return Resolution{
			MakerCode:      f.MakerCode,
			ModelGroupCode: f.ModelGroupCode,
			ModelCode:      f.ModelCode,
			TrimCode:       f.TrimCode,
			GradeCode:      f.GradeCode,
			Confidence:     1.0,
			MatchReason:    models.ReasonForced,
			Status:         models.MappingAuto,
		}, true
	}
	return Resolution{}, false
}

func resolvePlate(snap *Snapshot, tuple RawTuple) (Resolution, bool) {
	plate := textnorm.NormalizePlate(tuple.PlateNo)
	if plate == "" {
		return Resolution{}, false
	}
	ref, ok := snap.plates[plate]
	if !ok || ref.MakerCode == nil {
		return Resolution{}, false
	}
	return Resolution{
		MakerCode:      ref.MakerCode,
		ModelGroupCode: ref.ModelGroupCode,
		ModelCode:      ref.ModelCode,
		TrimCode:       ref.TrimCode,
		GradeCode:      ref.GradeCode,
		Confidence:     1.0,
		MatchReason:    models.ReasonPlateEqual,
		Status:         models.MappingAuto,
	}, true
}

func resolveCascade(snap *Snapshot, tuple RawTuple, th Thresholds) Resolution {
	res := Resolution{MatchReason: models.ReasonHierText, Status: models.MappingReview}

	makerCode, score, ok := bestMatch(snap.makers, textnorm.Normalize(tuple.MakerName, textnorm.LevelMaker), th.Maker)
	if !ok {
		return res
	}
	res.MakerCode = &makerCode
	res.Confidence += weightMaker * score

	groupCode, score, ok := bestMatch(snap.groups[makerCode],
		textnorm.Normalize(tuple.ModelGroupName, textnorm.LevelModelGroup), th.Group)
	if !ok {
		return res
	}
	res.ModelGroupCode = &groupCode
	res.Confidence += weightGroup * score

	modelCode, score, ok := bestMatch(snap.models[[2]string{makerCode, groupCode}],
		textnorm.Normalize(tuple.ModelName, textnorm.LevelModel), th.Model)
	if !ok {
		return res
	}
	res.ModelCode = &modelCode
	res.Confidence += weightModel * score

	// Trim and grade are optional on many platforms; absence simply
	// stops the cascade without penalizing the accumulated score.
	if strings.TrimSpace(tuple.TrimName) == "" {
		return finishCascade(res, th)
	}
	trimCode, score, ok := bestMatch(snap.trims[[3]string{makerCode, groupCode, modelCode}],
		textnorm.Normalize(tuple.TrimName, textnorm.LevelTrim), th.Trim)
	if !ok {
		return finishCascade(res, th)
	}
	res.TrimCode = &trimCode
	res.Confidence += weightTrim * score

	if strings.TrimSpace(tuple.GradeName) == "" {
		return finishCascade(res, th)
	}
	gradeCode, score, ok := bestMatch(snap.grades[[4]string{makerCode, groupCode, modelCode, trimCode}],
		textnorm.Normalize(tuple.GradeName, textnorm.LevelGrade), th.Grade)
	if !ok {
		return finishCascade(res, th)
	}
	res.GradeCode = &gradeCode
	res.Confidence += weightGrade * score

	return finishCascade(res, th)
}

func finishCascade(res Resolution, th Thresholds) Resolution {
	if res.Confidence >= th.Commit {
		res.Status = models.MappingAuto
	}
	return res
}

// bestMatch scores the normalized name against every candidate and
// returns the best one at or above the threshold. Ties keep the first
// candidate in dictionary order for determinism.
func bestMatch(cands []candidate, nameNorm string, threshold float64) (string, float64, bool) {
	if nameNorm == "" || len(cands) == 0 {
		return "", 0, false
	}
	bestCode := ""
	bestScore := -1.0
	for _, c := range cands {
		sc := similarity.Score(nameNorm, c.nameNorm)
		if sc > bestScore {
			bestCode, bestScore = c.code, sc
		}
	}
	if bestScore < threshold {
		return "", 0, false
	}
	return bestCode, bestScore, true
}

// Service runs resolution passes over listings.
type Service struct {
	repo   repository.Repository
	cfg    config.ResolverConfig
	logger *zap.Logger
}

func NewService(repo repository.Repository, cfg config.ResolverConfig, logger *zap.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, logger: logger}
}

func (s *Service) thresholds() Thresholds {
	return Thresholds{
		Maker:  s.cfg.MakerThreshold,
		Group:  s.cfg.GroupThreshold,
		Model:  s.cfg.ModelThreshold,
		Trim:   s.cfg.TrimThreshold,
		Grade:  s.cfg.GradeThreshold,
		Commit: s.cfg.CommitThreshold,
	}
}

// Run resolves every distinct raw tuple observed on source listings and
// upserts the mapping table. Scope TODAY limits the scan to listings
// seen on businessDate; FULL walks all of them. Returns the number of
// mappings written.
func (s *Service) Run(ctx context.Context, source, scope string, businessDate time.Time) (int, error) {
	if scope != ScopeToday && scope != ScopeFull {
		return 0, fmt.Errorf("resolver: unknown scope %q", scope)
	}

	snap, err := LoadSnapshot(ctx, s.repo, source, s.cfg.ReferenceSource)
	if err != nil {
		return 0, fmt.Errorf("resolver: load snapshot: %w", err)
	}
	th := s.thresholds()

	var seenOn *time.Time
	if scope == ScopeToday {
		seenOn = &businessDate
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	today := businessDate
	seen := make(map[string]bool)
	var pending []models.CodeMapping
	resolved := 0
	var cursor uint64

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		batch := pending
		pending = nil
		if err := s.repo.InTx(ctx, func(tx *gorm.DB) error {
			return s.repo.UpsertCodeMappingsTx(ctx, tx, batch)
		}); err != nil {
			return err
		}
		resolved += len(batch)
		return nil
	}

	for {
		page, err := s.repo.ListListingsAfter(ctx, repository.ListListingsParams{
			Source:  source,
			SeenOn:  seenOn,
			AfterID: cursor,
			Limit:   batchSize,
		})
		if err != nil {
			return resolved, fmt.Errorf("resolver: list listings: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, l := range page {
			cursor = l.ID
			tuple := tupleFromListing(l)
			if tuple.MakerCode == "" && tuple.MakerName == "" {
				continue
			}
			if seen[tuple.Key()] {
				continue
			}
			seen[tuple.Key()] = true

			res := Resolve(snap, tuple, th)
			pending = append(pending, buildMapping(source, tuple, res, today))
			if len(pending) >= batchSize {
				if err := flush(); err != nil {
					return resolved, fmt.Errorf("resolver: upsert mappings: %w", err)
				}
			}
		}
		if len(page) < batchSize {
			break
		}
	}
	if err := flush(); err != nil {
		return resolved, fmt.Errorf("resolver: upsert mappings: %w", err)
	}

	s.logger.Info("taxonomy resolution finished",
		zap.String("source", source),
		zap.String("scope", scope),
		zap.Int("resolved", resolved),
	)
	return resolved, nil
}

func tupleFromListing(l models.Listing) RawTuple {
	return RawTuple{
		MakerCode:      deref(l.MakerCode),
		ModelGroupCode: deref(l.ModelGroupCode),
		ModelCode:      deref(l.ModelCode),
		TrimCode:       deref(l.TrimCode),
		GradeCode:      deref(l.GradeCode),
		MakerName:      deref(l.MakerName),
		ModelGroupName: deref(l.ModelGroupName),
		ModelName:      deref(l.ModelName),
		TrimName:       deref(l.TrimName),
		GradeName:      deref(l.GradeName),
		PlateNo:        deref(l.PlateNo),
	}
}

func buildMapping(source string, tuple RawTuple, res Resolution, today time.Time) models.CodeMapping {
	reason := res.MatchReason
	m := models.CodeMapping{
		Source:            source,
		RawMakerCode:      tuple.MakerCode,
		RawModelGroupCode: tuple.ModelGroupCode,
		RawModelCode:      tuple.ModelCode,
		RawTrimCode:       tuple.TrimCode,
		RawGradeCode:      tuple.GradeCode,

		MakerNameNorm:      nilIfEmpty(textnorm.Normalize(tuple.MakerName, textnorm.LevelMaker)),
		ModelGroupNameNorm: nilIfEmpty(textnorm.Normalize(tuple.ModelGroupName, textnorm.LevelModelGroup)),
		ModelNameNorm:      nilIfEmpty(textnorm.Normalize(tuple.ModelName, textnorm.LevelModel)),
		TrimNameNorm:       nilIfEmpty(textnorm.Normalize(tuple.TrimName, textnorm.LevelTrim)),
		GradeNameNorm:      nilIfEmpty(textnorm.Normalize(tuple.GradeName, textnorm.LevelGrade)),

		MakerCode:      res.MakerCode,
		ModelGroupCode: res.ModelGroupCode,
		ModelCode:      res.ModelCode,
		TrimCode:       res.TrimCode,
		GradeCode:      res.GradeCode,

		Confidence: res.Confidence,
		Status:     res.Status,
		FirstSeen:  today,
		LastSeen:   today,
	}
	if reason != "" {
		m.MatchReason = &reason
	}
	if plate := textnorm.NormalizePlate(tuple.PlateNo); plate != "" {
		m.RefPlateNo = &plate
	}
	return m
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
