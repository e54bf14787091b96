package resolver

import (
	"context"

	"github.com/heesms/carizon/internal/repository"
	"github.com/heesms/carizon/internal/textnorm"
)

// candidate is one dictionary entry with its name pre-normalized for
// matching.
type candidate struct {
	code     string
	nameNorm string
}

// Snapshot is the in-memory matching state for one resolution run:
// dictionaries indexed by parent chain, forced overrides, and the
// reference-source plate index. Built once per run and read-only
// afterwards, so concurrent runs over different sources never share
// mutable state.
type Snapshot struct {
	makers []candidate
	groups map[string][]candidate
	models map[[2]string][]candidate
	trims  map[[3]string][]candidate
	grades map[[4]string][]candidate

	// Sorted by depth descending so the most specific override wins.
	forced []Override

	plates map[string]repository.PlateCodes
}

// Override is one forced mapping row reduced to match inputs and
// outputs.
type Override struct {
	Depth int

	RawMakerCode      string
	RawModelGroupCode string
	RawModelCode      string
	RawTrimCode       string
	RawGradeCode      string

	MakerCode      *string
	ModelGroupCode *string
	ModelCode      *string
	TrimCode       *string
	GradeCode      *string
}

// LoadSnapshot reads the dictionaries, the forced overrides for the
// source, and the reference-source plate index.
func LoadSnapshot(ctx context.Context, repo repository.Repository, source, refSource string) (*Snapshot, error) {
	snap := &Snapshot{
		groups: make(map[string][]candidate),
		models: make(map[[2]string][]candidate),
		trims:  make(map[[3]string][]candidate),
		grades: make(map[[4]string][]candidate),
		plates: make(map[string]repository.PlateCodes),
	}

	makers, err := repo.LoadMakers(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range makers {
		snap.makers = append(snap.makers, candidate{
			code:     m.MakerCode,
			nameNorm: textnorm.Normalize(m.MakerName, textnorm.LevelMaker),
		})
	}

	groups, err := repo.LoadModelGroups(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		snap.groups[g.MakerCode] = append(snap.groups[g.MakerCode], candidate{
			code:     g.ModelGroupCode,
			nameNorm: textnorm.Normalize(g.ModelGroupName, textnorm.LevelModelGroup),
		})
	}

	mods, err := repo.LoadModels(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range mods {
		key := [2]string{m.MakerCode, m.ModelGroupCode}
		snap.models[key] = append(snap.models[key], candidate{
			code:     m.ModelCode,
			nameNorm: textnorm.Normalize(m.ModelName, textnorm.LevelModel),
		})
	}

	trims, err := repo.LoadTrims(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range trims {
		key := [3]string{t.MakerCode, t.ModelGroupCode, t.ModelCode}
		snap.trims[key] = append(snap.trims[key], candidate{
			code:     t.TrimCode,
			nameNorm: textnorm.Normalize(t.TrimName, textnorm.LevelTrim),
		})
	}

	grades, err := repo.LoadGrades(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range grades {
		key := [4]string{g.MakerCode, g.ModelGroupCode, g.ModelCode, g.TrimCode}
		snap.grades[key] = append(snap.grades[key], candidate{
			code:     g.GradeCode,
			nameNorm: textnorm.Normalize(g.GradeName, textnorm.LevelGrade),
		})
	}

	forced, err := repo.LoadForcedMappings(ctx, source)
	if err != nil {
		return nil, err
	}
	for _, f := range forced {
		snap.forced = append(snap.forced, Override{
			Depth:             f.Depth,
			RawMakerCode:      deref(f.RawMakerCode),
			RawModelGroupCode: deref(f.RawModelGroupCode),
			RawModelCode:      deref(f.RawModelCode),
			RawTrimCode:       deref(f.RawTrimCode),
			RawGradeCode:      deref(f.RawGradeCode),
			MakerCode:         f.MakerCode,
			ModelGroupCode:    f.ModelGroupCode,
			ModelCode:         f.ModelCode,
			TrimCode:          f.TrimCode,
			GradeCode:         f.GradeCode,
		})
	}

	if refSource != "" && refSource != source {
		plateRows, err := repo.LoadPlateIndex(ctx, refSource)
		if err != nil {
			return nil, err
		}
		for _, p := range plateRows {
			key := textnorm.NormalizePlate(p.PlateNo)
			if key == "" {
				continue
			}
			snap.plates[key] = p
		}
	}

	return snap, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
