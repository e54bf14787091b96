package resolver

import (
	"testing"

	"github.com/heesms/carizon/internal/models"
	"github.com/heesms/carizon/internal/repository"
)

func testThresholds() Thresholds {
	return Thresholds{Maker: 0.85, Group: 0.88, Model: 0.90, Trim: 0.90, Grade: 0.90, Commit: 0.93}
}

func strPtr(s string) *string { return &s }

func testSnapshot() *Snapshot {
	return &Snapshot{
		makers: []candidate{
			{code: "HD", nameNorm: "현대"},
			{code: "KI", nameNorm: "기아"},
		},
		groups: map[string][]candidate{
			"HD": {{code: "SN", nameNorm: "쏘나타"}, {code: "GR", nameNorm: "그랜저"}},
		},
		models: map[[2]string][]candidate{
			{"HD", "SN"}: {{code: "SN-DN8", nameNorm: "쏘나타 DN8"}},
		},
		trims: map[[3]string][]candidate{
			{"HD", "SN", "SN-DN8"}: {{code: "T-PREM", nameNorm: "프리미엄"}},
		},
		grades: map[[4]string][]candidate{
			{"HD", "SN", "SN-DN8", "T-PREM"}: {{code: "G-PLUS", nameNorm: "플러스"}},
		},
		plates: map[string]repository.PlateCodes{
			"12가3456": {
				PlateNo:        "12가3456",
				MakerCode:      strPtr("HD"),
				ModelGroupCode: strPtr("SN"),
				ModelCode:      strPtr("SN-DN8"),
			},
		},
	}
}

func TestResolveForcedWinsOverEverything(t *testing.T) {
	snap := testSnapshot()
	snap.forced = []Override{{
		Depth:        1,
		RawMakerCode: "RAW-HD",
		MakerCode:    strPtr("HD"),
	}}

	res := Resolve(snap, RawTuple{
		MakerCode: "RAW-HD",
		MakerName: "현대",
		PlateNo:   "12가3456",
	}, testThresholds())

	if res.MatchReason != models.ReasonForced {
		t.Fatalf("reason = %s, want %s", res.MatchReason, models.ReasonForced)
	}
	if res.Status != models.MappingAuto {
		t.Fatalf("status = %s, want AUTO", res.Status)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", res.Confidence)
	}
	if res.MakerCode == nil || *res.MakerCode != "HD" {
		t.Fatalf("maker = %v, want HD", res.MakerCode)
	}
}

func TestResolveForcedDepthMustMatchFully(t *testing.T) {
	snap := testSnapshot()
	snap.forced = []Override{{
		Depth:             2,
		RawMakerCode:      "RAW-HD",
		RawModelGroupCode: "RAW-GR",
		MakerCode:         strPtr("HD"),
		ModelGroupCode:    strPtr("GR"),
	}}

	res := Resolve(snap, RawTuple{
		MakerCode:      "RAW-HD",
		ModelGroupCode: "RAW-SN",
		MakerName:      "현대",
		ModelGroupName: "쏘나타",
	}, testThresholds())

	if res.MatchReason == models.ReasonForced {
		t.Fatalf("depth-2 override matched on a different group code")
	}
}

func TestResolvePlateShortcut(t *testing.T) {
	res := Resolve(testSnapshot(), RawTuple{
		MakerName: "완전다른이름",
		PlateNo:   "12가 3456",
	}, testThresholds())

	if res.MatchReason != models.ReasonPlateEqual {
		t.Fatalf("reason = %s, want %s", res.MatchReason, models.ReasonPlateEqual)
	}
	if res.Status != models.MappingAuto || res.Confidence != 1.0 {
		t.Fatalf("status/confidence = %s/%v, want AUTO/1.0", res.Status, res.Confidence)
	}
	if res.ModelCode == nil || *res.ModelCode != "SN-DN8" {
		t.Fatalf("model = %v, want SN-DN8", res.ModelCode)
	}
}

func TestResolveCascadeFullExactIsAuto(t *testing.T) {
	res := Resolve(testSnapshot(), RawTuple{
		MakerName:      "현대",
		ModelGroupName: "쏘나타",
		ModelName:      "쏘나타 DN8",
		TrimName:       "프리미엄",
		GradeName:      "플러스",
	}, testThresholds())

	if res.MatchReason != models.ReasonHierText {
		t.Fatalf("reason = %s, want %s", res.MatchReason, models.ReasonHierText)
	}
	if res.Confidence < 0.999 {
		t.Fatalf("confidence = %v, want ~1.0", res.Confidence)
	}
	if res.Status != models.MappingAuto {
		t.Fatalf("status = %s, want AUTO", res.Status)
	}
	if res.GradeCode == nil || *res.GradeCode != "G-PLUS" {
		t.Fatalf("grade = %v, want G-PLUS", res.GradeCode)
	}
}

func TestResolveCascadeWithoutTrimStaysReview(t *testing.T) {
	// Exact maker+group+model accumulate 0.70, below the commit bar.
	res := Resolve(testSnapshot(), RawTuple{
		MakerName:      "현대",
		ModelGroupName: "쏘나타",
		ModelName:      "쏘나타 DN8",
	}, testThresholds())

	if res.ModelCode == nil || *res.ModelCode != "SN-DN8" {
		t.Fatalf("model = %v, want SN-DN8", res.ModelCode)
	}
	if res.TrimCode != nil || res.GradeCode != nil {
		t.Fatalf("trim/grade resolved without input text")
	}
	if res.Status != models.MappingReview {
		t.Fatalf("status = %s, want REVIEW", res.Status)
	}
	if res.Confidence < 0.699 || res.Confidence > 0.701 {
		t.Fatalf("confidence = %v, want 0.70", res.Confidence)
	}
}

func TestResolvePartialResolutionRetained(t *testing.T) {
	snap := testSnapshot()
	res := Resolve(snap, RawTuple{
		MakerName:      "기아",
		ModelGroupName: "쏘렌토",
	}, testThresholds())

	if res.MakerCode == nil || *res.MakerCode != "KI" {
		t.Fatalf("maker = %v, want KI", res.MakerCode)
	}
	if res.ModelGroupCode != nil {
		t.Fatalf("group resolved with no candidates under KI")
	}
	if res.Status != models.MappingReview {
		t.Fatalf("status = %s, want REVIEW", res.Status)
	}
}

func TestResolveNothingMatches(t *testing.T) {
	res := Resolve(testSnapshot(), RawTuple{MakerName: "알수없는제조사"}, testThresholds())
	if res.MakerCode != nil {
		t.Fatalf("maker = %v, want nil", res.MakerCode)
	}
	if res.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", res.Confidence)
	}
	if res.Status != models.MappingReview {
		t.Fatalf("status = %s, want REVIEW", res.Status)
	}
}

func TestResolveDeterministic(t *testing.T) {
	tuple := RawTuple{
		MakerName:      "현대",
		ModelGroupName: "쏘나타",
		ModelName:      "쏘나타 DN8",
	}
	snap := testSnapshot()
	first := Resolve(snap, tuple, testThresholds())
	for i := 0; i < 5; i++ {
		again := Resolve(snap, tuple, testThresholds())
		if *again.ModelCode != *first.ModelCode || again.Confidence != first.Confidence {
			t.Fatalf("resolution drifted on re-run")
		}
	}
}
