package textnorm

import "testing"

func TestNormalizeBasic(t *testing.T) {
	tests := []struct {
		in    string
		level Level
		want  string
	}{
		{"현대", LevelMaker, "현대"},
		{"  현대  ", LevelMaker, "현대"},
		{"쏘나타(DN8)", LevelModelGroup, "쏘나타 DN8"},
		{"쏘나타DN8", LevelModelGroup, "쏘나타 DN8"},
		{"NEW 쏘나타", LevelModelGroup, "쏘나타"},
		{"그랜저 [HG]", LevelModelGroup, "그랜저 HG"},
		{"k5", LevelModel, "K5"},
		{"", LevelMaker, ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in, tt.level); got != tt.want {
			t.Fatalf("Normalize(%q, %d) = %q, want %q", tt.in, tt.level, got, tt.want)
		}
	}
}

func TestNormalizeStripsSpecNoiseAboveGrade(t *testing.T) {
	tests := []struct {
		in    string
		level Level
		want  string
	}{
		{"아반떼 1.6 가솔린", LevelModel, "아반떼"},
		{"아반떼 1.6 가솔린", LevelGrade, "아반떼 1 6 가솔린"},
		{"쏘렌토 디젤 2.2 AWD", LevelModel, "쏘렌토"},
		{"그랜저 HEV", LevelModelGroup, "그랜저"},
		{"그랜저 HEV", LevelGrade, "그랜저 HEV"},
		{"K5 LPI", LevelModel, "K5"},
		{"K5 LP I", LevelModel, "K5"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in, tt.level); got != tt.want {
			t.Fatalf("Normalize(%q, %d) = %q, want %q", tt.in, tt.level, got, tt.want)
		}
	}
}

func TestNormalizeStable(t *testing.T) {
	in := "NEW 쏘나타 DN8 2.0 가솔린 (일반)"
	first := Normalize(in, LevelModel)
	for i := 0; i < 3; i++ {
		if got := Normalize(in, LevelModel); got != first {
			t.Fatalf("unstable: %q then %q", first, got)
		}
	}
	// Normalizing an already-normalized string is a no-op.
	if got := Normalize(first, LevelModel); got != first {
		t.Fatalf("not idempotent: %q -> %q", first, got)
	}
}

func TestNormalizePlate(t *testing.T) {
	tests := []struct{ in, want string }{
		{"12가 3456", "12가3456"},
		{" 123허-7890 ", "123허7890"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePlate(tt.in); got != tt.want {
			t.Fatalf("NormalizePlate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
