package similarity

import "testing"

func TestScoreBounds(t *testing.T) {
	tests := []struct{ a, b string }{
		{"", ""},
		{"현대", ""},
		{"", "기아"},
		{"   ", "기아"},
	}
	for _, tt := range tests {
		if got := Score(tt.a, tt.b); got != 0 {
			t.Fatalf("Score(%q, %q) = %v, want 0", tt.a, tt.b, got)
		}
	}
}

func TestScoreIdentity(t *testing.T) {
	for _, s := range []string{"현대", "쏘나타 DN8", "K5", "BMW 5시리즈"} {
		if got := Score(s, s); got != 1.0 {
			t.Fatalf("Score(%q, %q) = %v, want 1.0", s, s, got)
		}
	}
}

func TestScoreRange(t *testing.T) {
	pairs := []struct{ a, b string }{
		{"쏘나타", "쏘나타 DN8"},
		{"그랜저", "아반떼"},
		{"K5", "K7"},
		{"BENZ", "BMW"},
	}
	for _, p := range pairs {
		got := Score(p.a, p.b)
		if got < 0 || got > 1 {
			t.Fatalf("Score(%q, %q) = %v out of [0,1]", p.a, p.b, got)
		}
	}
}

func TestScoreOrdering(t *testing.T) {
	// A near-identical name must outrank an unrelated one.
	near := Score("쏘나타 DN8", "쏘나타")
	far := Score("쏘나타 DN8", "모닝")
	if near <= far {
		t.Fatalf("near=%v far=%v, want near > far", near, far)
	}
	if near < 0.7 {
		t.Fatalf("near=%v, want >= 0.7 for shared-token names", near)
	}
}

func TestTokenDice(t *testing.T) {
	if got := tokenDice("A B", "B C"); got != 0.5 {
		t.Fatalf("tokenDice = %v, want 0.5", got)
	}
	if got := tokenDice("A B", "A B"); got != 1.0 {
		t.Fatalf("tokenDice = %v, want 1.0", got)
	}
}
