// Package textnorm canonicalizes platform-supplied taxonomy text so
// that maker/model/trim names from different marketplaces become
// comparable.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Level is the taxonomy depth the text belongs to. Levels above Grade
// get spec-noise stripping: trim/grade text legitimately carries
// displacement and drivetrain tokens, the coarser levels do not.
type Level int

const (
	LevelMaker Level = iota
	LevelModelGroup
	LevelModel
	LevelTrim
	LevelGrade
)

var (
	reBrackets = regexp.MustCompile(`[()\[\]{}]`)
	// Engine displacement ("1.6", "2.0") and the spaced LPI variant
	// must go before symbol stripping splits them apart.
	reDisplacement = regexp.MustCompile(`(?i)\d\.\d|LP\s?I`)
	reGeneration   = regexp.MustCompile(`(?i)(DN8|LF|NF)`)
	reCharset      = regexp.MustCompile(`[^0-9A-Za-z가-힣]+`)
)

// Fuel/drivetrain/transmission abbreviations that pollute
// cross-platform name comparison above the grade level.
var specNoiseTokens = map[string]bool{
	"HEV": true, "LPG": true, "EV": true,
	"디젤": true, "가솔린": true, "하이브리드": true, "전기": true,
	"오토": true, "수동": true, "AT": true, "MT": true, "DCT": true, "CVT": true,
	"4WD": true, "2WD": true, "AWD": true, "터보": true, "T": true,
}

// Normalize returns the canonical form of s for comparison at the
// given level. Total: any input, including empty, yields a valid
// (possibly empty) result, and equal inputs always yield equal outputs.
func Normalize(s string, level Level) string {
	if s == "" {
		return ""
	}
	x := norm.NFKC.String(s)
	x = reBrackets.ReplaceAllString(x, " ")
	if level != LevelGrade {
		x = reDisplacement.ReplaceAllString(x, " ")
	}
	// Generation codes glued to the model name ("쏘나타DN8") become
	// their own token.
	x = reGeneration.ReplaceAllString(x, " $1 ")

	fields := reCharset.Split(x, -1)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		t := strings.ToUpper(f)
		if t == "NEW" {
			continue
		}
		if level != LevelGrade && specNoiseTokens[t] {
			continue
		}
		out = append(out, t)
	}
	return strings.Join(out, " ")
}

var rePlate = regexp.MustCompile(`[^0-9가-힣]+`)

// NormalizePlate canonicalizes a vehicle registration number for use
// as the cross-platform dedup key: whitespace and punctuation removed,
// digits and hangul kept.
func NormalizePlate(s string) string {
	if s == "" {
		return ""
	}
	return rePlate.ReplaceAllString(strings.TrimSpace(s), "")
}
