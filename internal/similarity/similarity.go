// Package similarity provides the single string-distance primitive all
// taxonomy matching reduces to: a Jaro-Winkler / token-Dice blend over
// normalized names.
package similarity

import "strings"

// Score returns a similarity in [0,1] between two normalized names.
// Blank input on either side scores 0. The blend weighs character
// similarity at 0.6 and whole-token overlap at 0.4, so reordered
// tokens still score high while unrelated names do not.
func Score(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	return 0.6*jaroWinkler(a, b) + 0.4*tokenDice(a, b)
}

func tokenDice(a, b string) float64 {
	as := strings.Fields(a)
	bs := strings.Fields(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(as))
	for _, t := range as {
		setA[t] = true
	}
	setB := make(map[string]bool, len(bs))
	for _, t := range bs {
		setB[t] = true
	}
	inter := 0
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	return 2 * float64(inter) / float64(len(setA)+len(setB))
}

func jaroWinkler(s1, s2 string) float64 {
	r1 := []rune(s1)
	r2 := []rune(s2)
	m, transpositions, prefix := matches(r1, r2)
	if m == 0 {
		return 0
	}
	fm := float64(m)
	j := (fm/float64(len(r1)) + fm/float64(len(r2)) + (fm-float64(transpositions))/fm) / 3
	if j < 0.7 {
		return j
	}
	// Winkler prefix boost, scale capped by the longer string.
	p := 0.1
	longer := len(r1)
	if len(r2) > longer {
		longer = len(r2)
	}
	scale := p
	if inv := 1.0 / float64(longer); inv < scale {
		scale = inv
	}
	return j + scale*float64(prefix)*(1-j)
}

func matches(r1, r2 []rune) (m, transpositions, prefix int) {
	max, min := r1, r2
	if len(r2) > len(r1) {
		max, min = r2, r1
	}
	window := len(max)/2 - 1
	if window < 0 {
		window = 0
	}

	matchFlags := make([]bool, len(max))
	minMatched := make([]bool, len(min))
	for i := range min {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > len(max) {
			hi = len(max)
		}
		for j := lo; j < hi; j++ {
			if !matchFlags[j] && min[i] == max[j] {
				matchFlags[j] = true
				minMatched[i] = true
				m++
				break
			}
		}
	}
	if m == 0 {
		return 0, 0, 0
	}

	ms1 := make([]rune, 0, m)
	for i := range min {
		if minMatched[i] {
			ms1 = append(ms1, min[i])
		}
	}
	ms2 := make([]rune, 0, m)
	for i := range max {
		if matchFlags[i] {
			ms2 = append(ms2, max[i])
		}
	}
	for i := range ms1 {
		if ms1[i] != ms2[i] {
			transpositions++
		}
	}
	transpositions /= 2

	limit := len(r1)
	if len(r2) < limit {
		limit = len(r2)
	}
	if limit > 4 {
		limit = 4
	}
	for i := 0; i < limit; i++ {
		if r1[i] != r2[i] {
			break
		}
		prefix++
	}
	return m, transpositions, prefix
}
