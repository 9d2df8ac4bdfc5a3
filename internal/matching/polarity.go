package matching

import (
	"regexp"
	"strings"
)

var negationRe = regexp.MustCompile(`(?i)\b(not|won't|will not|no)\b`)

// antonymClasses groups complementary words that flip the sense of a claim
// about the same numeric anchor.
var antonymClasses = [][2]string{
	{"above", "below"},
	{"over", "under"},
	{"more", "less"},
	{"before", "after"},
}

// PolarityResult is the output of detectPolarity.
type PolarityResult struct {
	Flip       bool
	Confidence float64
}

// detectPolarity decides whether titleA and titleB describe complementary
// (YES on one = NO on the other) claims about the same event.
func detectPolarity(titleA, titleB string, outcomesA, outcomesB []string) PolarityResult {
	if len(outcomesA) == 2 && len(outcomesB) == 2 {
		a0, a1 := strings.ToLower(outcomesA[0]), strings.ToLower(outcomesA[1])
		b0, b1 := strings.ToLower(outcomesB[0]), strings.ToLower(outcomesB[1])
		if a0 == b1 && a1 == b0 {
			return PolarityResult{Flip: true, Confidence: 0.95}
		}
	}

	negA := negationRe.MatchString(titleA)
	negB := negationRe.MatchString(titleB)
	if negA != negB {
		return PolarityResult{Flip: true, Confidence: 0.85}
	}

	lowerA := strings.ToLower(titleA)
	lowerB := strings.ToLower(titleB)
	for _, pair := range antonymClasses {
		hasA0 := strings.Contains(lowerA, pair[0])
		hasA1 := strings.Contains(lowerA, pair[1])
		hasB0 := strings.Contains(lowerB, pair[0])
		hasB1 := strings.Contains(lowerB, pair[1])
		if (hasA0 && !hasA1 && hasB1 && !hasB0) || (hasA1 && !hasA0 && hasB0 && !hasB1) {
			return PolarityResult{Flip: true, Confidence: 0.70}
		}
	}

	return PolarityResult{Flip: false, Confidence: 0.0}
}
