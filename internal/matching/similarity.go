package matching

import "strings"

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"will": true, "of": true, "in": true, "on": true, "to": true, "for": true,
	"by": true, "at": true, "that": true, "this": true, "it": true,
	"and": true, "or": true, "if": true,
}

func tokenSet(normalizedTitle string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(normalizedTitle) {
		if stopWords[w] {
			continue
		}
		set[w] = true
	}
	return set
}

// jaccard computes word-set Jaccard similarity on two already-normalized
// titles, after stop-word removal.
func jaccard(normA, normB string) float64 {
	setA := tokenSet(normA)
	setB := tokenSet(normB)

	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// bigramMultiset returns the character-bigram multiset of s, counted by
// frequency. Strings shorter than 2 runes produce an empty multiset.
func bigramMultiset(s string) map[string]int {
	runes := []rune(s)
	counts := make(map[string]int)
	for i := 0; i+1 < len(runes); i++ {
		counts[string(runes[i:i+2])]++
	}
	return counts
}

// dice computes the Sorensen-Dice coefficient over character bigram
// multisets (repeated bigrams counted), on the raw input strings.
func dice(a, b string) float64 {
	bigramsA := bigramMultiset(a)
	bigramsB := bigramMultiset(b)

	totalA, totalB := 0, 0
	for _, c := range bigramsA {
		totalA += c
	}
	for _, c := range bigramsB {
		totalB += c
	}

	if totalA == 0 || totalB == 0 {
		return 0
	}

	overlap := 0
	for bg, countA := range bigramsA {
		if countB, ok := bigramsB[bg]; ok {
			if countA < countB {
				overlap += countA
			} else {
				overlap += countB
			}
		}
	}

	return 2 * float64(overlap) / float64(totalA+totalB)
}

// composite is max(jaccard, dice) computed on titles already normalized.
func composite(normA, normB string) float64 {
	j := jaccard(normA, normB)
	d := dice(normA, normB)
	if j > d {
		return j
	}
	return d
}
