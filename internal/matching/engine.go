package matching

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SimilarityThreshold is the minimum composite score for a Pass 3 match.
const SimilarityThreshold = 0.85

// TemporalWindowMs bounds how far apart two resolution dates may be and
// still be considered the same event.
const TemporalWindowMs = 30 * 24 * 60 * 60 * 1000

var categorySynonyms = map[string]string{
	"crypto": "crypto", "cryptocurrency": "crypto", "defi": "crypto",
	"politics": "politics", "political": "politics", "elections": "politics",
}

func normalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if canon, ok := categorySynonyms[c]; ok {
		return canon
	}
	return c
}

// Engine runs the deterministic three-pass matcher. CurrentYear feeds the
// normalizer's year-stripping step.
type Engine struct {
	CurrentYear int
}

// NewEngine builds a matching Engine pinned to the given reference year
// (used to strip the ambient "2026" token from titles/params).
func NewEngine(currentYear int) *Engine {
	return &Engine{CurrentYear: currentYear}
}

// Match runs Pass 1 (conditionId), Pass 2 (template), and Pass 3
// (similarity with guards) over A and B, in that order, enforcing the
// one-to-one constraint across all three passes.
func (e *Engine) Match(a, b []MarketInput) []MatchResult {
	matchedA := make(map[int]bool, len(a))
	matchedB := make(map[int]bool, len(b))
	var results []MatchResult

	results = append(results, e.passConditionID(a, b, matchedA, matchedB)...)
	results = append(results, e.passTemplate(a, b, matchedA, matchedB)...)
	results = append(results, e.passSimilarity(a, b, matchedA, matchedB)...)

	return results
}

// passConditionID is Pass 1: unique join on non-empty conditionId. Only
// runs if both lists contain at least one non-empty conditionId.
func (e *Engine) passConditionID(a, b []MarketInput, matchedA, matchedB map[int]bool) []MatchResult {
	hasA, hasB := false, false
	for _, m := range a {
		if m.ConditionID != "" {
			hasA = true
			break
		}
	}
	for _, m := range b {
		if m.ConditionID != "" {
			hasB = true
			break
		}
	}
	if !hasA || !hasB {
		return nil
	}

	// First occurrence of each conditionId in A wins.
	byCondition := make(map[string]int)
	for i, m := range a {
		if m.ConditionID == "" {
			continue
		}
		if _, exists := byCondition[m.ConditionID]; !exists {
			byCondition[m.ConditionID] = i
		}
	}

	var results []MatchResult
	for j, mb := range b {
		if mb.ConditionID == "" {
			continue
		}
		i, ok := byCondition[mb.ConditionID]
		if !ok || matchedA[i] {
			continue
		}
		ma := a[i]
		polarity := detectPolarity(ma.Title, mb.Title, ma.Outcomes, mb.Outcomes)
		results = append(results, MatchResult{
			MarketA:      ma,
			MarketB:      mb,
			MatchType:    MatchConditionID,
			Similarity:   1,
			PolarityFlip: polarity.Flip,
		})
		matchedA[i] = true
		matchedB[j] = true
	}
	return results
}

// passTemplate is Pass 2: bucket both sides by template+entity+params key,
// derived fresh from each element (never inherited across id collisions).
func (e *Engine) passTemplate(a, b []MarketInput, matchedA, matchedB map[int]bool) []MatchResult {
	bBuckets := make(map[string][]int)
	for j, mb := range b {
		if matchedB[j] {
			continue
		}
		tpl := extractTemplate(mb.Title, e.CurrentYear)
		if tpl == nil {
			continue
		}
		key := tpl.Key()
		bBuckets[key] = append(bBuckets[key], j)
	}

	var results []MatchResult
	for i, ma := range a {
		if matchedA[i] {
			continue
		}
		tplA := extractTemplate(ma.Title, e.CurrentYear)
		if tplA == nil {
			continue
		}
		key := tplA.Key()
		bucket := bBuckets[key]
		for idx, j := range bucket {
			if matchedB[j] {
				continue
			}
			mb := b[j]
			polarity := detectPolarity(ma.Title, mb.Title, ma.Outcomes, mb.Outcomes)
			results = append(results, MatchResult{
				MarketA:      ma,
				MarketB:      mb,
				MatchType:    MatchTemplate,
				Similarity:   1,
				PolarityFlip: polarity.Flip,
			})
			matchedA[i] = true
			matchedB[j] = true
			bBuckets[key] = append(bucket[:idx:idx], bucket[idx+1:]...)
			break
		}
	}
	return results
}

type candidatePair struct {
	aIdx, bIdx int
	sim        float64
}

// passSimilarity is Pass 3: guard filters, then a stable one-to-one
// matching among surviving pairs.
func (e *Engine) passSimilarity(a, b []MarketInput, matchedA, matchedB map[int]bool) []MatchResult {
	// Precompute normalized titles and templates once.
	normA := make([]string, len(a))
	tplA := make([]*Template, len(a))
	for i, m := range a {
		normA[i] = normalizeTitle(m.Title, e.CurrentYear)
		tplA[i] = extractTemplate(m.Title, e.CurrentYear)
	}
	normB := make([]string, len(b))
	tplB := make([]*Template, len(b))
	for j, m := range b {
		normB[j] = normalizeTitle(m.Title, e.CurrentYear)
		tplB[j] = extractTemplate(m.Title, e.CurrentYear)
	}

	// candidates[i] holds every surviving B index for A[i], sorted by
	// (sim desc, b input order) so "stable" tie-breaking falls out of
	// a single linear scan per A.
	candidates := make(map[int][]candidatePair)

	for i := range a {
		if matchedA[i] {
			continue
		}
		for j := range b {
			if matchedB[j] {
				continue
			}

			// Guard 1: template guard.
			if tplA[i] != nil && tplB[j] != nil && tplA[i].Name == tplB[j].Name {
				continue
			}

			// Guard 2: category filter.
			catA := normalizeCategory(a[i].Category)
			catB := normalizeCategory(b[j].Category)
			if catA != "" && catB != "" && catA != catB {
				continue
			}

			// Guard 3: temporal filter.
			if a[i].ResolvesAt != nil && b[j].ResolvesAt != nil {
				diff := *a[i].ResolvesAt - *b[j].ResolvesAt
				if diff < 0 {
					diff = -diff
				}
				if diff > TemporalWindowMs {
					continue
				}
			}

			// Guard 4: similarity.
			sim := composite(normA[i], normB[j])
			if sim < SimilarityThreshold {
				continue
			}

			candidates[i] = append(candidates[i], candidatePair{aIdx: i, bIdx: j, sim: sim})
		}
	}

	var results []MatchResult
	for i := range a {
		if matchedA[i] {
			continue
		}
		pairs := candidates[i]
		if len(pairs) == 0 {
			continue
		}

		best := -1
		bestSim := -1.0
		for _, c := range pairs {
			if matchedB[c.bIdx] {
				continue
			}
			if c.sim > bestSim {
				bestSim = c.sim
				best = c.bIdx
			}
			// ties broken by B input order: since we scan b in
			// ascending order when building candidates, the first
			// max found is already the lowest-index tie.
		}
		if best == -1 {
			continue
		}

		ma, mb := a[i], b[best]
		polarity := detectPolarity(ma.Title, mb.Title, ma.Outcomes, mb.Outcomes)
		results = append(results, MatchResult{
			MarketA:      ma,
			MarketB:      mb,
			MatchType:    MatchTitleSimilarity,
			Similarity:   bestSim,
			PolarityFlip: polarity.Flip,
		})
		matchedA[i] = true
		matchedB[best] = true
	}
	return results
}

// Fingerprint derives the canonical 32-byte hex identifier for a matched
// set, per the precedence rule: Predict conditionId, else Probable
// conditionId, else Opinion numeric id cast to hex.
func Fingerprint(predictConditionID, probableConditionID, opinionID string) string {
	switch {
	case predictConditionID != "":
		return padFingerprint(predictConditionID)
	case probableConditionID != "":
		return padFingerprint(probableConditionID)
	default:
		return padFingerprint(hex.EncodeToString([]byte(opinionID)))
	}
}

// padFingerprint ensures a stable 32-byte hex representation: if the input
// is already a 0x-prefixed 32-byte hex string it is passed through
// (lowercased); otherwise it is hashed into one with SHA-256.
func padFingerprint(s string) string {
	trimmed := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(trimmed) == 64 && isHex(trimmed) {
		return "0x" + trimmed
	}
	sum := sha256.Sum256([]byte(s))
	return "0x" + hex.EncodeToString(sum[:])
}

func isHex(s string) bool {
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}
