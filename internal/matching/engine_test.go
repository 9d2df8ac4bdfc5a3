package matching

import "testing"

func int64ptr(v int64) *int64 { return &v }

func TestMatchConditionIDPassWins(t *testing.T) {
	a := []MarketInput{{ID: "a1", Title: "Will BTC hit 100k?", ConditionID: "0xabc", Category: "crypto"}}
	b := []MarketInput{{ID: "b1", Title: "Bitcoin above one hundred thousand dollars", ConditionID: "0xabc", Category: "crypto"}}

	results := NewEngine(2026).Match(a, b)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].MatchType != MatchConditionID {
		t.Fatalf("MatchType = %v, want conditionId", results[0].MatchType)
	}
	if results[0].Similarity != 1 {
		t.Fatalf("Similarity = %v, want 1 for conditionId match", results[0].Similarity)
	}
}

func TestMatchTemplateEqualityOverridesLooseProse(t *testing.T) {
	a := []MarketInput{{ID: "a1", Title: "Will EdgeX FDV be above $4B?", Category: "crypto"}}
	b := []MarketInput{
		{ID: "b1", Title: "Something totally unrelated about EdgeX volume", Category: "crypto"},
		{ID: "b2", Title: "EdgeX FDV above 4 billion?", Category: "crypto"},
	}

	results := NewEngine(2026).Match(a, b)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].MarketB.ID != "b2" {
		t.Fatalf("matched B.ID = %q, want b2 (the template-equal title)", results[0].MarketB.ID)
	}
	if results[0].MatchType != MatchTemplate {
		t.Fatalf("MatchType = %v, want templateMatch", results[0].MatchType)
	}
}

func TestMatchTemplateGuardBlocksSimilarityFallback(t *testing.T) {
	// Same template name on both sides but different params: the pass-3
	// template guard must prevent these from being matched via similarity
	// even though the prose is otherwise close.
	a := []MarketInput{{ID: "a1", Title: "Will EdgeX FDV be above $500M?", Category: "crypto"}}
	b := []MarketInput{{ID: "b1", Title: "Will EdgeX FDV be above $600M?", Category: "crypto"}}

	results := NewEngine(2026).Match(a, b)
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0 (template guard should block mismatched params)", len(results))
	}
}

func TestMatchIDCollisionSafety(t *testing.T) {
	// A and B share a numeric id "500" by coincidence, but the templates
	// differ (token-launch vs fdv-above): no Pass 2 match should occur, and
	// a second B entry "501" with an equal template is never touched.
	a := []MarketInput{{ID: "500", Title: "Will Foo launch a token by 2027?", Category: "crypto"}}
	b := []MarketInput{
		{ID: "500", Title: "Will Foo FDV be above $1B?", Category: "crypto"},
		{ID: "501", Title: "Will Bar launch a token by 2027?", Category: "crypto"},
	}

	results := NewEngine(2026).Match(a, b)
	for _, r := range results {
		if r.MarketB.ID == "500" {
			t.Fatalf("id-collision: A(500) must not match B(500) across differing templates")
		}
	}
}

func TestMatchMagnitudeNormalizationScenario(t *testing.T) {
	a := []MarketInput{{ID: "a1", Title: "EdgeX FDV above $4B one day after launch?", Category: "crypto"}}
	b := []MarketInput{{ID: "b1", Title: "Will EdgeX FDV be above $4,000,000,000?", Category: "crypto"}}

	results := NewEngine(2026).Match(a, b)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].MatchType != MatchTemplate {
		t.Fatalf("MatchType = %v, want templateMatch", results[0].MatchType)
	}
}

func TestMatchCategoryGuardBlocksCrossDomainFallback(t *testing.T) {
	a := []MarketInput{{ID: "a1", Title: "Will the measure pass by a wide margin?", Category: "politics"}}
	b := []MarketInput{{ID: "b1", Title: "Will the measure pass by a wide margin?", Category: "sports"}}

	results := NewEngine(2026).Match(a, b)
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0 (category mismatch must block Pass 3)", len(results))
	}
}

func TestMatchTemporalGuardBlocksDistantResolution(t *testing.T) {
	const base int64 = 1_000_000_000_000
	const sixtyDaysMs int64 = 60 * 24 * 60 * 60 * 1000

	a := []MarketInput{{ID: "a1", Title: "Will inflation exceed five percent this year?", Category: "economics", ResolvesAt: int64ptr(base)}}
	b := []MarketInput{{ID: "b1", Title: "Will inflation exceed five percent this year?", Category: "economics", ResolvesAt: int64ptr(base + sixtyDaysMs)}}

	results := NewEngine(2026).Match(a, b)
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0 (temporal guard must block distant resolution dates)", len(results))
	}
}

func TestMatchOneToOneAcrossAllPasses(t *testing.T) {
	a := []MarketInput{
		{ID: "a1", Title: "Will BTC hit 100k?", ConditionID: "0xshared", Category: "crypto"},
		{ID: "a2", Title: "Will BTC hit 100k this cycle?", Category: "crypto"},
	}
	b := []MarketInput{
		{ID: "b1", Title: "Bitcoin to one hundred thousand", ConditionID: "0xshared", Category: "crypto"},
	}

	results := NewEngine(2026).Match(a, b)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (b1 must not be matched twice)", len(results))
	}
	if results[0].MarketA.ID != "a1" {
		t.Fatalf("expected the conditionId match (a1) to win the single available B, got %q", results[0].MarketA.ID)
	}
}

func TestMatchPolarityFlipDetectedOnOutcomeSwap(t *testing.T) {
	a := []MarketInput{{ID: "a1", Title: "Will the bill pass?", ConditionID: "0xpair", Category: "politics", Outcomes: []string{"Yes", "No"}}}
	b := []MarketInput{{ID: "b1", Title: "Will the bill pass?", ConditionID: "0xpair", Category: "politics", Outcomes: []string{"No", "Yes"}}}

	results := NewEngine(2026).Match(a, b)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !results[0].PolarityFlip {
		t.Fatalf("expected PolarityFlip=true when outcome labels are swapped")
	}
}

func TestFingerprintPrecedence(t *testing.T) {
	fp := Fingerprint("0xcond", "0xother", "999")
	if fp != padFingerprint("0xcond") {
		t.Fatalf("Fingerprint must prefer the Predict conditionId")
	}
	fp2 := Fingerprint("", "0xother", "999")
	if fp2 != padFingerprint("0xother") {
		t.Fatalf("Fingerprint must fall back to the Probable conditionId")
	}
}
