package matching

import "testing"

func TestExtractTemplateFDVAboveWithoutWillPrefix(t *testing.T) {
	tpl := extractTemplate("EdgeX FDV above $4B one day after launch?", 2026)
	if tpl == nil {
		t.Fatal("expected a template match")
	}
	if tpl.Name != "fdv-above" {
		t.Fatalf("Name = %q, want fdv-above", tpl.Name)
	}
}

func TestExtractTemplateMagnitudeEquivalentKeys(t *testing.T) {
	a := extractTemplate("Will EdgeX FDV be above $4,000,000,000?", 2026)
	b := extractTemplate("EdgeX FDV above 4 billion?", 2026)
	if a == nil || b == nil {
		t.Fatal("expected both titles to extract a template")
	}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %q vs %q", a.Key(), b.Key())
	}
}

func TestExtractTemplateDoesNotCrossContaminate(t *testing.T) {
	fdv := extractTemplate("Will EdgeX FDV be above $500M?", 2026)
	launch := extractTemplate("Will EdgeX launch a token by $500M?", 2026)
	if fdv == nil || launch == nil {
		t.Fatal("expected both to extract some template")
	}
	if fdv.Name == launch.Name {
		t.Fatalf("fdv-above and token-launch must not share a template name")
	}
}

func TestExtractTemplateNoMatch(t *testing.T) {
	if tpl := extractTemplate("What time is it", 2026); tpl != nil {
		t.Fatalf("expected no template, got %+v", tpl)
	}
}
