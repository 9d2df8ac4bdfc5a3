package matching

import "regexp"

// Template is the structured shape extracted from a market title.
type Template struct {
	Name   string
	Entity string
	Params string
}

// templateDef pairs a template name with the regex used to recognize it.
// Named capture groups "entity" and "params" are required.
type templateDef struct {
	name string
	re   *regexp.Regexp
}

// templateRegistry is append-only and order-stable: the first matching
// entry wins, and test guards depend on that order never changing.
var templateRegistry = []templateDef{
	{"fdv-above", regexp.MustCompile(`(?i)^(?:will\s+)?(?P<entity>.+?)\s+fdv\s+(?:be\s+)?above\s+(?P<params>.+?)\??$`)},
	{"mcap-above", regexp.MustCompile(`(?i)^(?:will\s+)?(?P<entity>.+?)\s+(?:market\s*cap|mcap)\s+(?:be\s+)?above\s+(?P<params>.+?)\??$`)},
	{"token-launch", regexp.MustCompile(`(?i)^(?:will\s+)?(?P<entity>.+?)\s+launch\s+a\s+token\s+by\s+(?P<params>.+?)\??$`)},
	{"price-target", regexp.MustCompile(`(?i)^(?:will\s+)?(?P<entity>.+?)\s+(?:hit|reach|be\s+above)\s+(?P<params>[\$\d][\w.,\s]*?)\??$`)},
	{"list-on", regexp.MustCompile(`(?i)^(?:will\s+)?(?P<entity>.+?)\s+(?:be\s+)?list(?:ed)?\s+on\s+(?P<params>.+?)\??$`)},
	{"approved-by", regexp.MustCompile(`(?i)^(?:will\s+)?(?P<entity>.+?)\s+be\s+approved\s+by\s+(?P<params>.+?)\??$`)},
	{"partner-with", regexp.MustCompile(`(?i)^(?:will\s+)?(?P<entity>.+?)\s+partner\s+with\s+(?P<params>.+?)\??$`)},
	{"elected-to", regexp.MustCompile(`(?i)^(?:will\s+)?(?P<entity>.+?)\s+be\s+elected\s+(?:to|as)\s+(?P<params>.+?)\??$`)},
	{"happen-by", regexp.MustCompile(`(?i)^(?:will\s+)?(?P<entity>.+?)\s+happen\s+by\s+(?P<params>.+?)\??$`)},
	{"out-as", regexp.MustCompile(`(?i)^(?:will\s+)?(?P<entity>.+?)\s+(?:be\s+)?out\s+as\s+(?P<params>.+?)\??$`)},
}

// extractTemplate runs the fixed registry against a raw title and returns
// the first matching template, normalized, or nil if none match.
func extractTemplate(title string, currentYear int) *Template {
	for _, def := range templateRegistry {
		m := def.re.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		entityIdx := def.re.SubexpIndex("entity")
		paramsIdx := def.re.SubexpIndex("params")
		if entityIdx < 0 || paramsIdx < 0 {
			continue
		}
		return &Template{
			Name:   def.name,
			Entity: normalizeEntity(m[entityIdx]),
			Params: normalizeParams(m[paramsIdx], currentYear),
		}
	}
	return nil
}

// Key is the pass-2 bucket key: template|entity|params.
func (t *Template) Key() string {
	return t.Name + "|" + t.Entity + "|" + t.Params
}
