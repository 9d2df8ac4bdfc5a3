// Package matching implements the cross-venue market-equivalence engine:
// title normalization, template extraction, similarity scoring, and the
// deterministic three-pass matcher.
package matching

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// confusables maps visually-similar non-ASCII codepoints to their ASCII
// look-alike. Append-only, keyed by rune.
var confusables = map[rune]rune{
	'А': 'A', 'В': 'B', 'Е': 'E', 'К': 'K', 'М': 'M', 'Н': 'H', 'О': 'O',
	'Р': 'P', 'С': 'C', 'Т': 'T', 'Х': 'X', // Cyrillic
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Ζ': 'Z', 'Η': 'H', 'Ι': 'I', 'Κ': 'K',
	'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'Ρ': 'P', 'Τ': 'T', 'Υ': 'Y', 'Χ': 'X', // Greek
	'Ʌ': 'A', 'Ͻ': 'N',
	'и': 'n', 'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'х': 'x',
}

// replaceConfusables substitutes known look-alike codepoints with ASCII.
func replaceConfusables(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if ascii, ok := confusables[r]; ok {
			b.WriteRune(ascii)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	magnitudeRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(billion|million|thousand|b|m|k)\b`)
	magnitudeMultipliers = map[string]float64{
		"b": 1e9, "billion": 1e9,
		"m": 1e6, "million": 1e6,
		"k": 1e3, "thousand": 1e3,
	}
)

// normalizeMagnitude rewrites "4B", "4 billion", "500M", "10k", "1.5 million"
// into the decimal integer string. Pure digit sequences are left untouched.
func normalizeMagnitude(s string) string {
	return magnitudeRe.ReplaceAllStringFunc(s, func(match string) string {
		sub := magnitudeRe.FindStringSubmatch(match)
		numStr, unit := sub[1], strings.ToLower(sub[2])
		mult, ok := magnitudeMultipliers[unit]
		if !ok {
			return match
		}
		num, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return match
		}
		return strconv.FormatInt(int64(num*mult), 10)
	})
}

var combiningMarks = unicode.Mn

// stripCombiningMarks decomposes (NFKD) and removes combining marks.
func stripCombiningMarks(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(combiningMarks, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var (
	separatorRe = regexp.MustCompile(`[\$,?]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// normalizeTitle runs the full C1 pipeline on a market title.
func normalizeTitle(s string, currentYear int) string {
	s = replaceConfusables(s)
	s = stripCombiningMarks(s)
	s = strings.ToLower(s)
	s = separatorRe.ReplaceAllString(s, "")
	s = stripYearToken(s, currentYear)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripYearToken removes a standalone token equal to currentYear, matched
// only at word boundaries so "2026" inside "20264" is left alone.
func stripYearToken(s string, currentYear int) string {
	yearStr := strconv.Itoa(currentYear)
	re := regexp.MustCompile(`\b` + yearStr + `\b`)
	return re.ReplaceAllString(s, "")
}

var leadingArticles = map[string]bool{"the": true, "a": true, "an": true}

// normalizeEntity lowercases, trims, drops trailing punctuation, and drops
// a leading article.
func normalizeEntity(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!?")
	fields := strings.Fields(s)
	if len(fields) > 0 && leadingArticles[fields[0]] {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

// normalizeParams strips currency/punctuation markers, normalizes
// magnitudes, drops the current-year token, and collapses whitespace.
func normalizeParams(s string, currentYear int) string {
	s = separatorRe.ReplaceAllString(s, "")
	s = normalizeMagnitude(s)
	s = stripYearToken(s, currentYear)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
