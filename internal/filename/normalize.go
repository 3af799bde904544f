package filename

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// editionMarkers are stripped from series keys so that collected and digital
// releases group with their single-issue counterparts.
var editionMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\b(deluxe|special|collectors|collector s|anniversary|ultimate|definitive)\s+edition\b`),
	regexp.MustCompile(`\b(omnibus|tpb|hc|hardcover|digital|webrip|c2c)\b`),
}

var leadingArticles = map[string]struct{}{"the": {}, "a": {}, "an": {}}

// NormalizeSeriesKey reduces a series name to a grouping key: case-folded, with
// diacritics, punctuation, leading articles and edition markers removed.
// Returns "" when name carries no letters or digits.
func NormalizeSeriesKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		stripped = name
	}
	folded := cases.Fold().String(stripped)
	folded = strings.ReplaceAll(folded, "&", " and ")

	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(' ')
	}
	base := collapse(b.String())
	if base == "" {
		return ""
	}

	key := base
	for _, marker := range editionMarkers {
		key = marker.ReplaceAllString(key, " ")
	}
	tokens := strings.Fields(key)
	if len(tokens) > 1 {
		if _, ok := leadingArticles[tokens[0]]; ok {
			tokens = tokens[1:]
		}
	}
	if len(tokens) == 0 {
		return base
	}
	return strings.Join(tokens, " ")
}
