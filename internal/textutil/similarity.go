package textutil

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// termVector is a term-frequency vector over title tokens.
type termVector struct {
	counts map[string]float64
	norm   float64
}

func newTermVector(text string) termVector {
	tokens := Tokenize(text)
	v := termVector{counts: make(map[string]float64, len(tokens))}
	for _, token := range tokens {
		v.counts[token]++
	}
	var sum float64
	for _, c := range v.counts {
		sum += c * c
	}
	v.norm = math.Sqrt(sum)
	return v
}

// cosine returns the cosine of the angle between a and b, 0 when either is empty.
func cosine(a, b termVector) float64 {
	if a.norm == 0 || b.norm == 0 {
		return 0
	}
	if len(b.counts) < len(a.counts) {
		a, b = b, a
	}
	var dot float64
	for token, count := range a.counts {
		dot += count * b.counts[token]
	}
	return math.Min(1, dot/(a.norm*b.norm))
}

// Tokenize lowercases text, folds diacritics and splits on anything that is
// not a letter or digit. Single letters are dropped; single digits are kept
// because they carry meaning in titles ("Part 2").
func Tokenize(text string) []string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}
	fields := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) == 1 && !unicode.IsDigit([]rune(f)[0]) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// TitleSimilarity scores two titles in [0,1] by token cosine similarity.
// Case-insensitive equality scores 1 even when the titles tokenize to nothing
// (e.g. "X").
func TitleSimilarity(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	if strings.EqualFold(a, b) {
		return 1
	}
	return cosine(newTermVector(a), newTermVector(b))
}
