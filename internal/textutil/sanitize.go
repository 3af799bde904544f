package textutil

import (
	"regexp"
	"strings"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", " -",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

var repeatedSpace = regexp.MustCompile(`\s{2,}`)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. Runs of whitespace collapse to one space and the
// result is trimmed.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	cleaned := fileNameReplacer.Replace(name)
	cleaned = repeatedSpace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
