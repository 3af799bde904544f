package filename

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Parsed holds the hints recovered from one filename. Empty strings and zero
// values mean the hint was absent.
type Parsed struct {
	SeriesName  string
	IssueNumber string
	Year        int
	Volume      int
	Publisher   string
}

var archiveExtensions = map[string]struct{}{
	".cbz": {}, ".cbr": {}, ".cb7": {}, ".cbt": {}, ".zip": {}, ".rar": {}, ".pdf": {},
}

var (
	tagPattern       = regexp.MustCompile(`[\(\[]([^\)\]]*)[\)\]]`)
	yearPattern      = regexp.MustCompile(`^(19|20)\d{2}$`)
	volumePattern    = regexp.MustCompile(`(?i)\b(?:v(\d{1,4})|vol(?:ume)?\.?\s*(\d{1,4}))\b`)
	hashIssuePattern = regexp.MustCompile(`#\s*(\d+(?:\.\d+)?[A-Za-z]{0,3})\b`)
	trailingIssue    = regexp.MustCompile(`^(.*?)(?:\s*-\s*|\s+|^)(?:no\.?\s*)?(\d+(?:\.\d+)?[A-Za-z]{0,3})$`)
	ofTotalPattern   = regexp.MustCompile(`(?i)\s+of\s+\d+$`)
	bareYearSuffix   = regexp.MustCompile(`\s+((?:19|20)\d{2})$`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// knownPublishers maps lowercase tag text to the canonical publisher name.
var knownPublishers = map[string]string{
	"marvel":     "Marvel",
	"dc":         "DC Comics",
	"dc comics":  "DC Comics",
	"image":      "Image",
	"dark horse": "Dark Horse Comics",
	"idw":        "IDW Publishing",
	"boom":       "BOOM! Studios",
	"boom!":      "BOOM! Studios",
	"dynamite":   "Dynamite Entertainment",
	"valiant":    "Valiant",
	"oni":        "Oni Press",
	"vertigo":    "Vertigo",
}

// Parser implements the filename parsing contract used by session grouping.
type Parser struct{}

// NewParser returns a stateless filename parser.
func NewParser() *Parser { return &Parser{} }

// Parse extracts hints from name, which may be a bare filename or a path.
func (*Parser) Parse(name string) Parsed {
	return Parse(name)
}

// Parse extracts hints from name, which may be a bare filename or a path.
func Parse(name string) Parsed {
	var out Parsed
	stem := Stem(name)
	if stem == "" {
		return out
	}

	for _, match := range tagPattern.FindAllStringSubmatch(stem, -1) {
		tag := strings.TrimSpace(match[1])
		if out.Year == 0 && yearPattern.MatchString(tag) {
			out.Year, _ = strconv.Atoi(tag)
			continue
		}
		if out.Publisher == "" {
			if publisher, ok := knownPublishers[strings.ToLower(tag)]; ok {
				out.Publisher = publisher
			}
		}
	}
	text := tagPattern.ReplaceAllString(stem, " ")
	text = collapse(separatorsToSpaces(text))

	if m := volumePattern.FindStringSubmatchIndex(text); m != nil {
		digits := submatch(text, m, 1)
		if digits == "" {
			digits = submatch(text, m, 2)
		}
		out.Volume, _ = strconv.Atoi(digits)
		text = collapse(text[:m[0]] + " " + text[m[1]:])
	}

	text = ofTotalPattern.ReplaceAllString(text, "")

	if m := hashIssuePattern.FindStringSubmatchIndex(text); m != nil {
		out.IssueNumber = text[m[2]:m[3]]
		text = text[:m[0]]
	} else {
		if out.Year == 0 {
			if ym := bareYearSuffix.FindStringSubmatchIndex(text); ym != nil && trailingIssue.MatchString(strings.TrimSpace(text[:ym[0]])) {
				out.Year, _ = strconv.Atoi(text[ym[2]:ym[3]])
				text = text[:ym[0]]
			}
		}
		if m := trailingIssue.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
			out.IssueNumber = m[2]
			text = m[1]
		}
	}

	out.SeriesName = strings.Trim(collapse(text), " -–:,")
	return out
}

// Stem returns the filename without directories or a known archive extension.
func Stem(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if _, ok := archiveExtensions[strings.ToLower(filepath.Ext(base))]; ok {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return strings.TrimSpace(base)
}

// separatorsToSpaces turns underscores and dots into spaces, keeping dots
// between two digits so decimal issue numbers survive.
func separatorsToSpaces(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		switch r {
		case '_':
			runes[i] = ' '
		case '.':
			if i > 0 && i < len(runes)-1 && isDigit(runes[i-1]) && isDigit(runes[i+1]) {
				continue
			}
			runes[i] = ' '
		}
	}
	return string(runes)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func submatch(s string, idx []int, group int) string {
	if idx[2*group] < 0 {
		return ""
	}
	return s[idx[2*group]:idx[2*group+1]]
}

func collapse(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
