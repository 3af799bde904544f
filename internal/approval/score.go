package approval

import (
	"math"
	"strings"

	"longbox/internal/textutil"
)

const (
	weightIssueNumber = 0.7
	weightTitle       = 0.15
	weightYear        = 0.15
	// neutralScore is used for a component when either side lacks the value.
	neutralScore = 0.5
	// yearWindow is the distance in years at which year proximity reaches zero.
	yearWindow = 3.0
)

// issueHint is what a file tells us about the issue it contains.
type issueHint struct {
	Number string
	Title  string
	Year   int
}

// scoreIssue combines issue-number equality, title similarity and year
// proximity into a match score in [0,1].
func scoreIssue(hint issueHint, issue Issue) float64 {
	number := neutralScore
	if hint.Number != "" && issue.Number != "" {
		number = 0
		if normalizeIssueNumber(hint.Number) == normalizeIssueNumber(issue.Number) {
			number = 1
		}
	}

	title := neutralScore
	if strings.TrimSpace(hint.Title) != "" && strings.TrimSpace(issue.Title) != "" {
		title = textutil.TitleSimilarity(hint.Title, issue.Title)
	}

	year := neutralScore
	if hint.Year > 0 && issue.Year > 0 {
		year = yearProximity(hint.Year, issue.Year)
	}

	return weightIssueNumber*number + weightTitle*title + weightYear*year
}

func yearProximity(a, b int) float64 {
	return math.Max(0, 1-math.Abs(float64(a-b))/yearWindow)
}

// normalizeIssueNumber makes "001", "1" and "1.0" compare equal and ignores
// suffix case ("12au" == "12AU").
func normalizeIssueNumber(number string) string {
	n := strings.ToLower(strings.TrimSpace(number))
	n = strings.TrimPrefix(n, "#")
	intPart, rest := n, ""
	if idx := strings.IndexFunc(n, func(r rune) bool { return r < '0' || r > '9' }); idx >= 0 {
		intPart, rest = n[:idx], n[idx:]
	}
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" && (rest == "" || rest[0] == '.') {
		intPart = "0"
	}
	if strings.HasPrefix(rest, ".") {
		frac := strings.TrimRight(rest[1:], "0")
		if frac == "" {
			rest = ""
		} else {
			rest = "." + frac
		}
	}
	return intPart + rest
}

// bestIssue returns the highest-scoring issue. Earlier issues win ties.
func bestIssue(hint issueHint, issues []Issue) (Issue, float64, bool) {
	var (
		best  Issue
		score = -1.0
	)
	for _, issue := range issues {
		if s := scoreIssue(hint, issue); s > score {
			best, score = issue, s
		}
	}
	if score < 0 {
		return Issue{}, 0, false
	}
	return best, score, true
}
