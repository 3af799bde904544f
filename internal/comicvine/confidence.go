package comicvine

import (
	"math"
	"strings"

	"longbox/internal/approval"
	"longbox/internal/filename"
	"longbox/internal/textutil"
)

const (
	weightName      = 0.7
	weightYear      = 0.1
	weightPublisher = 0.1
	weightRun       = 0.1
	neutral         = 0.5
)

// Confidence scores a candidate volume against the search query and hints.
func Confidence(query string, opts approval.SearchOptions, c approval.CandidateSeries) float64 {
	score := weightName*nameScore(query, c.Name) +
		weightYear*yearScore(opts.Year, c.Year) +
		weightPublisher*publisherScore(opts.Publisher, c.Publisher) +
		weightRun*runScore(c.IssueCount)
	return math.Round(score*1000) / 1000
}

func nameScore(query, name string) float64 {
	q := filename.NormalizeSeriesKey(query)
	n := filename.NormalizeSeriesKey(name)
	if q == "" || n == "" {
		return 0
	}
	if q == n {
		return 1
	}
	sim := textutil.TitleSimilarity(q, n)
	if strings.Contains(n, q) || strings.Contains(q, n) {
		return math.Max(sim, 0.75)
	}
	return sim
}

// yearScore rewards volumes that started within a few years of the files'
// cover year. Unknown years are neutral.
func yearScore(want, started int) float64 {
	if want <= 0 || started <= 0 {
		return neutral
	}
	diff := math.Abs(float64(want - started))
	return math.Max(0, 1-diff/5)
}

func publisherScore(want, got string) float64 {
	want = filename.NormalizeSeriesKey(want)
	got = filename.NormalizeSeriesKey(got)
	if want == "" || got == "" {
		return neutral
	}
	if want == got || strings.Contains(got, want) || strings.Contains(want, got) {
		return 1
	}
	return 0
}

// runScore slightly prefers established runs over one-shots and ashcans.
func runScore(issues int) float64 {
	if issues <= 0 {
		return 0
	}
	return math.Min(1, math.Log10(float64(issues)+1)/2)
}
