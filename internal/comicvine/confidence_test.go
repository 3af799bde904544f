package comicvine

import (
	"testing"

	"longbox/internal/approval"
)

func TestConfidenceOrdering(t *testing.T) {
	opts := approval.SearchOptions{Year: 2016, Publisher: "Marvel"}
	exact := Confidence("Black Panther", opts, approval.CandidateSeries{Name: "Black Panther", Year: 2016, Publisher: "Marvel", IssueCount: 25})
	wrongYear := Confidence("Black Panther", opts, approval.CandidateSeries{Name: "Black Panther", Year: 1977, Publisher: "Marvel", IssueCount: 15})
	other := Confidence("Black Panther", opts, approval.CandidateSeries{Name: "Panther's Prey", Year: 1991, Publisher: "Marvel", IssueCount: 4})

	if !(exact > wrongYear && wrongYear > other) {
		t.Fatalf("unexpected ordering exact=%.3f wrongYear=%.3f other=%.3f", exact, wrongYear, other)
	}
	if exact < 0.9 || exact > 1 {
		t.Fatalf("expected exact match near 1, got %.3f", exact)
	}
}

func TestConfidenceNeutralWithoutHints(t *testing.T) {
	got := Confidence("Saga", approval.SearchOptions{}, approval.CandidateSeries{Name: "Saga", IssueCount: 0})
	want := weightName + weightYear*neutral + weightPublisher*neutral
	if got != want {
		t.Fatalf("expected %.3f, got %.3f", want, got)
	}
}

func TestConfidenceArticleInsensitive(t *testing.T) {
	a := Confidence("The Walking Dead", approval.SearchOptions{}, approval.CandidateSeries{Name: "Walking Dead"})
	b := Confidence("Walking Dead", approval.SearchOptions{}, approval.CandidateSeries{Name: "Walking Dead"})
	if a != b {
		t.Fatalf("expected article to be ignored, got %.3f vs %.3f", a, b)
	}
}
