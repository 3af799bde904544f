package filename

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Parsed
	}{
		{"underscore", "batman_001.cbz", Parsed{SeriesName: "batman", IssueNumber: "001"}},
		{"year tag", "Batman 001 (2016).cbz", Parsed{SeriesName: "Batman", IssueNumber: "001", Year: 2016}},
		{
			"volume hash and noise",
			"Amazing Spider-Man v2 #045 (1999) (Digital).cbz",
			Parsed{SeriesName: "Amazing Spider-Man", IssueNumber: "045", Year: 1999, Volume: 2},
		},
		{"dash separator", "Saga - 012.cbr", Parsed{SeriesName: "Saga", IssueNumber: "012"}},
		{"decimal issue", "Batman #1.5 (2011).cbz", Parsed{SeriesName: "Batman", IssueNumber: "1.5", Year: 2011}},
		{"suffix issue", "Avengers 12AU.cbz", Parsed{SeriesName: "Avengers", IssueNumber: "12AU"}},
		{"vol keyword", "Batman Vol. 3 004.cbz", Parsed{SeriesName: "Batman", IssueNumber: "004", Volume: 3}},
		{"of total", "Watchmen 01 of 12.cbz", Parsed{SeriesName: "Watchmen", IssueNumber: "01"}},
		{"publisher tag", "Hellboy 003 (Dark Horse) (1994).cbz", Parsed{SeriesName: "Hellboy", IssueNumber: "003", Year: 1994, Publisher: "Dark Horse Comics"}},
		{"bare year suffix", "Batman 001 2016.cbz", Parsed{SeriesName: "Batman", IssueNumber: "001", Year: 2016}},
		{"no issue", "Watchmen.cbz", Parsed{SeriesName: "Watchmen"}},
		{"digits only", "001.cbz", Parsed{IssueNumber: "001"}},
		{"path", "/comics/dc/batman_002.cbz", Parsed{SeriesName: "batman", IssueNumber: "002"}},
		{"empty", "", Parsed{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStem(t *testing.T) {
	if got := Stem("/a/b/Saga 001.CBZ"); got != "Saga 001" {
		t.Errorf("Stem = %q", got)
	}
	if got := Stem("notes.txt"); got != "notes.txt" {
		t.Errorf("Stem kept unknown extension = %q", got)
	}
}

func TestNormalizeSeriesKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Batman", "batman"},
		{"BATMAN", "batman"},
		{"The Amazing Spider-Man", "amazing spider man"},
		{"Amazing Spider-Man", "amazing spider man"},
		{"Pokémon Adventures", "pokemon adventures"},
		{"Saga Deluxe Edition", "saga"},
		{"Saga (Digital)", "saga"},
		{"Fables TPB", "fables"},
		{"Rock & Roll", "rock and roll"},
		{"The", "the"},
		{"Omnibus", "omnibus"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSeriesKey(tt.in); got != tt.want {
			t.Errorf("NormalizeSeriesKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
