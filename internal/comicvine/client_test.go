package comicvine_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"longbox/internal/approval"
	"longbox/internal/comicvine"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *comicvine.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := comicvine.New("key", server.URL, comicvine.WithRetries(0), comicvine.WithRequestsPerHour(0))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := comicvine.New("", "https://example.com"); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestSearchSeriesSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_key") != "key" || q.Get("format") != "json" {
			t.Errorf("expected api_key and format parameters, got %q", r.URL.RawQuery)
		}
		if q.Get("resources") != "volume" || q.Get("query") != "Saga" {
			t.Errorf("unexpected search parameters %q", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected user agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status_code":1,"error":"OK","number_of_total_results":2,"results":[
			{"id":43898,"name":"Saga","start_year":"2012","publisher":{"id":1,"name":"Image"},"count_of_issues":66,"site_detail_url":"https://comicvine.example/saga"},
			{"id":1,"name":"Sagas of Nobody","start_year":"","publisher":null,"count_of_issues":1}
		]}`))
	})

	got, err := client.SearchSeries(context.Background(), "Saga", approval.SearchOptions{Year: 2012, Publisher: "Image"})
	if err != nil {
		t.Fatalf("SearchSeries returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	first := got[0]
	if first.ID != "43898" || first.Name != "Saga" || first.Year != 2012 || first.Publisher != "Image" || first.IssueCount != 66 {
		t.Fatalf("unexpected candidate: %#v", first)
	}
	if first.Source != comicvine.SourceName {
		t.Fatalf("expected source %q, got %q", comicvine.SourceName, first.Source)
	}
	if got[1].Publisher != "" || got[1].Year != 0 {
		t.Fatalf("expected empty publisher and year, got %#v", got[1])
	}
	if first.Confidence <= got[1].Confidence {
		t.Fatalf("expected exact match to outscore partial, got %.3f <= %.3f", first.Confidence, got[1].Confidence)
	}
}

func TestSearchSeriesHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, err := client.SearchSeries(context.Background(), "fail", approval.SearchOptions{}); err == nil {
		t.Fatal("expected error when ComicVine returns non-200")
	}
}

func TestSearchSeriesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status_code":100,"error":"Invalid API Key","results":[]}`))
	})
	_, err := client.SearchSeries(context.Background(), "Saga", approval.SearchOptions{})
	if err == nil || !strings.Contains(err.Error(), "Invalid API Key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestSearchSeriesEmptyQuery(t *testing.T) {
	client, err := comicvine.New("key", "https://example.com")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.SearchSeries(context.Background(), "  ", approval.SearchOptions{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestIssuesFollowsPagination(t *testing.T) {
	var offsets []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("filter") != "volume:42" {
			t.Errorf("unexpected filter %q", q.Get("filter"))
		}
		offsets = append(offsets, q.Get("offset"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		count := 100
		if offset >= 100 {
			count = 5
		}
		var b strings.Builder
		b.WriteString(`{"status_code":1,"number_of_total_results":105,"results":[`)
		for i := range count {
			if i > 0 {
				b.WriteString(",")
			}
			n := offset + i + 1
			b.WriteString(`{"id":` + strconv.Itoa(1000+n) + `,"issue_number":"` + strconv.Itoa(n) + `","cover_date":"2012-03-01"}`)
		}
		b.WriteString(`]}`)
		_, _ = w.Write([]byte(b.String()))
	})

	issues, err := client.Issues(context.Background(), "42")
	if err != nil {
		t.Fatalf("Issues returned error: %v", err)
	}
	if len(issues) != 105 {
		t.Fatalf("expected 105 issues, got %d", len(issues))
	}
	if len(offsets) != 2 || offsets[0] != "0" || offsets[1] != "100" {
		t.Fatalf("unexpected page offsets %v", offsets)
	}
	if issues[0].SeriesID != "42" || issues[0].Number != "1" || issues[0].Year != 2012 || issues[0].Month != 3 {
		t.Fatalf("unexpected first issue: %#v", issues[0])
	}
}

func TestIssueDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/issue/4000-77/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status_code":1,"results":{
			"id":77,"issue_number":"1","name":"Chapter One","cover_date":"2012-03-14",
			"volume":{"id":43898,"name":"Saga"},
			"person_credits":[
				{"name":"Brian K. Vaughan","role":"writer"},
				{"name":"Fiona Staples","role":"artist, cover"}
			],
			"description":"<p>The <b>first</b> issue &amp; more.</p>"
		}}`))
	})

	got, err := client.Issue(context.Background(), "77")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if got.SeriesID != "43898" || got.SeriesName != "Saga" || got.Title != "Chapter One" {
		t.Fatalf("unexpected issue: %#v", got)
	}
	if got.Writer != "Brian K. Vaughan" || got.Penciller != "Fiona Staples" || got.CoverArtist != "Fiona Staples" {
		t.Fatalf("unexpected credits: %#v", got)
	}
	if got.Summary != "The first issue & more." {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
}
