package comicvine

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"longbox/internal/approval"
)

const statusOK = 1

type statusCarrier interface {
	status() (int, string)
}

// envelope is the wrapper ComicVine puts around every response.
type envelope[T any] struct {
	StatusCode           int    `json:"status_code"`
	Error                string `json:"error"`
	NumberOfTotalResults int    `json:"number_of_total_results"`
	Results              T      `json:"results"`
}

func (e *envelope[T]) status() (int, string) { return e.StatusCode, e.Error }

type namedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type volume struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	StartYear     string    `json:"start_year"`
	Publisher     *namedRef `json:"publisher"`
	CountOfIssues int       `json:"count_of_issues"`
	SiteDetailURL string    `json:"site_detail_url"`
}

func (v volume) candidate() approval.CandidateSeries {
	year, _ := strconv.Atoi(strings.TrimSpace(v.StartYear))
	c := approval.CandidateSeries{
		ID:         strconv.FormatInt(v.ID, 10),
		Source:     SourceName,
		Name:       strings.TrimSpace(v.Name),
		Year:       year,
		IssueCount: v.CountOfIssues,
		URL:        v.SiteDetailURL,
	}
	if v.Publisher != nil {
		c.Publisher = strings.TrimSpace(v.Publisher.Name)
	}
	return c
}

type personCredit struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type issue struct {
	ID            int64          `json:"id"`
	IssueNumber   string         `json:"issue_number"`
	Name          string         `json:"name"`
	CoverDate     string         `json:"cover_date"`
	Volume        *namedRef      `json:"volume"`
	PersonCredits []personCredit `json:"person_credits"`
	Description   string         `json:"description"`
	SiteDetailURL string         `json:"site_detail_url"`
}

func (is issue) toIssue(seriesID string) approval.Issue {
	out := approval.Issue{
		ID:       strconv.FormatInt(is.ID, 10),
		Source:   SourceName,
		SeriesID: seriesID,
		Number:   strings.TrimSpace(is.IssueNumber),
		Title:    strings.TrimSpace(is.Name),
		Summary:  stripHTML(is.Description),
		URL:      is.SiteDetailURL,
	}
	if is.Volume != nil {
		if out.SeriesID == "" {
			out.SeriesID = strconv.FormatInt(is.Volume.ID, 10)
		}
		out.SeriesName = strings.TrimSpace(is.Volume.Name)
	}
	if cover, err := time.Parse("2006-01-02", strings.TrimSpace(is.CoverDate)); err == nil {
		out.Year = cover.Year()
		out.Month = int(cover.Month())
	}
	out.Writer = creditsFor(is.PersonCredits, "writer")
	out.Penciller = creditsFor(is.PersonCredits, "penciler", "penciller", "artist")
	out.CoverArtist = creditsFor(is.PersonCredits, "cover")
	return out
}

// creditsFor joins the names whose comma-separated role list contains any of roles.
func creditsFor(credits []personCredit, roles ...string) string {
	var names []string
	for _, credit := range credits {
		for _, role := range strings.Split(strings.ToLower(credit.Role), ",") {
			role = strings.TrimSpace(role)
			matched := false
			for _, want := range roles {
				if role == want {
					matched = true
					break
				}
			}
			if matched {
				names = append(names, strings.TrimSpace(credit.Name))
				break
			}
		}
	}
	return strings.Join(names, ", ")
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

func stripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
