package comicvine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"longbox/internal/approval"
	"longbox/internal/config"
	"longbox/internal/logging"
)

// SourceName identifies ComicVine results.
const SourceName = "comicvine"

const (
	userAgent       = "longbox/1.0"
	searchLimit     = 20
	issuesPageLimit = 100
	// maxIssuePages bounds pagination for very long runs.
	maxIssuePages = 20
)

// Client provides access to the ComicVine API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	customHTTP bool
	limiter    *rate.Limiter
	perHour    int
	retryMax   int
	timeout    time.Duration
	logger     *slog.Logger
}

var _ approval.SeriesSource = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the retrying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
			c.customHTTP = true
		}
	}
}

// WithRequestsPerHour sets the request budget. Zero or less disables limiting.
func WithRequestsPerHour(perHour int) Option {
	return func(c *Client) {
		c.perHour = perHour
	}
}

// WithRetries sets how many times failed requests are retried.
func WithRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.retryMax = max
		}
	}
}

// WithTimeout bounds each request including retries.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a ComicVine client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("comicvine api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("comicvine base url required")
	}
	client := &Client{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logging.NewNop(),
		retryMax: 3,
		timeout:  20 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "comicvine")
	if !client.customHTTP {
		retryClient := retryablehttp.NewClient()
		retryClient.RetryMax = client.retryMax
		retryClient.RetryWaitMin = 500 * time.Millisecond
		retryClient.RetryWaitMax = 5 * time.Second
		retryClient.Logger = client.logger
		client.httpClient = retryClient.StandardClient()
		client.httpClient.Timeout = client.timeout
	}
	client.limiter = rate.NewLimiter(rate.Inf, 0)
	if client.perHour > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(float64(client.perHour)/3600.0), 1)
	}
	return client, nil
}

// NewFromConfig builds a client from the comicvine config section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.RequireComicVine(); err != nil {
		return nil, err
	}
	return New(
		cfg.ComicVine.APIKey,
		cfg.ComicVine.BaseURL,
		WithRequestsPerHour(cfg.ComicVine.RequestsPerHour),
		WithTimeout(time.Duration(cfg.ComicVine.TimeoutSeconds)*time.Second),
		WithLogger(logger),
	)
}

// Name reports the source name used on candidates and issues.
func (c *Client) Name() string { return SourceName }

// SearchSeries searches ComicVine volumes and scores each hit against query.
func (c *Client) SearchSeries(ctx context.Context, query string, opts approval.SearchOptions) ([]approval.CandidateSeries, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("resources", "volume")
	params.Set("limit", strconv.Itoa(searchLimit))
	params.Set("field_list", "id,name,start_year,publisher,count_of_issues,site_detail_url")

	var payload envelope[[]volume]
	if err := c.get(ctx, "/search/", params, &payload); err != nil {
		return nil, fmt.Errorf("search volumes: %w", err)
	}
	out := make([]approval.CandidateSeries, 0, len(payload.Results))
	for _, v := range payload.Results {
		candidate := v.candidate()
		candidate.Confidence = Confidence(query, opts, candidate)
		out = append(out, candidate)
	}
	return out, nil
}

// Issues lists every issue of a volume, following pagination.
func (c *Client) Issues(ctx context.Context, seriesID string) ([]approval.Issue, error) {
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return nil, errors.New("series id must not be empty")
	}
	var out []approval.Issue
	for page := 0; page < maxIssuePages; page++ {
		params := url.Values{}
		params.Set("filter", "volume:"+seriesID)
		params.Set("sort", "issue_number:asc")
		params.Set("limit", strconv.Itoa(issuesPageLimit))
		params.Set("offset", strconv.Itoa(page*issuesPageLimit))
		params.Set("field_list", "id,issue_number,name,cover_date,volume,site_detail_url")

		var payload envelope[[]issue]
		if err := c.get(ctx, "/issues/", params, &payload); err != nil {
			return nil, fmt.Errorf("list issues for volume %s: %w", seriesID, err)
		}
		for _, is := range payload.Results {
			out = append(out, is.toIssue(seriesID))
		}
		if len(payload.Results) < issuesPageLimit || len(out) >= payload.NumberOfTotalResults {
			break
		}
	}
	return out, nil
}

// Issue fetches one issue with credits and description.
func (c *Client) Issue(ctx context.Context, issueID string) (approval.Issue, error) {
	issueID = strings.TrimSpace(issueID)
	if issueID == "" {
		return approval.Issue{}, errors.New("issue id must not be empty")
	}
	params := url.Values{}
	params.Set("field_list", "id,issue_number,name,cover_date,volume,person_credits,description,site_detail_url")

	var payload envelope[issue]
	if err := c.get(ctx, "/issue/4000-"+issueID+"/", params, &payload); err != nil {
		return approval.Issue{}, fmt.Errorf("fetch issue %s: %w", issueID, err)
	}
	return payload.Results.toIssue(""), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out statusCarrier) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse comicvine url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("comicvine %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode comicvine response: %w", err)
	}
	if code, message := out.status(); code != statusOK {
		return fmt.Errorf("comicvine %s status %d: %s", path, code, message)
	}
	c.logger.Debug("comicvine request complete",
		logging.String("path", path),
		logging.Duration("latency", latency),
	)
	return nil
}
