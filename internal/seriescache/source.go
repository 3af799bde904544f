package seriescache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"longbox/internal/approval"
	"longbox/internal/logging"
)

// Source wraps a provider with read-through caching.
type Source struct {
	store    *Store
	provider approval.SeriesSource
	ttl      time.Duration
	logger   *slog.Logger
}

var _ approval.SeriesSource = (*Source)(nil)

// Wrap returns a caching view of provider backed by store.
func Wrap(store *Store, provider approval.SeriesSource, ttl time.Duration, logger *slog.Logger) *Source {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Source{
		store:    store,
		provider: provider,
		ttl:      ttl,
		logger:   logging.NewComponentLogger(logger, "seriescache"),
	}
}

// Name reports the wrapped provider's name so candidates keep their source.
func (s *Source) Name() string { return s.provider.Name() }

// SearchSeries returns cached candidates for equivalent queries.
func (s *Source) SearchSeries(ctx context.Context, query string, opts approval.SearchOptions) ([]approval.CandidateSeries, error) {
	key := searchKey(query, opts)
	var cached []approval.CandidateSeries
	if s.lookup(ctx, KindSearch, key, &cached) {
		return cached, nil
	}
	results, err := s.provider.SearchSeries(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	s.save(ctx, KindSearch, key, results)
	return results, nil
}

// Issues returns a cached issue listing for seriesID.
func (s *Source) Issues(ctx context.Context, seriesID string) ([]approval.Issue, error) {
	key := strings.TrimSpace(seriesID)
	var cached []approval.Issue
	if s.lookup(ctx, KindIssues, key, &cached) {
		return cached, nil
	}
	issues, err := s.provider.Issues(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	s.save(ctx, KindIssues, key, issues)
	return issues, nil
}

// Issue returns a cached issue detail.
func (s *Source) Issue(ctx context.Context, issueID string) (approval.Issue, error) {
	key := strings.TrimSpace(issueID)
	var cached approval.Issue
	if s.lookup(ctx, KindIssue, key, &cached) {
		return cached, nil
	}
	issue, err := s.provider.Issue(ctx, issueID)
	if err != nil {
		return approval.Issue{}, err
	}
	s.save(ctx, KindIssue, key, issue)
	return issue, nil
}

func (s *Source) lookup(ctx context.Context, kind, key string, out any) bool {
	payload, ok, err := s.store.Get(ctx, kind, s.provider.Name(), key)
	if err != nil {
		logging.WarnWithContext(s.logger, "cache lookup failed; querying provider", "seriescache_lookup",
			logging.String("kind", kind),
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'longbox cache clear' if the cache file is corrupt"),
			logging.String(logging.FieldImpact, "provider is queried directly"),
		)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		logging.WarnWithContext(s.logger, "cache entry unreadable; querying provider", "seriescache_decode",
			logging.String("kind", kind),
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "entry will be overwritten on the next successful lookup"),
			logging.String(logging.FieldImpact, "provider is queried directly"),
		)
		return false
	}
	s.logger.Debug("cache hit", logging.String("kind", kind), logging.String("key", key))
	return true
}

func (s *Source) save(ctx context.Context, kind, key string, value any) {
	payload, err := json.Marshal(value)
	if err == nil {
		err = s.store.Put(ctx, kind, s.provider.Name(), key, payload, s.ttl)
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "cache write failed", "seriescache_write",
			logging.String("kind", kind),
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the cache path"),
			logging.String(logging.FieldImpact, "next lookup queries the provider again"),
		)
	}
}

// searchKey folds case and whitespace only. Articles and edition words stay
// in the key because provider confidence is scored against the exact query.
func searchKey(query string, opts approval.SearchOptions) string {
	parts := []string{foldQuery(query)}
	if opts.Year > 0 {
		parts = append(parts, "y"+strconv.Itoa(opts.Year))
	}
	if publisher := foldQuery(opts.Publisher); publisher != "" {
		parts = append(parts, "p"+publisher)
	}
	return strings.Join(parts, "|")
}

func foldQuery(value string) string {
	return strings.Join(strings.Fields(cases.Fold().String(value)), " ")
}
