package approval

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"longbox/internal/logging"
	"longbox/internal/services"
)

// searchGroup queries every source for query and replaces the group's
// results. When every source fails the group is left pending with no results.
func (e *Engine) searchGroup(ctx context.Context, group *SeriesGroup, query string) {
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldGroupID, group.ID))
	group.Status = GroupSearching
	group.Query = query

	var (
		results  []CandidateSeries
		failures int
		seen     = make(map[string]struct{})
	)
	for _, src := range e.sources {
		hits, err := src.SearchSeries(ctx, query, group.SearchOptions())
		if err != nil {
			failures++
			logging.WarnWithContext(logger, "series search failed", "series_search_failed",
				logging.String("source", src.Name()),
				logging.String("query", query),
				logging.Error(services.Wrap(services.ErrProvider, "approval", "search series", src.Name(), err)),
				logging.String(logging.FieldErrorHint, "retry the search or refine the query"),
				logging.String(logging.FieldImpact, "group has no candidates from this source"),
			)
			continue
		}
		for _, hit := range hits {
			if hit.Source == "" {
				hit.Source = src.Name()
			}
			key := hit.Source + "\x00" + hit.ID
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			results = append(results, hit)
		}
	}

	group.Status = GroupPending
	if failures == len(e.sources) {
		group.SearchResults = []CandidateSeries{}
		return
	}
	group.SearchResults = rankCandidates(query, results)
	logger.Debug("series search complete",
		logging.String("query", query),
		logging.Int("results", len(group.SearchResults)),
	)
}

// rankCandidates orders by confidence descending, then exact case-insensitive
// name match first. The sort is stable so provider order breaks any remaining tie.
func rankCandidates(query string, results []CandidateSeries) []CandidateSeries {
	ranked := append([]CandidateSeries{}, results...)
	query = strings.TrimSpace(query)
	exact := func(c CandidateSeries) int {
		if strings.EqualFold(strings.TrimSpace(c.Name), query) {
			return 0
		}
		return 1
	}
	slices.SortStableFunc(ranked, func(a, b CandidateSeries) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(exact(a), exact(b))
	})
	return ranked
}

// SearchSeriesCustom re-runs the search for the current group with an
// operator-supplied query. In file_review it targets the first reset group.
func (e *Engine) SearchSeriesCustom(ctx context.Context, sessionID, query string) (*Session, error) {
	query = strings.TrimSpace(query)
	return e.update(ctx, sessionID, opSearchSeries, func(ctx context.Context, s *Session) error {
		if query == "" {
			return services.Wrap(services.ErrValidation, "approval", string(opSearchSeries), "query is required", nil)
		}
		var group *SeriesGroup
		switch s.Status {
		case StatusSeriesReview:
			group = s.CurrentGroup()
		case StatusFileReview:
			group = firstPendingGroup(s)
		}
		if group == nil {
			return invalidState(string(opSearchSeries), "no group awaiting a series")
		}
		e.searchGroup(ctx, group, query)
		return nil
	})
}

// SearchSeriesGroup re-runs the search for a reset group during file review.
func (e *Engine) SearchSeriesGroup(ctx context.Context, sessionID, groupID, query string) (*Session, error) {
	query = strings.TrimSpace(query)
	return e.update(ctx, sessionID, opSearchSeriesGroup, func(ctx context.Context, s *Session) error {
		group := s.Group(groupID)
		if group == nil {
			return outOfRange(string(opSearchSeriesGroup), "unknown group "+groupID)
		}
		if group.Status != GroupPending {
			return invalidState(string(opSearchSeriesGroup), "group "+groupID+" is not awaiting a series")
		}
		if query == "" {
			query = group.Query
		}
		e.searchGroup(ctx, group, query)
		return nil
	})
}

func firstPendingGroup(s *Session) *SeriesGroup {
	for i := range s.SeriesGroups {
		if s.SeriesGroups[i].Status == GroupPending {
			return &s.SeriesGroups[i]
		}
	}
	return nil
}

func findCandidate(group *SeriesGroup, seriesID string) (CandidateSeries, bool) {
	for _, c := range group.SearchResults {
		if c.ID == seriesID {
			return c, true
		}
	}
	return CandidateSeries{}, false
}
