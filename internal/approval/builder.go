package approval

import (
	"context"
	"log/slog"
	"strconv"

	"longbox/internal/logging"
	"longbox/internal/services"
)

// issueLists caches issue listings and details for the duration of one build.
type issueLists struct {
	listings map[string][]Issue
	details  map[string]Issue
}

func newIssueLists() *issueLists {
	return &issueLists{listings: map[string][]Issue{}, details: map[string]Issue{}}
}

// buildAllFileChanges materializes a change for every session file in
// session order.
func (e *Engine) buildAllFileChanges(ctx context.Context, s *Session) {
	lists := newIssueLists()
	changes := make([]FileChange, 0, len(s.FileIDs))
	for _, id := range s.FileIDs {
		changes = append(changes, e.buildFileChange(ctx, s, id, s.GroupOfFile(id), lists))
	}
	s.FileChanges = changes
}

// rebuildFiles recomputes the changes for fileIDs from their current groups,
// replacing earlier approvals and edits.
func (e *Engine) rebuildFiles(ctx context.Context, s *Session, fileIDs []string) {
	lists := newIssueLists()
	for _, id := range fileIDs {
		change := e.buildFileChange(ctx, s, id, s.GroupOfFile(id), lists)
		if existing := s.FileChange(id); existing != nil {
			*existing = change
			continue
		}
		s.FileChanges = append(s.FileChanges, change)
	}
}

// buildFileChange matches one file against its group's selected series.
func (e *Engine) buildFileChange(ctx context.Context, s *Session, fileID string, group *SeriesGroup, lists *issueLists) FileChange {
	file := s.files[fileID]
	change := FileChange{
		FileID:   fileID,
		Filename: file.Filename,
		Status:   FileUnmatched,
		Fields:   map[FieldName]FieldDiff{},
	}
	if group == nil || group.SelectedSeries == nil {
		e.refreshRenamePreview(&change, file)
		return change
	}

	logger := logging.WithContext(services.WithFileID(ctx, fileID), e.logger)
	series := group.SelectedSeries
	issues, err := e.issuesFor(ctx, series.Source, group.IssueMatchingSeriesID, lists)
	if err != nil {
		logging.WarnWithContext(logger, "issue listing failed; file left unmatched", "issue_list_failed",
			logging.String(logging.FieldGroupID, group.ID),
			logging.String("series_id", group.IssueMatchingSeriesID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "select the issue manually or reset the group"),
			logging.String(logging.FieldImpact, "file is unmatched"),
		)
		e.refreshRenamePreview(&change, file)
		return change
	}

	issue, score, ok := bestIssue(e.hintFor(s, file), issues)
	if !ok || score < e.issueMatchThreshold {
		logger.Debug("no confident issue match",
			logging.Float64("best_score", score),
			logging.Float64("threshold", e.issueMatchThreshold),
		)
		e.refreshRenamePreview(&change, file)
		return change
	}

	issue = e.withDetail(ctx, logger, issue, lists)
	change.Status = FileMatched
	change.MatchedIssue = issueRef(issue, score)
	change.Fields = e.buildFieldDiffs(file.Fields, proposedValues(series, issue), series.Confidence, score)
	e.refreshRenamePreview(&change, file)
	return change
}

func (e *Engine) issuesFor(ctx context.Context, sourceName, seriesID string, lists *issueLists) ([]Issue, error) {
	key := sourceName + "\x00" + seriesID
	if issues, ok := lists.listings[key]; ok {
		return issues, nil
	}
	src := e.source(sourceName)
	if src == nil {
		return nil, services.Wrap(services.ErrProvider, "approval", "list issues", "unknown source "+sourceName, nil)
	}
	issues, err := src.Issues(ctx, seriesID)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "approval", "list issues", sourceName, err)
	}
	for i := range issues {
		if issues[i].Source == "" {
			issues[i].Source = src.Name()
		}
		if issues[i].SeriesID == "" {
			issues[i].SeriesID = seriesID
		}
	}
	lists.listings[key] = issues
	return issues, nil
}

// withDetail fills credits and summary from the full issue record. Listings
// usually omit them. Lookup failures keep the listing entry.
func (e *Engine) withDetail(ctx context.Context, logger *slog.Logger, issue Issue, lists *issueLists) Issue {
	key := issue.Source + "\x00" + issue.ID
	detail, ok := lists.details[key]
	if !ok {
		src := e.source(issue.Source)
		if src == nil || issue.ID == "" {
			return issue
		}
		var err error
		detail, err = src.Issue(ctx, issue.ID)
		if err != nil {
			logging.WarnWithContext(logger, "issue detail lookup failed; using listing", "issue_detail_failed",
				logging.String("issue_id", issue.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "credits and summary can be edited manually"),
				logging.String(logging.FieldImpact, "credit fields may be missing"),
			)
			return issue
		}
		lists.details[key] = detail
	}
	return mergeIssue(issue, detail)
}

// mergeIssue overlays non-empty detail fields on a listing entry. Identity
// fields always come from the listing.
func mergeIssue(listing, detail Issue) Issue {
	pick := func(base, over string) string {
		if over != "" {
			return over
		}
		return base
	}
	merged := listing
	merged.SeriesName = pick(listing.SeriesName, detail.SeriesName)
	merged.Title = pick(listing.Title, detail.Title)
	merged.Publisher = pick(listing.Publisher, detail.Publisher)
	merged.Writer = pick(listing.Writer, detail.Writer)
	merged.Penciller = pick(listing.Penciller, detail.Penciller)
	merged.CoverArtist = pick(listing.CoverArtist, detail.CoverArtist)
	merged.Summary = pick(listing.Summary, detail.Summary)
	merged.URL = pick(listing.URL, detail.URL)
	if merged.Year == 0 {
		merged.Year = detail.Year
	}
	if merged.Month == 0 {
		merged.Month = detail.Month
	}
	return merged
}

// hintFor prefers parsed filename hints and falls back to current metadata.
func (e *Engine) hintFor(s *Session, file File) issueHint {
	parsed := s.hints[file.ID]
	hint := issueHint{
		Number: parsed.IssueNumber,
		Title:  file.Fields[FieldTitle],
		Year:   parsed.Year,
	}
	if hint.Number == "" {
		hint.Number = file.Fields[FieldNumber]
	}
	if hint.Year == 0 {
		hint.Year, _ = strconv.Atoi(file.Fields[FieldYear])
	}
	return hint
}

// buildFieldDiffs compares current values with proposed ones. Series-derived
// fields carry the series confidence, the rest carry the issue score. Fields
// with nothing proposed are omitted.
func (e *Engine) buildFieldDiffs(current, proposed map[FieldName]string, seriesConfidence, issueConfidence float64) map[FieldName]FieldDiff {
	diffs := make(map[FieldName]FieldDiff, len(proposed))
	for _, name := range Fields {
		value, ok := proposed[name]
		if !ok || value == "" {
			continue
		}
		confidence := issueConfidence
		if seriesFields[name] {
			confidence = seriesConfidence
		}
		diffs[name] = newFieldDiff(current[name], value, confidence, e.autoApproveThreshold)
	}
	return diffs
}

// newFieldDiff pre-approves a field only when it is confident and would
// actually change the stored value.
func newFieldDiff(current, proposed string, confidence, threshold float64) FieldDiff {
	return FieldDiff{
		Current:    current,
		Proposed:   proposed,
		Approved:   confidence >= threshold && current != proposed,
		Confidence: confidence,
	}
}

// proposedValues maps a series and issue onto bibliographic fields. A nil
// series falls back to what the issue knows about its series.
func proposedValues(series *CandidateSeries, issue Issue) map[FieldName]string {
	values := map[FieldName]string{
		FieldSeries:      issue.SeriesName,
		FieldNumber:      issue.Number,
		FieldTitle:       issue.Title,
		FieldPublisher:   issue.Publisher,
		FieldWriter:      issue.Writer,
		FieldPenciller:   issue.Penciller,
		FieldCoverArtist: issue.CoverArtist,
		FieldSummary:     issue.Summary,
		FieldWeb:         issue.URL,
	}
	if issue.Year > 0 {
		values[FieldYear] = strconv.Itoa(issue.Year)
	}
	if issue.Month > 0 {
		values[FieldMonth] = strconv.Itoa(issue.Month)
	}
	if series != nil {
		if series.Name != "" {
			values[FieldSeries] = series.Name
		}
		if series.Publisher != "" {
			values[FieldPublisher] = series.Publisher
		}
		if series.Year > 0 {
			values[FieldVolume] = strconv.Itoa(series.Year)
		}
	}
	return values
}

func issueRef(issue Issue, score float64) *IssueRef {
	return &IssueRef{
		ID:       issue.ID,
		Source:   issue.Source,
		SeriesID: issue.SeriesID,
		Number:   issue.Number,
		Title:    issue.Title,
		Score:    score,
	}
}

// effectiveFields overlays approved values on the file's current metadata.
func effectiveFields(file File, change *FileChange) map[FieldName]string {
	out := make(map[FieldName]string, len(file.Fields)+len(change.Fields))
	for name, value := range file.Fields {
		out[name] = value
	}
	for name, value := range change.ApprovedFields() {
		out[name] = value
	}
	return out
}

// refreshRenamePreview recomputes the preview from the effective fields.
// Resolver errors clear the preview.
func (e *Engine) refreshRenamePreview(change *FileChange, file File) {
	if e.renamer == nil {
		return
	}
	preview, err := e.renamer.Preview(effectiveFields(file, change))
	if err != nil || preview == "" {
		change.RenamePreview = nil
		return
	}
	change.RenamePreview = &preview
}
