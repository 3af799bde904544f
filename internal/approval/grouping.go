package approval

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"longbox/internal/filename"
	"longbox/internal/logging"
)

type groupDraft struct {
	key        string
	name       string
	fileIDs    []string
	filenames  []string
	years      []int
	publishers []string
}

// groupFiles clusters files by normalized series name. Groups and files keep
// first-seen order; a file without a usable series name forms its own group.
func (e *Engine) groupFiles(ctx context.Context, s *Session, files []File, progress ProgressFunc) {
	var (
		order  []*groupDraft
		byKey  = make(map[string]*groupDraft)
		logger = logging.WithContext(ctx, e.logger)
	)
	for i, file := range files {
		hint := e.parseFile(ctx, s, file, logger)
		if s.UseLLMCleanup && progress != nil {
			progress("Cleaning filenames", fmt.Sprintf("%d of %d", i+1, len(files)))
		}
		s.hints[file.ID] = hint

		key := filename.NormalizeSeriesKey(hint.SeriesName)
		name := hint.SeriesName
		if key == "" {
			key = "file:" + file.ID
			name = filename.Stem(file.Filename)
		}
		draft, ok := byKey[key]
		if !ok {
			draft = &groupDraft{key: key, name: name}
			byKey[key] = draft
			order = append(order, draft)
		}
		draft.fileIDs = append(draft.fileIDs, file.ID)
		draft.filenames = append(draft.filenames, file.Filename)
		draft.years = append(draft.years, hint.Year)
		draft.publishers = append(draft.publishers, hint.Publisher)
	}

	title := cases.Title(language.Und, cases.NoLower)
	s.SeriesGroups = make([]SeriesGroup, 0, len(order))
	for _, draft := range order {
		group := SeriesGroup{
			ID:            s.newGroupID(),
			DisplayName:   title.String(draft.name),
			Query:         draft.name,
			Year:          consistent(draft.years, 0),
			Publisher:     consistent(draft.publishers, ""),
			FileIDs:       draft.fileIDs,
			Status:        GroupPending,
			SearchResults: []CandidateSeries{},
		}
		group.Filenames = e.previewNames(draft.filenames)
		s.SeriesGroups = append(s.SeriesGroups, group)
	}
	s.CurrentSeriesIndex = 0
	logger.Debug("files grouped",
		logging.Int("files", len(files)),
		logging.Int("groups", len(s.SeriesGroups)),
	)
}

// parseFile runs the regex parser and, for LLM sessions, overlays the
// cleaner's answer. Cleaner failures fall back to the regex parse.
func (e *Engine) parseFile(ctx context.Context, s *Session, file File, logger *slog.Logger) ParsedName {
	hint := e.parser.Parse(file.Filename)
	if !s.UseLLMCleanup || e.cleaner == nil {
		return hint
	}
	cleaned, err := e.cleaner.CleanSeriesName(ctx, file.Filename)
	if err != nil {
		logging.WarnWithContext(logger, "llm filename cleanup failed; using parsed name", "llm_cleanup_failed",
			logging.String(logging.FieldFileID, file.ID),
			logging.String("filename", file.Filename),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check llm.api_key and llm.model"),
			logging.String(logging.FieldImpact, "grouping uses the regex filename parse"),
		)
		return hint
	}
	if cleaned.SeriesName != "" {
		hint.SeriesName = cleaned.SeriesName
	}
	if cleaned.IssueNumber != "" {
		hint.IssueNumber = cleaned.IssueNumber
	}
	if cleaned.Year > 0 {
		hint.Year = cleaned.Year
	}
	if cleaned.Volume > 0 {
		hint.Volume = cleaned.Volume
	}
	if cleaned.Publisher != "" {
		hint.Publisher = cleaned.Publisher
	}
	return hint
}

// previewNames returns the leading filenames shown for a group.
func (e *Engine) previewNames(names []string) []string {
	limit := e.previewFilenames
	if limit <= 0 || limit > len(names) {
		limit = len(names)
	}
	return append([]string(nil), names[:limit]...)
}

func (e *Engine) refreshPreviews(s *Session) {
	for i := range s.SeriesGroups {
		group := &s.SeriesGroups[i]
		names := make([]string, 0, len(group.FileIDs))
		for _, id := range group.FileIDs {
			names = append(names, s.files[id].Filename)
		}
		group.Filenames = e.previewNames(names)
	}
}

// consistent returns the shared value when every entry is equal and non-zero,
// otherwise zero.
func consistent[T comparable](values []T, zero T) T {
	if len(values) == 0 {
		return zero
	}
	first := values[0]
	if first == zero {
		return zero
	}
	for _, v := range values[1:] {
		if v != first {
			return zero
		}
	}
	return first
}
