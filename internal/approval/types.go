package approval

import (
	"maps"
	"slices"
	"strconv"
	"time"

	"longbox/internal/filename"
)

// SessionStatus is the phase of an approval session.
type SessionStatus string

const (
	StatusSeriesReview SessionStatus = "series_review"
	StatusFileReview   SessionStatus = "file_review"
	StatusApplying     SessionStatus = "applying"
	StatusComplete     SessionStatus = "complete"
	StatusError        SessionStatus = "error"
)

// Terminal reports whether no further operation is accepted.
func (s SessionStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// GroupStatus is the review state of a series group.
type GroupStatus string

const (
	GroupPending   GroupStatus = "pending"
	GroupSearching GroupStatus = "searching"
	GroupApproved  GroupStatus = "approved"
	GroupSkipped   GroupStatus = "skipped"
)

// FileStatus is the match state of a file change.
type FileStatus string

const (
	FileMatched   FileStatus = "matched"
	FileUnmatched FileStatus = "unmatched"
	FileManual    FileStatus = "manual"
	FileRejected  FileStatus = "rejected"
)

// FieldName identifies one bibliographic field of a comic file.
type FieldName string

const (
	FieldSeries      FieldName = "series"
	FieldNumber      FieldName = "number"
	FieldTitle       FieldName = "title"
	FieldVolume      FieldName = "volume"
	FieldYear        FieldName = "year"
	FieldMonth       FieldName = "month"
	FieldPublisher   FieldName = "publisher"
	FieldWriter      FieldName = "writer"
	FieldPenciller   FieldName = "penciller"
	FieldCoverArtist FieldName = "cover_artist"
	FieldSummary     FieldName = "summary"
	FieldWeb         FieldName = "web"
)

// Fields lists every field in display order.
var Fields = []FieldName{
	FieldSeries, FieldNumber, FieldTitle, FieldVolume, FieldYear, FieldMonth,
	FieldPublisher, FieldWriter, FieldPenciller, FieldCoverArtist, FieldSummary, FieldWeb,
}

// seriesFields take their confidence from the selected series rather than the
// issue match.
var seriesFields = map[FieldName]bool{
	FieldSeries:    true,
	FieldVolume:    true,
	FieldPublisher: true,
}

// ParsedName is the filename parser output used for grouping.
type ParsedName = filename.Parsed

// File is one catalog entry with its current metadata.
type File struct {
	ID       string
	Path     string
	Filename string
	Fields   map[FieldName]string
}

// SearchOptions narrows a series search.
type SearchOptions struct {
	Year      int
	Publisher string
}

// CandidateSeries is one search hit from a series source.
type CandidateSeries struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Name       string  `json:"name"`
	Publisher  string  `json:"publisher,omitempty"`
	Year       int     `json:"year,omitempty"`
	IssueCount int     `json:"issue_count,omitempty"`
	Confidence float64 `json:"confidence"`
	URL        string  `json:"url,omitempty"`
}

// Issue is the full issue record returned by a series source.
type Issue struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	SeriesID    string `json:"series_id"`
	SeriesName  string `json:"series_name,omitempty"`
	Number      string `json:"number"`
	Title       string `json:"title,omitempty"`
	Year        int    `json:"year,omitempty"`
	Month       int    `json:"month,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Writer      string `json:"writer,omitempty"`
	Penciller   string `json:"penciller,omitempty"`
	CoverArtist string `json:"cover_artist,omitempty"`
	Summary     string `json:"summary,omitempty"`
	URL         string `json:"url,omitempty"`
}

// IssueRef identifies the issue a file change was matched to.
type IssueRef struct {
	ID       string  `json:"id"`
	Source   string  `json:"source"`
	SeriesID string  `json:"series_id"`
	Number   string  `json:"number"`
	Title    string  `json:"title,omitempty"`
	Score    float64 `json:"score"`
}

// SeriesGroup is a cluster of files believed to belong to one series.
type SeriesGroup struct {
	ID                    string            `json:"id"`
	DisplayName           string            `json:"display_name"`
	Query                 string            `json:"query"`
	Year                  int               `json:"year,omitempty"`
	Publisher             string            `json:"publisher,omitempty"`
	FileIDs               []string          `json:"file_ids"`
	Filenames             []string          `json:"filenames"`
	Status                GroupStatus       `json:"status"`
	SearchResults         []CandidateSeries `json:"search_results"`
	SelectedSeries        *CandidateSeries  `json:"selected_series,omitempty"`
	IssueMatchingSeriesID string            `json:"issue_matching_series_id,omitempty"`
}

// SearchOptions returns the filters derived from the group's files.
func (g *SeriesGroup) SearchOptions() SearchOptions {
	return SearchOptions{Year: g.Year, Publisher: g.Publisher}
}

// FieldDiff compares a field's current value with the proposed one.
type FieldDiff struct {
	Current    string  `json:"current"`
	Proposed   string  `json:"proposed"`
	Approved   bool    `json:"approved"`
	Edited     *string `json:"edited,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Value returns the value that would be written when the diff is approved.
func (d FieldDiff) Value() string {
	if d.Edited != nil {
		return *d.Edited
	}
	return d.Proposed
}

// FileChange is the per-file review record.
type FileChange struct {
	FileID        string                  `json:"file_id"`
	Filename      string                  `json:"filename"`
	Status        FileStatus              `json:"status"`
	MatchedIssue  *IssueRef               `json:"matched_issue,omitempty"`
	Fields        map[FieldName]FieldDiff `json:"fields"`
	RenamePreview *string                 `json:"rename_preview,omitempty"`

	// restoreStatus is the status a rejected file returns to on accept-all.
	restoreStatus FileStatus
}

// ApprovedFields returns the values to write: approved diffs only, with edited
// values preferred over proposed ones. Rejected files yield nil.
func (fc *FileChange) ApprovedFields() map[FieldName]string {
	if fc.Status == FileRejected {
		return nil
	}
	out := make(map[FieldName]string)
	for name, diff := range fc.Fields {
		if diff.Approved {
			out[name] = diff.Value()
		}
	}
	return out
}

// ApplyError records one failed file write.
type ApplyError struct {
	FileID string `json:"file_id"`
	Error  string `json:"error"`
}

// ApplyResult summarizes an apply run. Processed counts files that were
// written or attempted; Skipped counts non-rejected files with nothing approved.
type ApplyResult struct {
	Processed    int          `json:"processed"`
	Succeeded    int          `json:"succeeded"`
	Failed       int          `json:"failed"`
	Skipped      int          `json:"skipped"`
	Errors       []ApplyError `json:"errors"`
	SucceededIDs []string     `json:"succeeded_ids"`
}

// SessionOptions configure a new session.
type SessionOptions struct {
	UseLLMCleanup bool
}

// Session is one approval workflow instance over a fixed file set.
type Session struct {
	ID                 string        `json:"id"`
	FileIDs            []string      `json:"file_ids"`
	Status             SessionStatus `json:"status"`
	UseLLMCleanup      bool          `json:"use_llm_cleanup"`
	SeriesGroups       []SeriesGroup `json:"series_groups"`
	CurrentSeriesIndex int           `json:"current_series_index"`
	FileChanges        []FileChange  `json:"file_changes"`
	Result             *ApplyResult  `json:"result,omitempty"`
	Error              string        `json:"error,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	ExpiresAt          time.Time     `json:"expires_at"`

	// files is the catalog snapshot taken at creation, keyed by file id.
	files  map[string]File
	hints  map[string]ParsedName
	nextID int
}

// GroupIndex returns the display index of the group with id, or -1.
func (s *Session) GroupIndex(id string) int {
	for i := range s.SeriesGroups {
		if s.SeriesGroups[i].ID == id {
			return i
		}
	}
	return -1
}

// Group returns the group with id, or nil.
func (s *Session) Group(id string) *SeriesGroup {
	if idx := s.GroupIndex(id); idx >= 0 {
		return &s.SeriesGroups[idx]
	}
	return nil
}

// CurrentGroup returns the group under review in series_review, or nil.
func (s *Session) CurrentGroup() *SeriesGroup {
	if s.CurrentSeriesIndex < 0 || s.CurrentSeriesIndex >= len(s.SeriesGroups) {
		return nil
	}
	return &s.SeriesGroups[s.CurrentSeriesIndex]
}

// FileChange returns the change for fileID, or nil.
func (s *Session) FileChange(fileID string) *FileChange {
	for i := range s.FileChanges {
		if s.FileChanges[i].FileID == fileID {
			return &s.FileChanges[i]
		}
	}
	return nil
}

// GroupOfFile returns the group currently holding fileID, or nil.
func (s *Session) GroupOfFile(fileID string) *SeriesGroup {
	for i := range s.SeriesGroups {
		for _, id := range s.SeriesGroups[i].FileIDs {
			if id == fileID {
				return &s.SeriesGroups[i]
			}
		}
	}
	return nil
}

func (s *Session) newGroupID() string {
	s.nextID++
	return "g-" + strconv.Itoa(s.nextID)
}

// Clone returns a deep copy sharing no mutable state with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.FileIDs = slices.Clone(s.FileIDs)
	out.SeriesGroups = make([]SeriesGroup, len(s.SeriesGroups))
	for i, g := range s.SeriesGroups {
		out.SeriesGroups[i] = g.clone()
	}
	out.FileChanges = make([]FileChange, len(s.FileChanges))
	for i, fc := range s.FileChanges {
		out.FileChanges[i] = fc.clone()
	}
	if s.Result != nil {
		r := *s.Result
		r.Errors = slices.Clone(s.Result.Errors)
		r.SucceededIDs = slices.Clone(s.Result.SucceededIDs)
		out.Result = &r
	}
	out.files = make(map[string]File, len(s.files))
	for id, f := range s.files {
		f.Fields = maps.Clone(f.Fields)
		out.files[id] = f
	}
	out.hints = maps.Clone(s.hints)
	return &out
}

func (g SeriesGroup) clone() SeriesGroup {
	g.FileIDs = slices.Clone(g.FileIDs)
	g.Filenames = slices.Clone(g.Filenames)
	g.SearchResults = slices.Clone(g.SearchResults)
	if g.SelectedSeries != nil {
		sel := *g.SelectedSeries
		g.SelectedSeries = &sel
	}
	return g
}

func (fc FileChange) clone() FileChange {
	if fc.MatchedIssue != nil {
		ref := *fc.MatchedIssue
		fc.MatchedIssue = &ref
	}
	if fc.RenamePreview != nil {
		preview := *fc.RenamePreview
		fc.RenamePreview = &preview
	}
	fields := make(map[FieldName]FieldDiff, len(fc.Fields))
	for name, diff := range fc.Fields {
		if diff.Edited != nil {
			edited := *diff.Edited
			diff.Edited = &edited
		}
		fields[name] = diff
	}
	fc.Fields = fields
	return fc
}
