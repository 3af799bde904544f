package approval

import (
	"context"
	"time"
)

// FileSource resolves catalog file ids to files with their current metadata.
type FileSource interface {
	File(ctx context.Context, id string) (File, error)
}

// FilenameParser extracts grouping hints from a filename.
type FilenameParser interface {
	Parse(filename string) ParsedName
}

// NameCleaner optionally rewrites a noisy filename into parser hints. It is
// consulted only for sessions created with UseLLMCleanup.
type NameCleaner interface {
	CleanSeriesName(ctx context.Context, filename string) (ParsedName, error)
}

// SeriesSource searches for series and lists their issues. Implementations may
// be slow or unreliable; callers tolerate empty results.
type SeriesSource interface {
	Name() string
	SearchSeries(ctx context.Context, query string, opts SearchOptions) ([]CandidateSeries, error)
	Issues(ctx context.Context, seriesID string) ([]Issue, error)
	Issue(ctx context.Context, issueID string) (Issue, error)
}

// MetadataWriter persists field values for one file. Writes are atomic per
// file but not across files.
type MetadataWriter interface {
	ApplyFields(ctx context.Context, fileID string, fields map[FieldName]string) error
}

// RenameResolver renders the filename a field snapshot would produce.
type RenameResolver interface {
	Preview(fields map[FieldName]string) (string, error)
}

// Invalidator is told which files and series changed after an apply.
type Invalidator interface {
	NotifyFilesChanged(ctx context.Context, fileIDs []string) error
	NotifySeriesChanged(ctx context.Context, seriesIDs []string) error
}

// ProgressFunc receives human-readable progress while a session is created.
type ProgressFunc func(message, detail string)

// Clock supplies the current time.
type Clock func() time.Time
