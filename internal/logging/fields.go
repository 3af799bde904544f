package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID is the standardized key for approval session identifiers.
	FieldSessionID = "session_id"
	// FieldFileID is the standardized key for catalog file identifiers.
	FieldFileID = "file_id"
	// FieldGroupID is the standardized key for series group identifiers.
	FieldGroupID = "group_id"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (e.g. "series_search_failed").
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)
