// Package naming renders rename previews from a mustache template.
//
// Templates see every metadata field by name ({{series}}, {{number}},
// {{year}}, ...) plus number_padded, the issue number zero-padded to three
// digits with any decimal or letter suffix kept. Rendered names are sanitized
// for the filesystem and empty bracket groups left by missing fields are
// removed.
package naming
