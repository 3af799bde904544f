// Package logging builds the slog loggers used across longbox.
//
// Two handlers are available: a single-line console format that prefixes each
// record with its component and approval session, and JSON for machine
// consumption. WithContext lifts session, file and correlation ids carried on
// a context into log attributes; WarnWithContext and ErrorWithContext make
// every warning say what happened, what to try next and what it cost.
package logging
