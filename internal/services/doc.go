// Package services defines shared utilities consumed by the approval engine and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, file IDs, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the engine's error taxonomy (not found, invalid state, provider
//     failures, per-file write failures, ...).
//
// Use these helpers when wiring new collaborators so operational behaviour
// (error classification, observability) stays uniform across the engine.
package services
