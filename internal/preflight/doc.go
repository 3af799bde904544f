// Package preflight provides readiness checks for the directories, providers
// and caches longbox depends on.
//
// The CLI "longbox doctor" command runs RunAll and renders one row per
// result. Each check is gated by its config section: the LLM check only runs
// with an api key, the cache check only when the cache is enabled.
package preflight
