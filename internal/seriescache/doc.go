// Package seriescache provides a SQLite-backed read-through cache in front of
// a series provider.
//
// Search results, issue listings and single-issue lookups are stored as JSON
// rows keyed by (kind, source, key) with an expiry. The cache implements the
// same interface as the provider it wraps, so the approval engine never knows
// whether a response came from disk or the network. Lookup errors fall
// through to the provider and write errors are logged rather than returned.
package seriescache
