// Package comicvine wraps the ComicVine REST API for series (volume) search
// and issue lookup.
//
// Requests go through a retrying transport (hashicorp/go-retryablehttp) and a
// token-bucket limiter sized from the configured hourly request budget.
// Search hits are scored into a confidence in [0,1] from name similarity,
// start-year proximity, publisher agreement and run length.
package comicvine
