// Package llm provides an OpenRouter chat client used to clean up noisy comic
// filenames before grouping.
//
// # Cleanup
//
// Cleaner.CleanSeriesName sends the filename with a prompt asking for the
// series, issue number and cover year as JSON. Answers are trimmed and
// validated; an unusable answer is an error so callers fall back to the regex
// parser.
//
// # Configuration
//
// Requires api_key and model; base_url, referer, title and timeout are
// optional. NewFromConfig reports whether cleanup is available.
//
// # Retry Behaviour
//
// Transport retries go through go-retryablehttp: 408, 429 and 5xx responses
// and connection failures are retried with exponential backoff honouring
// Retry-After. Empty completions are retried the same way at the call level.
package llm
