package preflight

import (
	"context"
	"strings"

	"longbox/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckComicVine(ctx, cfg.ComicVine.BaseURL, cfg.ComicVine.APIKey),
	}

	if cfg.Cache.Enabled {
		results = append(results, CheckSeriesCache(ctx, cfg.Cache.Path))
	}

	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		results = append(results, CheckLLM(ctx, "Filename cleanup LLM", cfg))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
