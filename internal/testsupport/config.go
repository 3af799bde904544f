package testsupport

import (
	"path/filepath"
	"testing"

	"longbox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.ComicVine.APIKey = "test"
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Cache.Path = filepath.Join(base, "data", "series_cache.db")
	cfgVal.Logging.Format = "json"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithComicVine points the series provider at baseURL with the given key.
func WithComicVine(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ComicVine.BaseURL = baseURL
		b.cfg.ComicVine.APIKey = key
	}
}

// WithThresholds overrides the auto-approve and issue-match thresholds.
func WithThresholds(autoApprove, issueMatch float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Approval.AutoApproveThreshold = autoApprove
		b.cfg.Approval.IssueMatchThreshold = issueMatch
	}
}

// WithNamingTemplate overrides the rename template.
func WithNamingTemplate(template string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Naming.Template = template
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
