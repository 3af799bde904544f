package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
}

// ComicVine contains configuration for the ComicVine series search API.
type ComicVine struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	RequestsPerHour int    `toml:"requests_per_hour"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Approval contains configuration for metadata approval sessions.
type Approval struct {
	SessionTTLMinutes    int     `toml:"session_ttl_minutes"`
	SweepIntervalSeconds int     `toml:"sweep_interval_seconds"`
	AutoApproveThreshold float64 `toml:"auto_approve_threshold"`
	IssueMatchThreshold  float64 `toml:"issue_match_threshold"`
	PreviewFilenames     int     `toml:"preview_filenames"`
}

// Cache contains configuration for the read-through series cache.
type Cache struct {
	Enabled  bool   `toml:"enabled"`
	Path     string `toml:"path"`
	TTLHours int    `toml:"ttl_hours"`
}

// Naming contains the rename template used for filename previews.
type Naming struct {
	Template string `toml:"template"`
}

// LLM contains connection settings for filename cleanup.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains invalidation webhook and ntfy settings.
type Notifications struct {
	InvalidationURL string `toml:"invalidation_url"`
	NtfyTopic       string `toml:"ntfy_topic"`
	RequestTimeout  int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for longbox.
//
// Configuration sections by subsystem:
//   - Paths: library, data, and log directories
//   - ComicVine: series/issue search provider
//   - Approval: session TTL, sweep cadence, and confidence thresholds
//   - Cache: sqlite read-through cache for provider responses
//   - Naming: rename preview template
//   - LLM: optional filename cleanup before grouping
//   - Notifications: library invalidation webhook and ntfy summaries
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	ComicVine     ComicVine     `toml:"comicvine"`
	Approval      Approval      `toml:"approval"`
	Cache         Cache         `toml:"cache"`
	Naming        Naming        `toml:"naming"`
	LLM           LLM           `toml:"llm"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("longbox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SessionTTL returns the inactivity window after which sessions are swept.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Approval.SessionTTLMinutes) * time.Minute
}

// SweepInterval returns how often expired sessions are swept.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Approval.SweepIntervalSeconds) * time.Second
}

// CacheTTL returns how long cached provider responses stay fresh.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// LockPath returns the path of the lock file guarding library writes.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "apply.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
