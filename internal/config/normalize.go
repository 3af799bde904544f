package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeComicVine()
	c.normalizeApproval()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeNaming()
	c.normalizeLLM()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeComicVine() {
	c.ComicVine.APIKey = strings.TrimSpace(c.ComicVine.APIKey)
	if c.ComicVine.APIKey == "" {
		if value, ok := os.LookupEnv("COMICVINE_API_KEY"); ok {
			c.ComicVine.APIKey = strings.TrimSpace(value)
		}
	}
	c.ComicVine.BaseURL = strings.TrimRight(strings.TrimSpace(c.ComicVine.BaseURL), "/")
	if c.ComicVine.BaseURL == "" {
		c.ComicVine.BaseURL = defaultComicVineBaseURL
	}
	if c.ComicVine.RequestsPerHour <= 0 {
		c.ComicVine.RequestsPerHour = defaultComicVinePerHour
	}
	if c.ComicVine.TimeoutSeconds <= 0 {
		c.ComicVine.TimeoutSeconds = defaultComicVineTimeout
	}
}

func (c *Config) normalizeApproval() {
	if c.Approval.SessionTTLMinutes <= 0 {
		c.Approval.SessionTTLMinutes = defaultSessionTTLMinutes
	}
	if c.Approval.SweepIntervalSeconds <= 0 {
		c.Approval.SweepIntervalSeconds = defaultSweepIntervalSeconds
	}
	if c.Approval.PreviewFilenames <= 0 {
		c.Approval.PreviewFilenames = defaultPreviewFilenames
	}
}

func (c *Config) normalizeCache() error {
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = filepath.Join(c.Paths.DataDir, "series_cache.db")
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = defaultCacheTTLHours
	}
	return nil
}

func (c *Config) normalizeNaming() {
	c.Naming.Template = strings.TrimSpace(c.Naming.Template)
	if c.Naming.Template == "" {
		c.Naming.Template = defaultNamingTemplate
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.InvalidationURL = strings.TrimSpace(c.Notifications.InvalidationURL)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
