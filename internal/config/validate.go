package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cbroglie/mustache"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateApproval(); err != nil {
		return err
	}
	if err := c.validateNaming(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireComicVine reports a descriptive error when the series provider is not
// configured. Commands that never search (cache, config) skip this check.
func (c *Config) RequireComicVine() error {
	if strings.TrimSpace(c.ComicVine.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("comicvine.api_key is required. Set COMICVINE_API_KEY env var or edit %s (create with 'longbox config init')", defaultPath)
}

func (c *Config) validateApproval() error {
	if c.Approval.AutoApproveThreshold < 0 || c.Approval.AutoApproveThreshold > 1 {
		return errors.New("approval.auto_approve_threshold must be between 0 and 1")
	}
	if c.Approval.IssueMatchThreshold < 0 || c.Approval.IssueMatchThreshold > 1 {
		return errors.New("approval.issue_match_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateNaming() error {
	if _, err := mustache.ParseString(c.Naming.Template); err != nil {
		return fmt.Errorf("naming.template: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
