package config

const (
	defaultConfigPath           = "~/.config/longbox/config.toml"
	defaultLibraryDir           = "~/comics"
	defaultDataDir              = "~/.local/share/longbox"
	defaultLogDir               = "~/.local/share/longbox/logs"
	defaultComicVineBaseURL     = "https://comicvine.gamespot.com/api"
	defaultComicVinePerHour     = 180
	defaultComicVineTimeout     = 20
	defaultSessionTTLMinutes    = 30
	defaultSweepIntervalSeconds = 60
	defaultAutoApproveThreshold = 0.8
	defaultIssueMatchThreshold  = 0.7
	defaultPreviewFilenames     = 5
	defaultCacheTTLHours        = 72
	defaultNamingTemplate       = "{{series}} {{number_padded}} ({{year}})"
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMReferer           = "https://github.com/longbox/longbox"
	defaultLLMTitle             = "Longbox Filename Cleanup"
	defaultLLMTimeoutSeconds    = 30
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		ComicVine: ComicVine{
			BaseURL:         defaultComicVineBaseURL,
			RequestsPerHour: defaultComicVinePerHour,
			TimeoutSeconds:  defaultComicVineTimeout,
		},
		Approval: Approval{
			SessionTTLMinutes:    defaultSessionTTLMinutes,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
			AutoApproveThreshold: defaultAutoApproveThreshold,
			IssueMatchThreshold:  defaultIssueMatchThreshold,
			PreviewFilenames:     defaultPreviewFilenames,
		},
		Cache: Cache{
			Enabled:  true,
			TTLHours: defaultCacheTTLHours,
		},
		Naming: Naming{
			Template: defaultNamingTemplate,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
