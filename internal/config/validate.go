package config

import "fmt"

// ConfigError is a structured configuration failure.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Issue is one validation finding, pointing at a config path.
type Issue struct {
	Path    string
	Message string
}

// Validate checks a loaded config for problems that would prevent a
// clean start. It returns all findings rather than stopping at the
// first.
func Validate(cfg *Config) []Issue {
	var issues []Issue

	if cfg.Channels.Telegram == nil && cfg.Channels.Webchat == nil {
		issues = append(issues, Issue{
			Path:    "channels",
			Message: "no channels configured; enable telegram or webchat",
		})
	}
	if cfg.Channels.Telegram != nil && cfg.Channels.Telegram.Token == "" {
		issues = append(issues, Issue{
			Path:    "channels.telegram.token",
			Message: "telegram channel enabled but token is empty",
		})
	}
	if cfg.Channels.Webchat != nil && cfg.Channels.Webchat.Addr == "" {
		issues = append(issues, Issue{
			Path:    "channels.webchat.addr",
			Message: "webchat channel enabled but addr is empty",
		})
	}

	if cfg.Session.HistoryDepth < 1 {
		issues = append(issues, Issue{
			Path:    "session.historyDepth",
			Message: fmt.Sprintf("history depth must be at least 1, got %d", cfg.Session.HistoryDepth),
		})
	}
	if cfg.Session.InputTTLSeconds < 1 {
		issues = append(issues, Issue{
			Path:    "session.inputTtlSeconds",
			Message: "input TTL must be positive",
		})
	}
	if cfg.Session.IdleHours < 1 {
		issues = append(issues, Issue{
			Path:    "session.idleHours",
			Message: "idle horizon must be at least one hour",
		})
	}
	switch cfg.Session.Store {
	case "sqlite", "memory":
	default:
		issues = append(issues, Issue{
			Path:    "session.store",
			Message: fmt.Sprintf("unknown store %q; use sqlite or memory", cfg.Session.Store),
		})
	}

	switch cfg.Logging.Style {
	case "", "pretty", "json":
	default:
		issues = append(issues, Issue{
			Path:    "logging.style",
			Message: fmt.Sprintf("unknown style %q; use pretty or json", cfg.Logging.Style),
		})
	}

	return issues
}
