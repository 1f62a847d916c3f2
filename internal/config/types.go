package config

// Config is the root configuration for Teo.
type Config struct {
	Channels ChannelsConfig `yaml:"channels,omitempty"`
	Session  SessionConfig  `yaml:"session,omitempty"`
	Weather  WeatherConfig  `yaml:"weather,omitempty"`
	Finance  FinanceConfig  `yaml:"finance,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// ChannelsConfig defines channel-specific configurations. A nil entry
// leaves that channel disabled.
type ChannelsConfig struct {
	Telegram *TelegramConfig `yaml:"telegram,omitempty"`
	Webchat  *WebchatConfig  `yaml:"webchat,omitempty"`
}

// TelegramConfig defines Telegram Bot API settings.
type TelegramConfig struct {
	Token       string `yaml:"token"`
	PollTimeout int    `yaml:"pollTimeout,omitempty"` // seconds
}

// WebchatConfig defines the local WebSocket channel.
type WebchatConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// SessionConfig defines anchor session behavior. The boundary semantics
// (history eviction, TTL expiry) are fixed; only the sizes are tunable.
type SessionConfig struct {
	IdleHours       int    `yaml:"idleHours,omitempty"`       // purge sessions idle this long (default 24)
	InputTTLSeconds int    `yaml:"inputTtlSeconds,omitempty"` // awaiting-input TTL (default 300)
	HistoryDepth    int    `yaml:"historyDepth,omitempty"`    // back-stack bound (default 10)
	SweepMinutes    int    `yaml:"sweepMinutes,omitempty"`    // idle sweep interval (default 60)
	Store           string `yaml:"store,omitempty"`           // "sqlite" | "memory"
}

// WeatherConfig defines the weather feature.
type WeatherConfig struct {
	DefaultCity string `yaml:"defaultCity,omitempty"`
}

// FinanceConfig defines the Google Sheets finance feature.
type FinanceConfig struct {
	SheetsAPIKey string `yaml:"sheetsApiKey,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent".."trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}
