package config

import (
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} references in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable
// values. Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	if cfg.Channels.Telegram != nil {
		cfg.Channels.Telegram.Token = expandEnvVars(cfg.Channels.Telegram.Token)
	}
	cfg.Finance.SheetsAPIKey = expandEnvVars(cfg.Finance.SheetsAPIKey)
}

// Load reads the config file, applies defaults and environment
// overrides, and returns a merged Config. A missing file produces
// defaults only.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(&cfg)
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with production defaults.
func applyDefaults(cfg *Config) {
	if cfg.Session.IdleHours == 0 {
		cfg.Session.IdleHours = 24
	}
	if cfg.Session.InputTTLSeconds == 0 {
		cfg.Session.InputTTLSeconds = 300
	}
	if cfg.Session.HistoryDepth == 0 {
		cfg.Session.HistoryDepth = 10
	}
	if cfg.Session.SweepMinutes == 0 {
		cfg.Session.SweepMinutes = 60
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = "sqlite"
	}
	if cfg.Weather.DefaultCity == "" {
		cfg.Weather.DefaultCity = "Moscow"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = "pretty"
	}
	if cfg.Channels.Telegram != nil && cfg.Channels.Telegram.PollTimeout == 0 {
		cfg.Channels.Telegram.PollTimeout = 30
	}
}

// applyEnvOverrides reads TEO_* environment variables over config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TEO_TELEGRAM_TOKEN"); v != "" {
		if cfg.Channels.Telegram == nil {
			cfg.Channels.Telegram = &TelegramConfig{PollTimeout: 30}
		}
		cfg.Channels.Telegram.Token = v
	}
	if v := os.Getenv("TEO_WEBCHAT_ADDR"); v != "" {
		if cfg.Channels.Webchat == nil {
			cfg.Channels.Webchat = &WebchatConfig{}
		}
		cfg.Channels.Webchat.Addr = v
	}
	if v := os.Getenv("TEO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TEO_SESSION_IDLE_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.IdleHours = n
		}
	}
}
