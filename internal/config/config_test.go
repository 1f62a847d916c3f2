package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Session.IdleHours)
	assert.Equal(t, 300, cfg.Session.InputTTLSeconds)
	assert.Equal(t, 10, cfg.Session.HistoryDepth)
	assert.Equal(t, 60, cfg.Session.SweepMinutes)
	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Nil(t, cfg.Channels.Telegram)
}

func TestLoad_FileValuesOverrideDefaults(t *testing.T) {
	path := writeConfig(t, `
channels:
  telegram:
    token: "123:abc"
session:
  historyDepth: 5
  inputTtlSeconds: 120
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Session.HistoryDepth)
	assert.Equal(t, 120, cfg.Session.InputTTLSeconds)
	assert.Equal(t, 24, cfg.Session.IdleHours, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)

	require.NotNil(t, cfg.Channels.Telegram)
	assert.Equal(t, "123:abc", cfg.Channels.Telegram.Token)
	assert.Equal(t, 30, cfg.Channels.Telegram.PollTimeout, "poll timeout defaulted")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "channels: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TEO_TELEGRAM_TOKEN", "env-token")
	t.Setenv("TEO_LOG_LEVEL", "warn")
	t.Setenv("TEO_SESSION_IDLE_HOURS", "48")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	require.NotNil(t, cfg.Channels.Telegram)
	assert.Equal(t, "env-token", cfg.Channels.Telegram.Token)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 48, cfg.Session.IdleHours)
}

func TestLoad_ExpandsSecretReferences(t *testing.T) {
	t.Setenv("MY_BOT_TOKEN", "s3cret")
	path := writeConfig(t, `
channels:
  telegram:
    token: "${MY_BOT_TOKEN}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Channels.Telegram.Token)
}

func TestLoad_UnsetSecretReferenceLeftVerbatim(t *testing.T) {
	path := writeConfig(t, `
channels:
  telegram:
    token: "${DEFINITELY_NOT_SET_12345}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${DEFINITELY_NOT_SET_12345}", cfg.Channels.Telegram.Token)
}

func TestValidate(t *testing.T) {
	valid := Config{}
	applyDefaults(&valid)
	valid.Channels.Webchat = &WebchatConfig{Addr: "127.0.0.1:8035"}
	assert.Empty(t, Validate(&valid))

	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"no channels", func(c *Config) { c.Channels.Webchat = nil }, "channels"},
		{"empty telegram token", func(c *Config) {
			c.Channels.Telegram = &TelegramConfig{}
		}, "channels.telegram.token"},
		{"empty webchat addr", func(c *Config) {
			c.Channels.Webchat = &WebchatConfig{}
		}, "channels.webchat.addr"},
		{"zero history depth", func(c *Config) { c.Session.HistoryDepth = 0 }, "session.historyDepth"},
		{"zero ttl", func(c *Config) { c.Session.InputTTLSeconds = 0 }, "session.inputTtlSeconds"},
		{"unknown store", func(c *Config) { c.Session.Store = "redis" }, "session.store"},
		{"unknown log style", func(c *Config) { c.Logging.Style = "fancy" }, "logging.style"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			issues := Validate(&cfg)
			require.NotEmpty(t, issues)

			found := false
			for _, issue := range issues {
				if issue.Path == tt.path {
					found = true
				}
			}
			assert.True(t, found, "expected an issue at %s", tt.path)
		})
	}
}

func TestRawRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	raw := map[string]any{}
	p, err := ParsePath("session.historyDepth")
	require.NoError(t, err)
	SetValueAt(raw, p, 5)
	require.NoError(t, SaveRaw(path, raw))

	loaded, err := LoadRaw(path)
	require.NoError(t, err)
	val, ok := ValueAt(loaded, p)
	require.True(t, ok)
	assert.Equal(t, 5, val)

	assert.True(t, UnsetValueAt(loaded, p))
	_, ok = ValueAt(loaded, p)
	assert.False(t, ok)
}

func TestParsePath_RejectsBlockedKeys(t *testing.T) {
	_, err := ParsePath("session.__proto__")
	assert.Error(t, err)

	_, err = ParsePath("")
	assert.Error(t, err)

	_, err = ParsePath("a..b")
	assert.Error(t, err)
}
