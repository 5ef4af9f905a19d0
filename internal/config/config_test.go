package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultPGHost, cfg.Postgres.Host)
	assert.Equal(t, DefaultPGPort, cfg.Postgres.Port)
	assert.Equal(t, DefaultOpenAIURL, cfg.OpenAI.BaseURL)
	assert.Equal(t, DefaultOpenAIModel, cfg.OpenAI.Model)
	assert.Equal(t, DefaultPollInterval, cfg.Telegram.PollIntervalSeconds)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[log]
level = "debug"

[postgres]
host = "db.internal"
database = "bots"

[telegram]
token_secret = "from-file"
poll_interval_seconds = 10
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "bots", cfg.Postgres.Database)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, DefaultPGPort, cfg.Postgres.Port)
	assert.Equal(t, "from-file", cfg.Telegram.TokenSecret)
	assert.Equal(t, 10, cfg.Telegram.PollIntervalSeconds)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "env-pass")
	t.Setenv("TELEGRAM_TOKEN_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "env-pass", cfg.Postgres.Password)
	assert.Equal(t, "env-secret", cfg.Telegram.TokenSecret)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	cfg.Postgres.Database = ""
	assert.Error(t, cfg.Validate())
}
