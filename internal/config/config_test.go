package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 8, cfg.Week.MaxWeeksAhead)
	assert.Equal(t, time.Duration(0), cfg.Week.SubmissionCutoff)
	assert.True(t, cfg.Review.RequireRejectComment)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RememberTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
week:
  max_weeks_ahead: 4
  submission_cutoff: 36h
  timezone: Asia/Shanghai
store:
  backend: database
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Week.MaxWeeksAhead)
	assert.Equal(t, 36*time.Hour, cfg.Week.SubmissionCutoff)
	assert.Equal(t, "database", cfg.Store.Backend)

	loc, err := cfg.Week.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", loc.String())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_WEEK_MAX_WEEKS_AHEAD", "3")
	t.Setenv("APP_SERVER_PORT", "7070")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Week.MaxWeeksAhead)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"bad backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"negative weeks", func(c *Config) { c.Week.MaxWeeksAhead = -1 }},
		{"negative cutoff", func(c *Config) { c.Week.SubmissionCutoff = -time.Hour }},
		{"bad timezone", func(c *Config) { c.Week.Timezone = "Mars/Olympus" }},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"default secret in production", func(c *Config) { c.Env = "production" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSetDefaults_Production(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	cfg := Default()
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 200, cfg.Database.MaxOpenConns)
}
