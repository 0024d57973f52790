package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := NewManager("")
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "http://localhost:8000", cfg.Analysis.BaseURL)
	assert.Equal(t, 120*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, 5, cfg.Analysis.RateLimit)
	assert.Equal(t, "http://localhost:8000", m.GetReportConfig().BaseURL)
	assert.False(t, cfg.Cache.Enabled, "response cache is opt-in")
	assert.Equal(t, 256, cfg.Cache.MaxItems)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Empty(t, cfg.Cache.RedisURL)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, "history.db", filepath.Base(cfg.History.DSN))
	assert.Equal(t, "127.0.0.1", m.GetServerConfig().Host)
	assert.Equal(t, 8090, m.GetServerConfig().Port)
	assert.Equal(t, 150*time.Second, m.GetServerConfig().WriteTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ".", cfg.Export.Dir)

	assert.NoError(t, m.Validate())
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PHARMAGUARD_ANALYSIS_BASE_URL", "https://pgx.example.org")
	t.Setenv("PHARMAGUARD_ANALYSIS_TIMEOUT", "45s")
	t.Setenv("PHARMAGUARD_CACHE_ENABLED", "true")
	t.Setenv("PHARMAGUARD_SERVER_PORT", "9191")
	t.Setenv("PHARMAGUARD_LOGGING_LEVEL", "debug")

	m, err := NewManager("")
	require.NoError(t, err)

	assert.Equal(t, "https://pgx.example.org", m.GetAnalysisConfig().BaseURL)
	assert.Equal(t, 45*time.Second, m.GetAnalysisConfig().Timeout)
	assert.True(t, m.GetConfig().Cache.Enabled)
	assert.Equal(t, 9191, m.GetServerConfig().Port)
	assert.Equal(t, "debug", m.GetConfig().Logging.Level)
}

func TestNewManager_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := []byte(`
analysis:
  base_url: http://analysis.internal:9000
report:
  base_url: http://report.internal:9001
history:
  driver: none
export:
  dir: ~/exports
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := NewManager(path)
	require.NoError(t, err)

	assert.Equal(t, path, m.ConfigFileUsed())
	assert.Equal(t, "http://analysis.internal:9000", m.GetAnalysisConfig().BaseURL)
	assert.Equal(t, "http://report.internal:9001", m.GetReportConfig().BaseURL)
	assert.Equal(t, "none", m.GetConfig().History.Driver)
	assert.NotContains(t, m.GetConfig().Export.Dir, "~")
	assert.NoError(t, m.Validate())
}

func TestNewManager_MissingExplicitFile(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestManager_Set(t *testing.T) {
	t.Chdir(t.TempDir())
	m, err := NewManager("")
	require.NoError(t, err)

	require.NoError(t, m.Set("analysis.base_url", "http://other:8000"))
	assert.Equal(t, "http://other:8000", m.GetAnalysisConfig().BaseURL)
}

func TestManager_Validate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   interface{}
		wantErr string
	}{
		{"missing analysis url", "analysis.base_url", "", "analysis base URL is required"},
		{"relative report url", "report.base_url", "localhost", "invalid report base URL"},
		{"ftp scheme", "analysis.base_url", "ftp://host", "unsupported analysis URL scheme"},
		{"bad port", "server.port", 70000, "invalid server port"},
		{"bad driver", "history.driver", "mongo", "unsupported history driver"},
		{"sqlite without dsn", "history.dsn", "", "history dsn is required"},
		{"bad log level", "logging.level", "loud", "invalid log level"},
		{"empty cache", "cache.max_items", 0, "cache max_items must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			m, err := NewManager("")
			require.NoError(t, err)
			require.NoError(t, m.Set("cache.enabled", true))
			require.NoError(t, m.Set(tt.key, tt.value))

			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_DisabledCacheIgnoresSize(t *testing.T) {
	t.Chdir(t.TempDir())
	m, err := NewManager("")
	require.NoError(t, err)
	require.NoError(t, m.Set("cache.max_items", 0))

	assert.NoError(t, m.Validate())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data", "h.db"), ExpandHome("~/data/h.db"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/var/lib/h.db", ExpandHome("/var/lib/h.db"))
	assert.Equal(t, "~other/x", ExpandHome("~other/x"))
}

func TestEnsureParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	require.NoError(t, EnsureParentDir(path))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
