package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/pharmaguard-client/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g.
// PHARMAGUARD_ANALYSIS_BASE_URL.
const EnvPrefix = "PHARMAGUARD"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager. An empty configFile
// searches the default locations for pharmaguard.yaml.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{v: viper.New(), configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v
	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("pharmaguard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/pharmaguard/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// A missing file is fine when searching; an explicit path must exist.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || m.configFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.History.DSN = ExpandHome(config.History.DSN)
	config.Export.Dir = ExpandHome(config.Export.Dir)

	m.config = config
	return nil
}

func setDefaults(v *viper.Viper) {
	// Analysis service defaults
	v.SetDefault("analysis.base_url", "http://localhost:8000")
	v.SetDefault("analysis.timeout", "120s")
	v.SetDefault("analysis.rate_limit", 5)

	// Report service defaults
	v.SetDefault("report.base_url", "http://localhost:8000")
	v.SetDefault("report.timeout", "120s")
	v.SetDefault("report.rate_limit", 5)

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.max_items", 256)
	v.SetDefault("cache.ttl", "30m")
	v.SetDefault("cache.redis_url", "")

	// History defaults
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.dsn", HistoryDBPath(DefaultDataDir()))

	// Gateway defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("export.dir", ".")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetAnalysisConfig returns the analysis service configuration
func (m *Manager) GetAnalysisConfig() *domain.ServiceConfig {
	return &m.config.Analysis
}

// GetReportConfig returns the report service configuration
func (m *Manager) GetReportConfig() *domain.ServiceConfig {
	return &m.config.Report
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Set overrides a single key and re-reads the configuration. It is used by
// CLI flags that shadow configuration keys.
func (m *Manager) Set(key string, value interface{}) error {
	m.v.Set(key, value)
	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.History.DSN = ExpandHome(config.History.DSN)
	config.Export.Dir = ExpandHome(config.Export.Dir)
	m.config = config
	return nil
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if err := validateService("analysis", config.Analysis); err != nil {
		return err
	}
	if err := validateService("report", config.Report); err != nil {
		return err
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Cache.Enabled && config.Cache.MaxItems <= 0 {
		return fmt.Errorf("cache max_items must be positive when the cache is enabled")
	}

	switch config.History.Driver {
	case "sqlite", "postgres":
		if config.History.DSN == "" {
			return fmt.Errorf("history dsn is required for driver %q", config.History.Driver)
		}
	case "none", "":
	default:
		return fmt.Errorf("unsupported history driver: %s", config.History.Driver)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

func validateService(name string, cfg domain.ServiceConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("%s base URL is required", name)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid %s base URL: %s", name, cfg.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported %s URL scheme: %s", name, u.Scheme)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("%s timeout must not be negative", name)
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("%s rate_limit must not be negative", name)
	}
	return nil
}

// AllSettings returns the merged settings keyed as in the config file.
func (m *Manager) AllSettings() map[string]interface{} {
	return m.v.AllSettings()
}

// WriteDefaultFile writes a config file holding every default. An existing
// file is kept unless overwrite is set.
func WriteDefaultFile(path string, overwrite bool) error {
	v := viper.New()
	setDefaults(v)
	if err := EnsureParentDir(path); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if overwrite {
		return v.WriteConfigAs(path)
	}
	return v.SafeWriteConfigAs(path)
}
