// Package setup prepares and checks a local pharmaguard installation: the
// config file, the data directory and the history database.
package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pharmaguard-client/internal/config"
)

// DefaultConfigPath is where Init writes the config file when no path is given.
const DefaultConfigPath = "pharmaguard.yaml"

// warningMarker identifies issues that resolve themselves on first use.
const warningMarker = "will be created"

// Options controls Init.
type Options struct {
	ConfigPath string
	DataDir    string
	Overwrite  bool
}

// Status describes the current installation.
type Status struct {
	ConfigFile    string   `json:"config_file,omitempty"`
	DataDir       string   `json:"data_dir"`
	DataDirExists bool     `json:"data_dir_exists"`
	HistoryDriver string   `json:"history_driver"`
	HistoryDSN    string   `json:"history_dsn,omitempty"`
	HistoryExists bool     `json:"history_exists"`
	AnalysisURL   string   `json:"analysis_url"`
	ReportURL     string   `json:"report_url"`
	Issues        []string `json:"issues"`
}

// Init writes a default config file and creates the data directory. It
// returns the path of the written file.
func Init(opts Options) (string, error) {
	path := opts.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}
	if err := config.WriteDefaultFile(path, opts.Overwrite); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	if err := EnsureDataDir(opts.DataDir); err != nil {
		return "", err
	}
	return path, nil
}

// GetStatus inspects the installation described by manager.
func GetStatus(manager *config.Manager) *Status {
	cfg := manager.GetConfig()
	status := &Status{
		ConfigFile:    manager.ConfigFileUsed(),
		DataDir:       config.DefaultDataDir(),
		HistoryDriver: cfg.History.Driver,
		AnalysisURL:   cfg.Analysis.BaseURL,
		ReportURL:     cfg.Report.BaseURL,
		Issues:        []string{},
	}

	if status.ConfigFile == "" {
		status.Issues = append(status.Issues, "No config file found, using defaults and environment")
	}

	if _, err := os.Stat(status.DataDir); err == nil {
		status.DataDirExists = true
	} else {
		status.Issues = append(status.Issues, fmt.Sprintf("Data directory %s on first run: %s", warningMarker, status.DataDir))
	}

	switch cfg.History.Driver {
	case "sqlite":
		status.HistoryDSN = cfg.History.DSN
		if _, err := os.Stat(cfg.History.DSN); err == nil {
			status.HistoryExists = true
		} else {
			status.Issues = append(status.Issues, fmt.Sprintf("History database %s on first analysis: %s", warningMarker, cfg.History.DSN))
		}
	case "postgres":
		// The DSN may carry credentials.
		status.HistoryDSN = "(postgres)"
		status.HistoryExists = true
	}

	return status
}

// Validate checks the configuration and installation. ok is false only when
// an issue is more than a warning.
func Validate(manager *config.Manager) (ok bool, issues []string) {
	if err := manager.Validate(); err != nil {
		issues = append(issues, err.Error())
	}
	for _, issue := range GetStatus(manager).Issues {
		if strings.HasPrefix(issue, "No config file") {
			continue
		}
		issues = append(issues, issue)
	}
	return len(issues) == 0 || allWarnings(issues), issues
}

// allWarnings returns true if all issues are just warnings (not errors).
func allWarnings(issues []string) bool {
	for _, issue := range issues {
		if !strings.Contains(issue, warningMarker) {
			return false
		}
	}
	return true
}

// EnsureDataDir creates the data directory if it doesn't exist. An empty
// dataDir means the default.
func EnsureDataDir(dataDir string) error {
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	if err := os.MkdirAll(filepath.Clean(dataDir), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}
