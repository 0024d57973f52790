package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultDataDir returns ~/.pharmaguard, or a relative .pharmaguard when the
// home directory cannot be resolved.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".pharmaguard"
	}
	return filepath.Join(homeDir, ".pharmaguard")
}

// HistoryDBPath returns the path to the history SQLite database.
func HistoryDBPath(dataDir string) string {
	return filepath.Join(dataDir, "history.db")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}

// EnsureParentDir creates the directory holding path if it doesn't exist.
func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
