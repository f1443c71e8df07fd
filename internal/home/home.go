package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the stockmeta home directory.
	DefaultDirName = ".stockmeta"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// CallLogFileName is the JSON Lines log of inference calls, under logs/.
	CallLogFileName = "calls.jsonl"
)

// Dir represents the stockmeta home directory structure:
//
//	~/.stockmeta/
//	  config.yaml
//	  exports/   CSV files
//	  sessions/  saved batches for later curation
//	  logs/      calls.jsonl
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.stockmeta).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// ExportsDir returns the directory for CSV exports.
func (d *Dir) ExportsDir() string {
	return filepath.Join(d.path, "exports")
}

// ExportPath returns the path for an export file name.
func (d *Dir) ExportPath(name string) string {
	return filepath.Join(d.ExportsDir(), name)
}

// SessionsDir returns the directory for saved sessions.
func (d *Dir) SessionsDir() string {
	return filepath.Join(d.path, "sessions")
}

// SessionPath returns the path of the session file for a batch.
func (d *Dir) SessionPath(batchID string) string {
	return filepath.Join(d.SessionsDir(), batchID+".json")
}

// LogsDir returns the directory for logs.
func (d *Dir) LogsDir() string {
	return filepath.Join(d.path, "logs")
}

// CallLogPath returns the path of the inference call log.
func (d *Dir) CallLogPath() string {
	return filepath.Join(d.LogsDir(), CallLogFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.ExportsDir(), d.SessionsDir(), d.LogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
