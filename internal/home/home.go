// Package home manages the kotoba home directory layout (~/.kotoba).
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the kotoba home directory.
	DefaultDirName = ".kotoba"

	// DefraDataDirName is the subdirectory holding DefraDB data.
	DefraDataDirName = "defradb"

	// UploadsDirName is the subdirectory holding uploaded images and PDFs
	// awaiting or retained after analysis.
	UploadsDirName = "uploads"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the kotoba home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.kotoba).
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

// DefraDataPath returns the path where DefraDB persists its data.
func (d *Dir) DefraDataPath() string {
	return filepath.Join(d.path, DefraDataDirName)
}

// UploadsDir returns the directory for uploaded source material.
func (d *Dir) UploadsDir() string {
	return filepath.Join(d.path, UploadsDirName)
}

// UploadDir returns the directory for a single upload's files
// (original file plus any per-page splits).
func (d *Dir) UploadDir(uploadID string) string {
	return filepath.Join(d.UploadsDir(), uploadID)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.DefraDataPath(), d.UploadsDir()} {
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
