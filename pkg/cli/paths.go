package cli

import (
	"os"
	"path/filepath"
)

const (
	// DefaultBaseDir is the base directory name under $HOME.
	DefaultBaseDir = ".voicelock"
	// DefaultConfigFile is the configuration filename.
	DefaultConfigFile = "config.yaml"
)

// Paths resolves the voicelock directory layout under the user's home.
type Paths struct {
	// HomeDir is the user's home directory.
	HomeDir string
}

// NewPaths creates a Paths instance for the current user.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the base directory (~/.voicelock).
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns the config file path (~/.voicelock/config.yaml).
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// StoreDir returns the template/attempt store directory
// (~/.voicelock/store).
func (p *Paths) StoreDir() string {
	return filepath.Join(p.BaseDir(), "store")
}

// RecordingsDir returns the local archive directory
// (~/.voicelock/recordings).
func (p *Paths) RecordingsDir() string {
	return filepath.Join(p.BaseDir(), "recordings")
}

// EnsureBaseDir creates the base directory if it doesn't exist.
// Everything under it is biometric material, hence owner-only.
func (p *Paths) EnsureBaseDir() error {
	return os.MkdirAll(p.BaseDir(), 0o700)
}

// EnsureStoreDir creates the store directory if it doesn't exist.
func (p *Paths) EnsureStoreDir() error {
	return os.MkdirAll(p.StoreDir(), 0o700)
}

// EnsureRecordingsDir creates the recordings directory if it doesn't
// exist.
func (p *Paths) EnsureRecordingsDir() error {
	return os.MkdirAll(p.RecordingsDir(), 0o700)
}
