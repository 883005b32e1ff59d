package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPaths(t *testing.T) {
	paths, err := NewPaths()
	if err != nil {
		t.Fatalf("NewPaths error: %v", err)
	}

	if paths.HomeDir == "" {
		t.Error("HomeDir should not be empty")
	}
}

func TestPaths_Layout(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	if got, want := paths.BaseDir(), filepath.Join(tmpDir, DefaultBaseDir); got != want {
		t.Errorf("BaseDir() = %q, want %q", got, want)
	}
	if got, want := paths.ConfigFile(), filepath.Join(tmpDir, DefaultBaseDir, DefaultConfigFile); got != want {
		t.Errorf("ConfigFile() = %q, want %q", got, want)
	}
	if got, want := paths.StoreDir(), filepath.Join(tmpDir, DefaultBaseDir, "store"); got != want {
		t.Errorf("StoreDir() = %q, want %q", got, want)
	}
	if got, want := paths.RecordingsDir(), filepath.Join(tmpDir, DefaultBaseDir, "recordings"); got != want {
		t.Errorf("RecordingsDir() = %q, want %q", got, want)
	}
}

func TestPaths_EnsureDirs(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	if err := paths.EnsureStoreDir(); err != nil {
		t.Fatalf("EnsureStoreDir error: %v", err)
	}
	if err := paths.EnsureRecordingsDir(); err != nil {
		t.Fatalf("EnsureRecordingsDir error: %v", err)
	}

	for _, dir := range []string{paths.StoreDir(), paths.RecordingsDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("Stat(%s): %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s should be a directory", dir)
		}
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			t.Errorf("%s is group/world accessible: %v", dir, perm)
		}
	}

	// Idempotent
	if err := paths.EnsureStoreDir(); err != nil {
		t.Fatalf("EnsureStoreDir again: %v", err)
	}
}
