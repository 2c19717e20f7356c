// Package testutil provides utilities for testing terminal-setup in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Root       string
	Home       string
	ConfigHome string
	DataHome   string
	StateHome  string
	CacheHome  string
}

// SetupTestEnv points HOME and the XDG base directories at a fresh temp
// directory and reloads adrg/xdg so every path the installer derives lands
// inside it. The previous environment is restored when the test ends.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	// Registered before t.Setenv so it runs after the environment is restored.
	t.Cleanup(xdg.Reload)

	tmpDir := t.TempDir()
	env := &Env{
		Root:       tmpDir,
		Home:       filepath.Join(tmpDir, "home"),
		ConfigHome: filepath.Join(tmpDir, "home", ".config"),
		DataHome:   filepath.Join(tmpDir, "home", ".local", "share"),
		StateHome:  filepath.Join(tmpDir, "home", ".local", "state"),
		CacheHome:  filepath.Join(tmpDir, "home", ".cache"),
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("XDG_CONFIG_HOME", env.ConfigHome)
	t.Setenv("XDG_DATA_HOME", env.DataHome)
	t.Setenv("XDG_STATE_HOME", env.StateHome)
	t.Setenv("XDG_CACHE_HOME", env.CacheHome)

	for _, dir := range []string{env.Home, env.ConfigHome, env.DataHome, env.StateHome, env.CacheHome} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	xdg.Reload()
	return env
}

// WriteFile creates path with content, making parent directories as needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the content of path, failing the test if it cannot be read.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
