package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// ExpandPath resolves a leading ~ and the $HOME and $XDG_* base directory
// variables against the adrg/xdg locations. The result is cleaned and must be absolute.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	switch {
	case path == "~":
		path = xdg.Home
	case strings.HasPrefix(path, "~/"):
		path = filepath.Join(xdg.Home, path[2:])
	}

	var unknown []string
	expanded := os.Expand(path, func(name string) string {
		if v, ok := baseDirVars()[name]; ok {
			return v
		}
		unknown = append(unknown, name)
		return ""
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("unknown variable $%s in path: %s", unknown[0], path)
	}
	if strings.Contains(expanded, "$") {
		return "", fmt.Errorf("invalid variable in path: %s", path)
	}
	if !filepath.IsAbs(expanded) {
		return "", fmt.Errorf("path must be absolute after expansion: %s", path)
	}
	return filepath.Clean(expanded), nil
}

// baseDirVars are the variables a path may reference.
func baseDirVars() map[string]string {
	return map[string]string{
		"HOME":            xdg.Home,
		"XDG_CONFIG_HOME": xdg.ConfigHome,
		"XDG_DATA_HOME":   xdg.DataHome,
		"XDG_STATE_HOME":  xdg.StateHome,
		"XDG_CACHE_HOME":  xdg.CacheHome,
	}
}

// Resolve returns the absolute source and destination paths of a mapping.
func (m Mapping) Resolve(sourceRoot string) (src, dest string, err error) {
	if err := validateSourcePath(m.Source); err != nil {
		return "", "", err
	}
	dest, err = ExpandPath(m.Dest)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s: %w", m.Dest, err)
	}
	return filepath.Join(sourceRoot, filepath.FromSlash(m.Source)), dest, nil
}
