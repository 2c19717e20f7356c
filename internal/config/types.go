// Package config loads the terminal-setup manifest.
//
// The manifest is a Lua file evaluated in a sandboxed gopher-lua VM. It
// declares a single global table, terminal, holding the package lists, the
// dotfile deployment mapping, the font, the target shell and the tools to
// verify. A read-only platform table is injected before evaluation so
// entries can depend on the detected distribution:
//
//	terminal = {
//	  packages = {
//	    common = { "zsh", "neovim" },
//	    debian = { platform.when(platform.distro.id == "ubuntu", "fd-find") },
//	  },
//	  deploy = {
//	    { source = "zsh/.zshrc", dest = "~/.zshrc" },
//	  },
//	}
//
// A default manifest is embedded in the binary and used when the dotfiles
// source carries none.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/platform"
)

// Manifest is the complete static description of a terminal setup.
type Manifest struct {
	Packages    Packages
	AUR         AURConfig
	Deploy      []Mapping
	Directories []string
	Font        Font
	Shell       ShellConfig
	Verify      []Tool
}

// Packages holds the package name lists, partitioned by where they apply.
type Packages struct {
	Prerequisites []string // installed before anything else, every family
	Common        []string // every family
	Arch          []string
	Fedora        []string
	Debian        []string
	AUR           []string // Arch family only, installed through an AUR helper
}

// ForFamily returns the common packages followed by the family's own list,
// with duplicates removed.
func (p Packages) ForFamily(family string) []string {
	var specific []string
	switch family {
	case platform.FamilyArch:
		specific = p.Arch
	case platform.FamilyFedora:
		specific = p.Fedora
	case platform.FamilyDebian:
		specific = p.Debian
	}

	list := make([]string, 0, len(p.Common)+len(specific))
	list = append(list, p.Common...)
	list = append(list, specific...)
	return Unique(list)
}

// AURConfig controls AUR helper selection and bootstrap.
type AURConfig struct {
	Helpers         []string // preferred helpers, first found on PATH wins
	BootstrapRepo   string   // PKGBUILD repository built when no helper exists
	BootstrapHelper string   // binary the bootstrap repository installs
}

// Mapping is one dotfile deployment pair.
// Source is relative to the dotfiles source root, Dest may use ~ and XDG variables.
type Mapping struct {
	Source string
	Dest   string
}

// Font describes the optional font install.
type Font struct {
	Family string // substring looked up in fc-list output
	URL    string // zip archive
	Dir    string // directory name under the user font dir
	SHA256 string // optional archive checksum
}

// Enabled reports whether a font install was requested.
func (f Font) Enabled() bool {
	return f.Family != "" && f.URL != ""
}

// ShellConfig names the desired login shell.
type ShellConfig struct {
	Target string // binary name or absolute path; empty leaves the login shell alone
}

// Tool is an expected binary for the verification report.
// Binaries lists alternate names tried in order (e.g. fd, fdfind).
type Tool struct {
	Name     string
	Binaries []string
}

// Unique returns list without empty strings and repeated entries, keeping first occurrences.
func Unique(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ValidationError represents a manifest validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "manifest validation failed for " + e.Field + ": " + e.Message
	}
	return "manifest validation failed: " + e.Message
}

// Validate checks a Manifest for values that would make the installer misbehave.
func (m *Manifest) Validate() error {
	lists := []struct {
		field string
		names []string
	}{
		{"packages.prerequisites", m.Packages.Prerequisites},
		{"packages.common", m.Packages.Common},
		{"packages.arch", m.Packages.Arch},
		{"packages.fedora", m.Packages.Fedora},
		{"packages.debian", m.Packages.Debian},
		{"packages.aur", m.Packages.AUR},
	}
	for _, l := range lists {
		if len(l.names) > MaxPackageCount {
			return &ValidationError{
				Field:   l.field,
				Message: fmt.Sprintf("too many packages (%d), maximum is %d", len(l.names), MaxPackageCount),
			}
		}
		for i, name := range l.names {
			if err := validatePackageName(name); err != nil {
				return &ValidationError{Field: fmt.Sprintf("%s[%d]", l.field, i), Message: err.Error()}
			}
		}
	}

	for i, h := range m.AUR.Helpers {
		if err := validatePackageName(h); err != nil {
			return &ValidationError{Field: fmt.Sprintf("aur.helpers[%d]", i), Message: err.Error()}
		}
	}
	if m.AUR.BootstrapRepo != "" {
		if err := validateURL(m.AUR.BootstrapRepo); err != nil {
			return &ValidationError{Field: "aur.bootstrap.repo", Message: err.Error()}
		}
		if m.AUR.BootstrapHelper == "" {
			return &ValidationError{Field: "aur.bootstrap.helper", Message: "helper is required when repo is set"}
		}
	}

	if len(m.Deploy) > MaxMappingCount {
		return &ValidationError{
			Field:   "deploy",
			Message: fmt.Sprintf("too many mappings (%d), maximum is %d", len(m.Deploy), MaxMappingCount),
		}
	}
	dests := make(map[string]int, len(m.Deploy))
	for i, mp := range m.Deploy {
		if err := validateSourcePath(mp.Source); err != nil {
			return &ValidationError{Field: fmt.Sprintf("deploy[%d].source", i), Message: err.Error()}
		}
		if strings.TrimSpace(mp.Dest) == "" {
			return &ValidationError{Field: fmt.Sprintf("deploy[%d].dest", i), Message: "path cannot be empty"}
		}
		// A second mapping to the same file would back up the first one's
		// output over the original in the backup directory.
		key := strings.TrimSpace(mp.Dest)
		if expanded, err := ExpandPath(mp.Dest); err == nil {
			key = expanded
		}
		if prev, ok := dests[key]; ok {
			return &ValidationError{
				Field:   fmt.Sprintf("deploy[%d].dest", i),
				Message: fmt.Sprintf("destination %s already used by deploy[%d]", mp.Dest, prev),
			}
		}
		dests[key] = i
	}

	for i, d := range m.Directories {
		if strings.TrimSpace(d) == "" {
			return &ValidationError{Field: fmt.Sprintf("directories[%d]", i), Message: "path cannot be empty"}
		}
	}

	if m.Font.URL != "" {
		if err := validateURL(m.Font.URL); err != nil {
			return &ValidationError{Field: "font.url", Message: err.Error()}
		}
		if m.Font.Family == "" {
			return &ValidationError{Field: "font.family", Message: "family is required when url is set"}
		}
	}
	if m.Font.SHA256 != "" && !sha256Pattern.MatchString(m.Font.SHA256) {
		return &ValidationError{Field: "font.sha256", Message: "expected 64 hex characters"}
	}
	if m.Font.Dir != "" && (strings.ContainsAny(m.Font.Dir, `/\`) || m.Font.Dir == ".." || m.Font.Dir == ".") {
		return &ValidationError{Field: "font.dir", Message: fmt.Sprintf("must be a single directory name: %q", m.Font.Dir)}
	}

	if len(m.Verify) > MaxToolCount {
		return &ValidationError{
			Field:   "verify",
			Message: fmt.Sprintf("too many tools (%d), maximum is %d", len(m.Verify), MaxToolCount),
		}
	}
	for i, tool := range m.Verify {
		if tool.Name == "" || len(tool.Binaries) == 0 {
			return &ValidationError{Field: fmt.Sprintf("verify[%d]", i), Message: "tool needs a name and at least one binary"}
		}
	}

	return nil
}

var (
	packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9@._+-]+$`)
	sha256Pattern      = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

// validatePackageName rejects names that a package manager would parse as an option.
func validatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("package name cannot be empty")
	}
	if len(name) > 256 {
		return fmt.Errorf("package name too long (%d chars, max 256)", len(name))
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("package name cannot start with '-': %q", name)
	}
	if !packageNamePattern.MatchString(name) {
		return fmt.Errorf("invalid package name: %q", name)
	}
	return nil
}

// validateSourcePath keeps deployment sources inside the source root.
func validateSourcePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("source must be relative to the dotfiles root: %s", path)
	}
	cleaned := filepath.Clean(path)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("path traversal not allowed: %s", path)
	}
	return nil
}

// validateURL accepts http and https URLs with a host.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("URL must use https:// or http:// scheme (got: %s)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %s", raw)
	}
	return nil
}
