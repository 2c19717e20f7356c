package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/platform"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/ui"
	lua "github.com/yuin/gopher-lua"
)

// DefaultManifest is the manifest compiled into the binary.
//
//go:embed default.lua
var DefaultManifest string

// DefaultOrigin names the embedded manifest in logs and errors.
const DefaultOrigin = "<embedded>"

// Parser evaluates manifests for one platform.
type Parser struct {
	info   *platform.Info
	distro *platform.Distro
	logger ui.Logger
}

// NewParser creates a parser that injects the given platform into every manifest.
// A nil info injects an empty platform; a nil distro leaves platform.distro nil.
func NewParser(info *platform.Info, distro *platform.Distro) *Parser {
	return &Parser{info: info, distro: distro, logger: ui.Nop()}
}

// WithLogger sets the logger used while loading manifests.
func (p *Parser) WithLogger(logger ui.Logger) *Parser {
	p.logger = ui.OrNop(logger)
	return p
}

// ParseString parses a manifest from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Manifest, error) {
	if len(luaCode) > MaxManifestSize {
		return nil, &ParseError{
			Message: "manifest too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", len(luaCode), MaxManifestSize),
		}
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	info := p.info
	if info == nil {
		info = &platform.Info{}
	}
	if err := platform.InjectPlatformTable(L, info, p.distro); err != nil {
		return nil, fmt.Errorf("inject platform table: %w", err)
	}

	if err := L.DoString(luaCode); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("parse manifest: %w", ctx.Err())
		}
		return nil, &ParseError{
			Message: "Lua error",
			Detail:  err.Error(),
		}
	}

	return extractManifest(L)
}

// ParseFile reads and parses a manifest file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if info.Size() > MaxManifestSize {
		return nil, &ParseError{
			Message: "manifest too large",
			Detail:  fmt.Sprintf("%s is %d bytes, maximum is %d", path, info.Size(), MaxManifestSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	m, err := p.ParseString(ctx, string(data))
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.File = path
		}
		return nil, err
	}
	return m, nil
}

// Load picks the manifest for a run: an explicit path wins, then
// terminal-setup.lua at the dotfiles source root, then the embedded default.
// It returns the manifest and where it came from.
func (p *Parser) Load(ctx context.Context, explicitPath, sourceRoot string) (*Manifest, string, error) {
	if explicitPath != "" {
		p.logger.Debug("loading manifest", "path", explicitPath)
		m, err := p.ParseFile(ctx, explicitPath)
		return m, explicitPath, err
	}

	if sourceRoot != "" {
		candidate := filepath.Join(sourceRoot, ManifestFileName)
		if _, err := os.Stat(candidate); err == nil {
			p.logger.Debug("loading manifest", "path", candidate)
			m, err := p.ParseFile(ctx, candidate)
			return m, candidate, err
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, candidate, fmt.Errorf("stat manifest: %w", err)
		}
	}

	p.logger.Debug("loading embedded manifest")
	m, err := p.ParseString(ctx, DefaultManifest)
	return m, DefaultOrigin, err
}

// ParseError represents a manifest parsing error with a friendly message.
type ParseError struct {
	File    string // empty for in-memory manifests
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractManifest reads the global manifest table from a Lua state.
func extractManifest(L *lua.LState) (*Manifest, error) {
	root := L.GetGlobal(luaGlobalManifest)
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: fmt.Sprintf("missing or invalid '%s' table", luaGlobalManifest),
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)
	m := &Manifest{}

	if t, ok := subTable(table, luaFieldPackages); ok {
		m.Packages = Packages{
			Prerequisites: extractStrings(t, luaFieldPrerequisites),
			Common:        extractStrings(t, luaFieldCommon),
			Arch:          extractStrings(t, luaFieldArch),
			Fedora:        extractStrings(t, luaFieldFedora),
			Debian:        extractStrings(t, luaFieldDebian),
			AUR:           extractStrings(t, luaFieldAUR),
		}
	}

	if t, ok := subTable(table, luaFieldAUR); ok {
		m.AUR.Helpers = extractStrings(t, luaFieldHelpers)
		if b, ok := subTable(t, luaFieldBootstrap); ok {
			m.AUR.BootstrapRepo = stringField(b, luaFieldRepo)
			m.AUR.BootstrapHelper = stringField(b, luaFieldHelper)
		}
	}

	if t, ok := subTable(table, luaFieldDeploy); ok {
		mappings, err := extractMappings(t)
		if err != nil {
			return nil, err
		}
		m.Deploy = mappings
	}

	m.Directories = extractStrings(table, luaFieldDirectories)

	if t, ok := subTable(table, luaFieldFont); ok {
		m.Font = Font{
			Family: stringField(t, luaFieldFamily),
			URL:    stringField(t, luaFieldURL),
			Dir:    stringField(t, luaFieldDir),
			SHA256: stringField(t, luaFieldSHA256),
		}
	}

	if t, ok := subTable(table, luaFieldShell); ok {
		m.Shell.Target = stringField(t, luaFieldTarget)
	}

	if t, ok := subTable(table, luaFieldVerify); ok {
		tools, err := extractTools(t)
		if err != nil {
			return nil, err
		}
		m.Verify = tools
	}

	if err := m.Validate(); err != nil {
		return nil, &ParseError{
			Message: "manifest validation failed",
			Detail:  err.Error(),
		}
	}

	return m, nil
}

func subTable(t *lua.LTable, field string) (*lua.LTable, bool) {
	v, ok := t.RawGetString(field).(*lua.LTable)
	return v, ok
}

func stringField(t *lua.LTable, field string) string {
	if v := t.RawGetString(field); v.Type() == lua.LTString {
		return v.String()
	}
	return ""
}

// extractStrings reads an array of strings. nil entries produced by
// platform.when are skipped and so are non-string values.
func extractStrings(t *lua.LTable, field string) []string {
	list, ok := subTable(t, field)
	if !ok {
		return nil
	}
	var out []string
	list.ForEach(func(_, value lua.LValue) {
		if value.Type() == lua.LTString {
			out = append(out, value.String())
		}
	})
	return out
}

// extractMappings accepts { source = ..., dest = ... } tables and the short
// form { "zsh/.zshrc", "~/.zshrc" }.
func extractMappings(t *lua.LTable) ([]Mapping, error) {
	var (
		mappings []Mapping
		err      error
	)
	t.ForEach(func(key, value lua.LValue) {
		if err != nil {
			return
		}
		entry, ok := value.(*lua.LTable)
		if !ok {
			err = &ParseError{
				Message: "invalid deploy entry",
				Detail:  fmt.Sprintf("deploy[%s]: expected table, got %s", key, value.Type()),
			}
			return
		}
		mp := Mapping{
			Source: stringField(entry, luaFieldSource),
			Dest:   stringField(entry, luaFieldDest),
		}
		if mp.Source == "" && mp.Dest == "" {
			if s, ok := entry.RawGetInt(1).(lua.LString); ok {
				mp.Source = string(s)
			}
			if d, ok := entry.RawGetInt(2).(lua.LString); ok {
				mp.Dest = string(d)
			}
		}
		mappings = append(mappings, mp)
	})
	return mappings, err
}

// extractTools accepts plain names ("nvim"), alternates as a list
// ({ "fd", "fdfind" }) and the explicit { name = ..., binaries = {...} } form.
func extractTools(t *lua.LTable) ([]Tool, error) {
	var (
		tools []Tool
		err   error
	)
	t.ForEach(func(key, value lua.LValue) {
		if err != nil {
			return
		}
		switch v := value.(type) {
		case lua.LString:
			tools = append(tools, Tool{Name: string(v), Binaries: []string{string(v)}})
		case *lua.LTable:
			tool := Tool{Name: stringField(v, luaFieldName)}
			if bins := extractStrings(v, luaFieldBinaries); len(bins) > 0 {
				tool.Binaries = bins
			} else {
				v.ForEach(func(k, b lua.LValue) {
					if k.Type() == lua.LTNumber && b.Type() == lua.LTString {
						tool.Binaries = append(tool.Binaries, b.String())
					}
				})
			}
			if tool.Name == "" && len(tool.Binaries) > 0 {
				tool.Name = tool.Binaries[0]
			}
			if tool.Name != "" && len(tool.Binaries) == 0 {
				tool.Binaries = []string{tool.Name}
			}
			tools = append(tools, tool)
		default:
			err = &ParseError{
				Message: "invalid verify entry",
				Detail:  fmt.Sprintf("verify[%s]: expected string or table, got %s", key, value.Type()),
			}
		}
	})
	return tools, err
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		return err.Error()
	}
	prefix := parseErr.Message
	if parseErr.File != "" {
		prefix = parseErr.File + ": " + prefix
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", prefix, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", prefix, detail)
}
