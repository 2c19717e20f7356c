// Package font installs a font family from a zip archive into the user's
// font directory and refreshes the fontconfig cache.
package font

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/config"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/runner"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/ui"
)

// Options configure an Installer.
type Options struct {
	// FontRoot is the user font directory, usually $XDG_DATA_HOME/fonts.
	FontRoot string
	// TempDir is the parent of the scratch directory; "" uses os.TempDir.
	TempDir string
	DryRun  bool
	Logger  ui.Logger
}

// Installer installs fonts.
type Installer struct {
	runner     runner.Runner
	downloader *Downloader
	fontRoot   string
	tempDir    string
	dryRun     bool
	logger     ui.Logger
}

// Result describes what Install did.
type Result struct {
	AlreadyInstalled bool
	Dir              string   // directory the font files were copied to
	Files            []string // installed file names
}

// NewInstaller creates an Installer.
func NewInstaller(r runner.Runner, d *Downloader, opts Options) *Installer {
	if d == nil {
		d = NewDownloader(nil)
	}
	return &Installer{
		runner:     r,
		downloader: d,
		fontRoot:   opts.FontRoot,
		tempDir:    opts.TempDir,
		dryRun:     opts.DryRun,
		logger:     ui.OrNop(opts.Logger),
	}
}

// IsInstalled reports whether fc-list knows a font whose description
// contains family, compared case-insensitively.
func (i *Installer) IsInstalled(ctx context.Context, family string) (bool, error) {
	if _, err := i.runner.LookPath("fc-list"); err != nil {
		return false, fmt.Errorf("fc-list not available: %w", err)
	}
	out, err := i.runner.Output(ctx, runner.Cmd("fc-list"))
	if err != nil {
		return false, fmt.Errorf("list fonts: %w", err)
	}
	return strings.Contains(strings.ToLower(string(out)), strings.ToLower(family)), nil
}

// Install installs f unless fc-list already reports it. The archive is
// downloaded and unpacked in a scratch directory that is removed on return.
func (i *Installer) Install(ctx context.Context, f config.Font) (*Result, error) {
	installed, err := i.IsInstalled(ctx, f.Family)
	if err != nil {
		i.logger.Debug("font lookup failed, assuming not installed", "error", err)
	}
	if installed {
		i.logger.Info("font already installed", "family", f.Family)
		return &Result{AlreadyInstalled: true}, nil
	}

	dest := filepath.Join(i.fontRoot, fontDirName(f))
	if i.dryRun {
		i.logger.Info("[dry-run] would install font", "family", f.Family, "url", f.URL, "dir", dest)
		return &Result{Dir: dest}, nil
	}

	scratch, err := os.MkdirTemp(i.tempDir, "terminal-setup-font-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			i.logger.Warn("failed to remove scratch directory", "path", scratch, "error", err)
		}
	}()

	archive := filepath.Join(scratch, "font.zip")
	i.logger.Info("downloading font", "family", f.Family, "url", f.URL)
	if err := i.downloader.DownloadToFile(ctx, f.URL, archive); err != nil {
		return nil, fmt.Errorf("download font: %w", err)
	}

	if f.SHA256 != "" {
		if err := VerifySHA256(archive, f.SHA256); err != nil {
			return nil, fmt.Errorf("verify font archive: %w", err)
		}
		i.logger.Debug("font archive checksum verified")
	}

	extracted := filepath.Join(scratch, "extracted")
	if err := ExtractZip(archive, extracted); err != nil {
		return nil, fmt.Errorf("extract font archive: %w", err)
	}

	fonts, err := findFonts(extracted)
	if err != nil {
		return nil, fmt.Errorf("scan font archive: %w", err)
	}
	if len(fonts) == 0 {
		return nil, fmt.Errorf("no .ttf or .otf files in %s", f.URL)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create font directory: %w", err)
	}

	result := &Result{Dir: dest}
	for _, src := range fonts {
		name := filepath.Base(src)
		if err := copyFont(src, filepath.Join(dest, name)); err != nil {
			return result, fmt.Errorf("install %s: %w", name, err)
		}
		result.Files = append(result.Files, name)
	}

	if err := i.refreshCache(ctx, dest); err != nil {
		return result, err
	}

	i.logger.Success("font installed", "family", f.Family, "files", len(result.Files), "dir", dest)
	return result, nil
}

// refreshCache runs fc-cache on dir. A missing fc-cache is only a warning:
// fontconfig rescans user font directories on its own eventually.
func (i *Installer) refreshCache(ctx context.Context, dir string) error {
	if _, err := i.runner.LookPath("fc-cache"); err != nil {
		i.logger.Warn("fc-cache not found; font cache not refreshed")
		return nil
	}
	if err := i.runner.Run(ctx, runner.Cmd("fc-cache", "-f", dir)); err != nil {
		return fmt.Errorf("refresh font cache: %w", err)
	}
	return nil
}

var unsafeDirChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// fontDirName is the manifest's dir, or the family with unsafe characters removed.
func fontDirName(f config.Font) string {
	if f.Dir != "" {
		return f.Dir
	}
	name := strings.Trim(unsafeDirChars.ReplaceAllString(f.Family, ""), ".")
	if name == "" {
		return "terminal-setup"
	}
	return name
}

func copyFont(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
