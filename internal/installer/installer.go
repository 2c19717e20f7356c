// Package installer runs the terminal-setup pipeline: detect the
// distribution, install packages, deploy dotfiles, install the font, set the
// login shell and report on the installed tools.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/aur"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/config"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/deploy"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/font"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/git"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/lock"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/pkgmgr"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/platform"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/runner"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/shell"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/ui"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/verify"
)

// BackupDirName is the directory under $HOME holding per-run backups.
const BackupDirName = ".config-backup"

// Options are the run flags. They are fixed for the whole run.
type Options struct {
	DryRun    bool
	Verbose   bool
	AssumeYes bool
	AsRoot    bool

	// SourceDir is the dotfiles source root.
	SourceDir string
	// ConfigPath is an explicit manifest; "" falls back to the source root, then the embedded default.
	ConfigPath string
	// PasswdPath overrides the user database read for the current login shell.
	PasswdPath string

	// The following default to the XDG locations when empty.
	Home       string
	BackupRoot string
	FontRoot   string
	LockDir    string
	TempDir    string
}

// Deps are the collaborators of a run. Nil fields get real implementations.
type Deps struct {
	Detector   platform.Detector
	Runner     runner.Runner
	Cloner     git.Cloner
	Prompter   ui.Prompter
	Logger     ui.Logger
	Clock      deploy.Clock
	Downloader *font.Downloader
	Out        io.Writer
}

// Installer runs the pipeline once.
type Installer struct {
	opts Options
	deps Deps
	log  ui.Logger
}

// New creates an Installer, filling unset options and dependencies.
func New(opts Options, deps Deps) *Installer {
	if opts.Home == "" {
		opts.Home = xdg.Home
	}
	if opts.BackupRoot == "" {
		opts.BackupRoot = filepath.Join(opts.Home, BackupDirName)
	}
	if opts.FontRoot == "" {
		opts.FontRoot = filepath.Join(xdg.DataHome, "fonts")
	}
	if opts.LockDir == "" {
		opts.LockDir = filepath.Join(xdg.StateHome, "terminal-setup")
	}

	deps.Logger = ui.OrNop(deps.Logger)
	if deps.Detector == nil {
		deps.Detector = platform.NewDetector()
	}
	if deps.Runner == nil {
		deps.Runner = runner.NewExec(deps.Logger)
	}
	if deps.Cloner == nil {
		deps.Cloner = git.NewClient()
	}
	if deps.Prompter == nil {
		deps.Prompter = ui.NewStdinPrompter(opts.AssumeYes)
	}
	if deps.Clock == nil {
		deps.Clock = deploy.RealClock{}
	}
	if deps.Downloader == nil {
		deps.Downloader = font.NewDownloader(nil)
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	return &Installer{opts: opts, deps: deps, log: deps.Logger}
}

// Summary is everything a run did, for the final report.
type Summary struct {
	DryRun         bool
	RunID          string
	Distro         *platform.Distro
	ManifestOrigin string

	Prerequisites *pkgmgr.Result
	Packages      *pkgmgr.Result
	AURHelper     string
	AURPackages   *pkgmgr.Result

	Font    *font.Result
	FontErr error

	Deploy      *deploy.Result
	CreatedDirs []string

	Shell  *shell.Result
	Report *verify.Report
}

// Run executes the pipeline. An unsupported distribution stops the run
// before anything is installed. Package installation, AUR bootstrap,
// deployment failures and chsh are fatal; the font step is best-effort and
// verification never fails. The summary is returned even on failure so the
// caller can report what was done.
func (i *Installer) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{DryRun: i.opts.DryRun}

	info, distro, err := i.detect(ctx)
	if err != nil {
		return sum, err
	}
	sum.Distro = distro
	i.log.Info("detected distribution", "id", distro.ID, "family", distro.Family, "manager", distro.PackageManager)

	manifest, origin, err := config.NewParser(info, distro).
		WithLogger(i.log).
		Load(ctx, i.opts.ConfigPath, i.opts.SourceDir)
	if err != nil {
		return sum, fmt.Errorf("load manifest: %w", err)
	}
	sum.ManifestOrigin = origin
	i.log.Debug("manifest loaded", "origin", origin)

	if !i.opts.DryRun {
		l, err := lock.Acquire(ctx, i.opts.LockDir)
		if err != nil {
			return sum, fmt.Errorf("acquire run lock: %w", err)
		}
		defer func() {
			if err := l.Release(); err != nil {
				i.log.Warn("failed to release run lock", "error", err)
			}
		}()
		sum.RunID = l.RunID()
		i.log.Debug("run lock acquired", "run_id", sum.RunID, "path", l.Path())
	}

	if err := i.installPackages(ctx, distro, manifest, sum); err != nil {
		return sum, err
	}

	if manifest.Font.Enabled() {
		res, err := font.NewInstaller(i.deps.Runner, i.deps.Downloader, font.Options{
			FontRoot: i.opts.FontRoot,
			TempDir:  i.opts.TempDir,
			DryRun:   i.opts.DryRun,
			Logger:   i.log,
		}).Install(ctx, manifest.Font)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			sum.FontErr = err
			i.log.Warn("font install failed; continuing", "family", manifest.Font.Family, "error", err)
		}
		sum.Font = res
	}

	if err := i.deployDotfiles(ctx, manifest, sum); err != nil {
		return sum, err
	}

	res, err := shell.NewSetter(i.deps.Runner, i.deps.Prompter, shell.Options{
		PasswdPath: i.opts.PasswdPath,
		DryRun:     i.opts.DryRun,
		Logger:     i.log,
	}).SetDefault(ctx, manifest.Shell.Target)
	if err != nil {
		return sum, err
	}
	sum.Shell = res

	sum.Report = verify.NewReporter(i.deps.Runner, i.log).Check(ctx, manifest.Verify)
	return sum, nil
}

// detect identifies the platform and resolves it to a supported distribution.
func (i *Installer) detect(ctx context.Context) (*platform.Info, *platform.Distro, error) {
	info, err := i.deps.Detector.Detect(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("detect platform: %w", err)
	}
	distro, err := platform.Resolve(info)
	if err != nil {
		return info, nil, err
	}
	return info, distro, nil
}

func (i *Installer) installPackages(ctx context.Context, distro *platform.Distro, m *config.Manifest, sum *Summary) error {
	native, err := pkgmgr.New(distro.PackageManager, i.deps.Runner, i.opts.AsRoot)
	if err != nil {
		return err
	}
	opts := pkgmgr.Options{DryRun: i.opts.DryRun, Logger: i.log}

	i.log.Info("checking prerequisites")
	sum.Prerequisites, err = pkgmgr.Ensure(ctx, native, m.Packages.Prerequisites, opts)
	if err != nil {
		return fmt.Errorf("install prerequisites: %w", err)
	}

	wantAUR := distro.IsArch() && len(m.Packages.AUR) > 0
	if wantAUR {
		sum.AURHelper, err = aur.NewBootstrapper(i.deps.Runner, i.deps.Cloner, i.deps.Prompter, aur.Options{
			TempDir: i.opts.TempDir,
			AsRoot:  i.opts.AsRoot,
			DryRun:  i.opts.DryRun,
			Logger:  i.log,
		}).Select(ctx, distro, m.AUR)
		if err != nil {
			return fmt.Errorf("bootstrap AUR helper: %w", err)
		}
	}

	i.log.Info("checking packages", "family", distro.Family)
	sum.Packages, err = pkgmgr.Ensure(ctx, native, m.Packages.ForFamily(distro.Family), opts)
	if err != nil {
		return fmt.Errorf("install packages: %w", err)
	}

	if wantAUR {
		if sum.AURHelper == "" {
			i.log.Info("skipping AUR packages", "packages", m.Packages.AUR)
			return nil
		}
		sum.AURPackages, err = pkgmgr.Ensure(ctx, pkgmgr.NewAUR(i.deps.Runner, sum.AURHelper), m.Packages.AUR, opts)
		if err != nil {
			return fmt.Errorf("install AUR packages: %w", err)
		}
	}
	return nil
}

// deployDotfiles resolves the mapping and deploys it. Mappings that cannot be
// resolved are reported with the deployment failures after every pair ran.
func (i *Installer) deployDotfiles(ctx context.Context, m *config.Manifest, sum *Summary) error {
	var (
		pairs []deploy.Pair
		errs  []error
	)
	for _, mp := range m.Deploy {
		src, dest, err := mp.Resolve(i.opts.SourceDir)
		if err != nil {
			errs = append(errs, &deploy.PairError{Dest: mp.Dest, Message: "resolve mapping", Cause: err})
			continue
		}
		pairs = append(pairs, deploy.Pair{Name: mp.Source, Source: src, Dest: dest})
	}

	d := deploy.New(deploy.Options{
		Home:       i.opts.Home,
		BackupRoot: i.opts.BackupRoot,
		DryRun:     i.opts.DryRun,
		Clock:      i.deps.Clock,
		Logger:     i.log,
	})

	i.log.Info("deploying dotfiles", "source", i.opts.SourceDir, "count", len(pairs))
	res, err := d.Deploy(ctx, pairs)
	sum.Deploy = res
	if err != nil {
		errs = append(errs, err)
	}

	var dirs []string
	for _, dir := range m.Directories {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			errs = append(errs, &deploy.PairError{Dest: dir, Message: "resolve directory", Cause: err})
			continue
		}
		dirs = append(dirs, expanded)
	}
	created, err := d.EnsureDirs(dirs)
	sum.CreatedDirs = created
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("deploy dotfiles: %w", errors.Join(errs...))
	}
	if len(res.Deployed) > 0 && !i.opts.DryRun {
		i.log.Success("dotfiles deployed", "count", len(res.Deployed))
	}
	return nil
}
