// Package aur selects an AUR helper on Arch-family systems, building one
// from its AUR recipe when none is installed and the operator agrees.
package aur

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/config"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/git"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/platform"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/runner"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/ui"
)

// Bootstrapper finds or builds an AUR helper.
type Bootstrapper struct {
	runner   runner.Runner
	cloner   git.Cloner
	prompter ui.Prompter
	logger   ui.Logger

	tempDir string // parent of the scratch build dir; "" uses os.TempDir
	asRoot  bool
	dryRun  bool
}

// Options configure a Bootstrapper.
type Options struct {
	TempDir string
	AsRoot  bool
	DryRun  bool
	Logger  ui.Logger
}

// NewBootstrapper creates a Bootstrapper.
func NewBootstrapper(r runner.Runner, cloner git.Cloner, prompter ui.Prompter, opts Options) *Bootstrapper {
	return &Bootstrapper{
		runner:   r,
		cloner:   cloner,
		prompter: prompter,
		logger:   ui.OrNop(opts.Logger),
		tempDir:  opts.TempDir,
		asRoot:   opts.AsRoot,
		dryRun:   opts.DryRun,
	}
}

// Select returns the AUR helper to use, or "" when AUR packages must be skipped.
//
// Non-Arch distributions always get "". On Arch the first configured helper
// found on PATH wins. Otherwise the operator is asked whether to build
// cfg.BootstrapHelper from cfg.BootstrapRepo; refusal, dry-run and running
// as root leave the helper unset. Clone and build failures are returned.
func (b *Bootstrapper) Select(ctx context.Context, distro *platform.Distro, cfg config.AURConfig) (string, error) {
	if distro == nil || !distro.IsArch() {
		return "", nil
	}

	for _, helper := range cfg.Helpers {
		if p, err := b.runner.LookPath(helper); err == nil {
			b.logger.Info("using AUR helper", "helper", helper, "path", p)
			return helper, nil
		}
	}

	if cfg.BootstrapRepo == "" {
		b.logger.Warn("no AUR helper found and no bootstrap recipe configured; skipping AUR packages")
		return "", nil
	}

	if b.dryRun {
		b.logger.Info("[dry-run] no AUR helper found; would offer to build one",
			"helper", cfg.BootstrapHelper, "repo", cfg.BootstrapRepo)
		return "", nil
	}

	if b.asRoot {
		b.logger.Warn("no AUR helper found; makepkg cannot build as root, skipping AUR packages",
			"helper", cfg.BootstrapHelper)
		return "", nil
	}

	ok, err := b.prompter.Confirm(fmt.Sprintf("No AUR helper found. Build and install %s from the AUR?", cfg.BootstrapHelper))
	if err != nil {
		return "", fmt.Errorf("confirm AUR helper install: %w", err)
	}
	if !ok {
		b.logger.Info("AUR helper install declined; skipping AUR packages")
		return "", nil
	}

	if err := b.build(ctx, cfg); err != nil {
		return "", err
	}

	if _, err := b.runner.LookPath(cfg.BootstrapHelper); err != nil {
		b.logger.Warn("AUR helper built but not found on PATH", "helper", cfg.BootstrapHelper)
	}
	b.logger.Success("AUR helper installed", "helper", cfg.BootstrapHelper)
	return cfg.BootstrapHelper, nil
}

// build clones the recipe into a scratch directory and runs makepkg there.
// The scratch directory is removed on every path.
func (b *Bootstrapper) build(ctx context.Context, cfg config.AURConfig) error {
	scratch, err := os.MkdirTemp(b.tempDir, "terminal-setup-aur-*")
	if err != nil {
		return fmt.Errorf("create build directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			b.logger.Warn("failed to remove build directory", "path", scratch, "error", err)
		}
	}()

	dir := filepath.Join(scratch, recipeName(cfg.BootstrapRepo))

	b.logger.Info("cloning AUR recipe", "repo", cfg.BootstrapRepo)
	commit, err := b.cloner.Clone(ctx, cfg.BootstrapRepo, dir, git.CloneOptions{Depth: 1})
	if err != nil {
		return fmt.Errorf("clone AUR recipe: %w", err)
	}
	b.logger.Debug("cloned AUR recipe", "commit", commit, "dir", dir)

	b.logger.Info("building AUR helper", "helper", cfg.BootstrapHelper)
	if err := b.runner.Run(ctx, runner.Cmd("makepkg", "-si", "--noconfirm").In(dir)); err != nil {
		return fmt.Errorf("build AUR helper: %w", err)
	}
	return nil
}

// recipeName derives the checkout directory from a repository URL.
func recipeName(repo string) string {
	name := strings.TrimSuffix(path.Base(strings.TrimRight(repo, "/")), ".git")
	if name == "" || name == "." || name == "/" {
		return "recipe"
	}
	return name
}
