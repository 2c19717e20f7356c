package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/config"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/git"
)

// ResolveSourceRoot returns the dotfiles source root: dir when given,
// otherwise the work tree root of the git repository containing the current
// directory, otherwise the current directory.
func ResolveSourceRoot(dir string) (string, error) {
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("resolve source directory: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("source directory: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("source directory %s is not a directory", abs)
		}
		return abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	root, err := git.FindRoot(cwd)
	if err != nil {
		if errors.Is(err, git.ErrNotAGitRepo) {
			return cwd, nil
		}
		return "", err
	}
	return root, nil
}

// PrintConfig writes the effective manifest for this host as Lua. An
// unsupported platform is not fatal here: the manifest is evaluated with
// platform.distro set to nil.
func (i *Installer) PrintConfig(ctx context.Context) error {
	info, distro, err := i.detect(ctx)
	if err != nil {
		if info == nil {
			return err
		}
		i.log.Warn("evaluating manifest without a distribution", "error", err)
	}

	m, origin, err := config.NewParser(info, distro).
		WithLogger(i.log).
		Load(ctx, i.opts.ConfigPath, i.opts.SourceDir)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	out, err := config.NewGenerator().Generate(m, origin)
	if err != nil {
		return fmt.Errorf("generate manifest: %w", err)
	}
	_, err = io.WriteString(i.deps.Out, out)
	return err
}
