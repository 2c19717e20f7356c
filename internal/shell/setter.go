package shell

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/runner"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/ui"
)

// Options configure a Setter.
type Options struct {
	// Username whose login shell is changed; "" means the current user.
	Username string
	// PasswdPath overrides PasswdFile.
	PasswdPath string
	DryRun     bool
	Logger     ui.Logger
}

// Setter changes the login shell with chsh.
type Setter struct {
	runner   runner.Runner
	prompter ui.Prompter
	username string
	passwd   string
	dryRun   bool
	logger   ui.Logger
}

// NewSetter creates a Setter.
func NewSetter(r runner.Runner, prompter ui.Prompter, opts Options) *Setter {
	passwd := opts.PasswdPath
	if passwd == "" {
		passwd = PasswdFile
	}
	return &Setter{
		runner:   r,
		prompter: prompter,
		username: opts.Username,
		passwd:   passwd,
		dryRun:   opts.DryRun,
		logger:   ui.OrNop(opts.Logger),
	}
}

// Current returns the configured login shell: the passwd entry, or $SHELL
// when the entry cannot be read.
func (s *Setter) Current() string {
	username := s.username
	if username == "" {
		name, err := CurrentUsername()
		if err != nil {
			s.logger.Debug("cannot determine user, using $SHELL", "error", err)
			return os.Getenv("SHELL")
		}
		username = name
	}
	sh, err := LoginShell(s.passwd, username)
	if err != nil {
		s.logger.Debug("cannot read login shell, using $SHELL", "error", err)
		return os.Getenv("SHELL")
	}
	return sh
}

// SetDefault makes target the login shell. target is a binary name or an
// absolute path; an empty target does nothing.
func (s *Setter) SetDefault(ctx context.Context, target string) (*Result, error) {
	if target == "" {
		return &Result{}, nil
	}

	res := &Result{Current: s.Current()}

	path, err := s.runner.LookPath(target)
	if err != nil {
		if s.dryRun {
			s.logger.Info("[dry-run] would change login shell", "from", res.Current, "to", target)
			res.Target = target
			res.DryRun = true
			return res, nil
		}
		return nil, fmt.Errorf("target shell %s not found: %w", target, err)
	}
	res.Target = path
	if err := ValidateShell(parseShellFromPath(path)); err != nil {
		s.logger.Warn("target shell has no shipped configuration", "error", err)
	}

	if sameExecutable(res.Current, path) {
		s.logger.Info("login shell already set", "shell", res.Current)
		res.AlreadySet = true
		return res, nil
	}

	if s.dryRun {
		s.logger.Info("[dry-run] would change login shell", "from", res.Current, "to", path)
		res.DryRun = true
		return res, nil
	}

	ok, err := s.prompter.Confirm(fmt.Sprintf("Change login shell from %s to %s?", displayShell(res.Current), path))
	if err != nil {
		return nil, fmt.Errorf("confirm shell change: %w", err)
	}
	if !ok {
		s.logger.Info("keeping current login shell", "shell", res.Current)
		res.Declined = true
		return res, nil
	}

	if err := s.runner.Run(ctx, runner.Cmd("chsh", "-s", path)); err != nil {
		return nil, fmt.Errorf("change login shell: %w", err)
	}
	res.Changed = true
	s.logger.Success("login shell changed", "shell", path)
	return res, nil
}

// sameExecutable compares two shell paths, following symlinks.
func sameExecutable(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}

func displayShell(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
