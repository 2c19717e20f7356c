// Package pkgmgr drives the native package managers (pacman, dnf, apt) and
// AUR helpers. Each manager answers "is this package installed" with its own
// database query and installs a batch of packages in one invocation.
package pkgmgr

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/platform"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/runner"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/ui"
)

// Manager is a package manager.
type Manager interface {
	// Name identifies the manager in logs ("pacman", "yay", ...).
	Name() string

	// IsInstalled reports whether the installed-package query for pkg succeeds.
	IsInstalled(ctx context.Context, pkg string) bool

	// Install installs pkgs in a single batch.
	Install(ctx context.Context, pkgs []string) error
}

// queryInstall is a Manager described by two command templates.
type queryInstall struct {
	name    string
	r       runner.Runner
	query   func(pkg string) runner.Command
	install func(pkgs []string) []runner.Command
}

func (m *queryInstall) Name() string { return m.name }

func (m *queryInstall) IsInstalled(ctx context.Context, pkg string) bool {
	_, err := m.r.Output(ctx, m.query(pkg))
	return err == nil
}

func (m *queryInstall) Install(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	for _, cmd := range m.install(pkgs) {
		if err := m.r.Run(ctx, cmd); err != nil {
			return fmt.Errorf("%s install: %w", m.name, err)
		}
	}
	return nil
}

// NewPacman creates the Arch Linux package manager.
func NewPacman(r runner.Runner, asRoot bool) Manager {
	return &queryInstall{
		name: platform.ManagerPacman,
		r:    r,
		query: func(pkg string) runner.Command {
			return runner.Cmd("pacman", "-Q", pkg)
		},
		install: func(pkgs []string) []runner.Command {
			args := append([]string{"-S", "--needed", "--noconfirm"}, pkgs...)
			return []runner.Command{runner.Elevate(runner.Cmd("pacman", args...), asRoot)}
		},
	}
}

// NewDNF creates the Fedora package manager.
func NewDNF(r runner.Runner, asRoot bool) Manager {
	return &queryInstall{
		name: platform.ManagerDNF,
		r:    r,
		query: func(pkg string) runner.Command {
			return runner.Cmd("rpm", "-q", pkg)
		},
		install: func(pkgs []string) []runner.Command {
			args := append([]string{"install", "-y"}, pkgs...)
			return []runner.Command{runner.Elevate(runner.Cmd("dnf", args...), asRoot)}
		},
	}
}

// NewApt creates the Debian package manager. The package index is refreshed
// before every install so fresh containers can resolve names.
func NewApt(r runner.Runner, asRoot bool) Manager {
	return &queryInstall{
		name: platform.ManagerApt,
		r:    r,
		query: func(pkg string) runner.Command {
			return runner.Cmd("dpkg", "-s", pkg)
		},
		install: func(pkgs []string) []runner.Command {
			args := append([]string{"install", "-y"}, pkgs...)
			return []runner.Command{
				runner.Elevate(runner.Cmd("apt-get", "update"), asRoot),
				runner.Elevate(runner.Cmd("apt-get", args...), asRoot),
			}
		},
	}
}

// NewAUR creates a Manager around an AUR helper such as yay or paru.
// Helpers elevate on their own and refuse to run under sudo, so no prefix is added.
func NewAUR(r runner.Runner, helper string) Manager {
	return &queryInstall{
		name: helper,
		r:    r,
		query: func(pkg string) runner.Command {
			return runner.Cmd("pacman", "-Q", pkg)
		},
		install: func(pkgs []string) []runner.Command {
			args := append([]string{"-S", "--needed", "--noconfirm"}, pkgs...)
			return []runner.Command{runner.Cmd(helper, args...)}
		},
	}
}

// New returns the native manager for a package manager name.
func New(name string, r runner.Runner, asRoot bool) (Manager, error) {
	switch name {
	case platform.ManagerPacman:
		return NewPacman(r, asRoot), nil
	case platform.ManagerDNF:
		return NewDNF(r, asRoot), nil
	case platform.ManagerApt:
		return NewApt(r, asRoot), nil
	default:
		return nil, fmt.Errorf("unknown package manager: %q", name)
	}
}

// Options control Ensure.
type Options struct {
	DryRun bool
	Logger ui.Logger
}

// Result is the outcome of Ensure.
type Result struct {
	Satisfied []string
	Missing   []string
	// Installed is Missing when the install ran, empty on dry-run.
	Installed []string
}

// Ensure makes sure pkgs are installed. Packages whose installed query
// succeeds are left alone; the rest are installed with a single Install call.
// When nothing is missing, or on dry-run, Install is never called.
func Ensure(ctx context.Context, m Manager, pkgs []string, opts Options) (*Result, error) {
	logger := ui.OrNop(opts.Logger)
	result := &Result{}

	seen := make(map[string]bool, len(pkgs))
	for _, pkg := range pkgs {
		if pkg == "" || seen[pkg] {
			continue
		}
		seen[pkg] = true

		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("check packages: %w", err)
		}
		if m.IsInstalled(ctx, pkg) {
			result.Satisfied = append(result.Satisfied, pkg)
		} else {
			result.Missing = append(result.Missing, pkg)
		}
	}

	logger.Debug("package query done", "manager", m.Name(),
		"satisfied", len(result.Satisfied), "missing", len(result.Missing))

	if len(result.Missing) == 0 {
		logger.Info("all packages already installed", "manager", m.Name(), "count", len(result.Satisfied))
		return result, nil
	}

	if opts.DryRun {
		logger.Info("[dry-run] would install", "manager", m.Name(), "packages", result.Missing)
		return result, nil
	}

	logger.Info("installing packages", "manager", m.Name(), "packages", result.Missing)
	if err := m.Install(ctx, result.Missing); err != nil {
		return result, err
	}
	result.Installed = result.Missing
	logger.Success("packages installed", "manager", m.Name(), "count", len(result.Installed))

	return result, nil
}
