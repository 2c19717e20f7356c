package installer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/deploy"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/font"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/git"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/lock"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/platform"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/runner"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/testutil"
)

type fakeDetector struct {
	info *platform.Info
	err  error
}

func (d fakeDetector) Detect(ctx context.Context) (*platform.Info, error) {
	return d.info, d.err
}

func linux(id string) fakeDetector {
	return fakeDetector{info: &platform.Info{OS: "linux", Arch: "amd64", ArchRaw: "amd64", Platform: id}}
}

type fakeCloner struct{ calls int }

func (c *fakeCloner) Clone(ctx context.Context, url, dir string, opts git.CloneOptions) (string, error) {
	c.calls++
	return "", errors.New("unexpected clone")
}

const manifestTemplate = `
terminal = {
  packages = {
    prerequisites = { "git" },
    common = { "zsh", "tmux" },
    arch = { "fd" },
    debian = { "fd-find" },
    aur = { "zsh-theme-powerlevel10k-git" },
  },
  aur = {
    helpers = { "paru", "yay" },
    bootstrap = { repo = "https://aur.archlinux.org/yay-bin.git", helper = "yay" },
  },
  deploy = {
    { source = "zsh/.zshrc", dest = "~/.zshrc" },
    { source = "missing/.vimrc", dest = "~/.vimrc" },
    { source = "tmux/tmux.conf", dest = "$XDG_CONFIG_HOME/tmux/tmux.conf" },
  },
  directories = { "$XDG_STATE_HOME/zsh" },
  font = { family = "Test Mono", url = "%s/TestMono.zip", dir = "TestMono" },
  shell = { target = "zsh" },
  verify = { "zsh", "tmux", { "fd", "fdfind" } },
}
`

type harness struct {
	env       *testutil.Env
	source    string
	runner    *testutil.FakeRunner
	logger    *testutil.RecordingLogger
	prompter  *testutil.StaticPrompter
	cloner    *fakeCloner
	server    *httptest.Server
	fontHits  atomic.Int32
	fontFails atomic.Bool
	installed map[string]bool
	opts      Options
	clock     deploy.Clock
}

func fontZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("TestMono-Regular.ttf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("ttf"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		env:       testutil.SetupTestEnv(t),
		runner:    testutil.NewFakeRunner("pacman", "yay", "zsh", "tmux", "fc-list", "fc-cache", "chsh"),
		logger:    &testutil.RecordingLogger{},
		prompter:  &testutil.StaticPrompter{Answer: true},
		cloner:    &fakeCloner{},
		installed: map[string]bool{"git": true, "zsh": true},
	}
	t.Setenv("SHELL", "/bin/bash")

	archive := fontZip(t)
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.fontHits.Add(1)
		if h.fontFails.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(archive)
	}))
	t.Cleanup(h.server.Close)

	h.source = filepath.Join(h.env.Root, "dotfiles")
	testutil.WriteFile(t, filepath.Join(h.source, "zsh", ".zshrc"), "# new zshrc\n")
	testutil.WriteFile(t, filepath.Join(h.source, "tmux", "tmux.conf"), "set -g mouse on\n")
	testutil.WriteFile(t, filepath.Join(h.source, "terminal-setup.lua"), fmt.Sprintf(manifestTemplate, h.server.URL))

	passwd := filepath.Join(h.env.Root, "passwd")
	testutil.WriteFile(t, passwd, "")

	h.runner.Handler = func(cmd runner.Command) ([]byte, error) {
		switch {
		case (cmd.Name == "pacman" || cmd.Name == "dpkg") && len(cmd.Args) == 2:
			if h.installed[cmd.Args[1]] {
				return nil, nil
			}
			return nil, testutil.Failed(cmd, 1)
		case len(cmd.Args) == 1 && cmd.Args[0] == "--version":
			return []byte(filepath.Base(cmd.Name) + " 1.0\n"), nil
		}
		return nil, nil
	}

	h.opts = Options{
		SourceDir:  h.source,
		PasswdPath: passwd,
		TempDir:    t.TempDir(),
	}
	return h
}

func (h *harness) installer(detector platform.Detector) *Installer {
	return New(h.opts, Deps{
		Detector:   detector,
		Runner:     h.runner,
		Cloner:     h.cloner,
		Prompter:   h.prompter,
		Logger:     h.logger,
		Clock:      h.clock,
		Downloader: font.NewDownloader(h.server.Client()),
		Out:        &bytes.Buffer{},
	})
}

func (h *harness) mutations() []string {
	var out []string
	for _, c := range h.runner.Commands() {
		switch {
		case strings.HasPrefix(c, "pacman -Q"), strings.HasPrefix(c, "dpkg -s"),
			strings.HasPrefix(c, "fc-list"), strings.HasSuffix(c, "--version"):
		default:
			out = append(out, c)
		}
	}
	return out
}

func TestRun_Arch(t *testing.T) {
	h := newHarness(t)
	zshrc := filepath.Join(h.env.Home, ".zshrc")
	testutil.WriteFile(t, zshrc, "# old zshrc\n")

	sum, err := h.installer(linux("arch")).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "arch", sum.Distro.ID)
	assert.Equal(t, filepath.Join(h.source, "terminal-setup.lua"), sum.ManifestOrigin)
	assert.NotEmpty(t, sum.RunID)

	assert.Equal(t, []string{
		"sudo pacman -S --needed --noconfirm tmux fd",
		"yay -S --needed --noconfirm zsh-theme-powerlevel10k-git",
		"fc-cache -f " + filepath.Join(h.env.DataHome, "fonts", "TestMono"),
		"chsh -s /usr/bin/zsh",
	}, h.mutations())

	assert.Equal(t, []string{"git"}, sum.Prerequisites.Satisfied)
	assert.Equal(t, "yay", sum.AURHelper)
	assert.Equal(t, []string{"tmux", "fd"}, sum.Packages.Installed)
	assert.Zero(t, h.cloner.calls)

	// Dotfiles deployed with the old file moved aside.
	assert.Equal(t, "# new zshrc\n", testutil.ReadFile(t, zshrc))
	require.Len(t, sum.Deploy.Backups, 1)
	assert.Equal(t, "# old zshrc\n", testutil.ReadFile(t, filepath.Join(sum.Deploy.BackupDir, ".zshrc")))
	assert.True(t, strings.HasPrefix(sum.Deploy.BackupDir, filepath.Join(h.env.Home, BackupDirName, deploy.BackupPrefix)))
	assert.Equal(t, "set -g mouse on\n", testutil.ReadFile(t, filepath.Join(h.env.ConfigHome, "tmux", "tmux.conf")))
	assert.Equal(t, []string{"missing/.vimrc"}, sum.Deploy.Skipped)
	assert.True(t, h.logger.Contains("warn", "source missing"))
	assert.DirExists(t, filepath.Join(h.env.StateHome, "zsh"))

	assert.FileExists(t, filepath.Join(h.env.DataHome, "fonts", "TestMono", "TestMono-Regular.ttf"))
	assert.True(t, sum.Shell.Changed)

	require.NotNil(t, sum.Report)
	assert.Len(t, sum.Report.Found, 2)
	assert.Equal(t, []string{"fd"}, sum.Report.Missing)

	assert.NoFileExists(t, filepath.Join(h.env.StateHome, "terminal-setup", lock.FileName), "lock not released")
}

func TestRun_Debian(t *testing.T) {
	h := newHarness(t)

	sum, err := h.installer(linux("ubuntu")).Run(context.Background())
	require.NoError(t, err)

	mut := h.mutations()
	require.GreaterOrEqual(t, len(mut), 2)
	assert.Equal(t, "sudo apt-get update", mut[0])
	assert.Equal(t, "sudo apt-get install -y tmux fd-find", mut[1])
	assert.Empty(t, h.runner.CallsTo("yay"))
	assert.Empty(t, sum.AURHelper)
	assert.Nil(t, sum.AURPackages)
}

func TestRun_AsRootSkipsSudo(t *testing.T) {
	h := newHarness(t)
	h.opts.AsRoot = true

	_, err := h.installer(linux("arch")).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.runner.CallsTo("sudo"))
	assert.Len(t, h.runner.CallsTo("pacman -S"), 1)
}

func TestRun_UnsupportedDistro(t *testing.T) {
	h := newHarness(t)

	sum, err := h.installer(linux("plan9")).Run(context.Background())
	require.Error(t, err)

	var unsupported *platform.UnsupportedDistroError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "plan9", unsupported.ID)
	assert.Contains(t, err.Error(), "plan9")
	assert.Nil(t, sum.Distro)
	assert.Empty(t, h.runner.Calls, "no command may run on an unsupported distribution")
	assert.NoFileExists(t, filepath.Join(h.env.Home, ".zshrc"))
}

func TestRun_MissingOSRelease(t *testing.T) {
	h := newHarness(t)

	_, err := h.installer(linux("")).Run(context.Background())
	assert.ErrorIs(t, err, platform.ErrNoOSRelease)
	assert.Empty(t, h.runner.Calls)
}

// snapshot records every path under root with its mode and content.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entry := info.Mode().String()
		if info.Mode().IsRegular() {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			entry += ":" + string(data)
		}
		out[path] = entry
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestRun_DryRunMutatesNothing(t *testing.T) {
	h := newHarness(t)
	h.opts.DryRun = true
	delete(h.runner.Paths, "yay")
	testutil.WriteFile(t, filepath.Join(h.env.Home, ".zshrc"), "# old zshrc\n")

	before := snapshot(t, h.env.Root)
	sum, err := h.installer(linux("arch")).Run(context.Background())
	require.NoError(t, err)
	after := snapshot(t, h.env.Root)

	assert.Equal(t, before, after, "dry-run changed the filesystem")
	assert.Empty(t, h.mutations(), "dry-run ran mutating commands")
	assert.Zero(t, h.fontHits.Load(), "dry-run downloaded the font")
	assert.Empty(t, h.prompter.Questions, "dry-run prompted")
	assert.Zero(t, h.cloner.calls)
	assert.Empty(t, sum.RunID, "dry-run took the run lock")

	assert.Equal(t, []string{"tmux", "fd"}, sum.Packages.Missing)
	assert.Empty(t, sum.Packages.Installed)
	assert.Empty(t, sum.Deploy.BackupDir)
	assert.Len(t, sum.Deploy.Deployed, 2)
	assert.True(t, sum.Shell.DryRun)
	assert.True(t, h.logger.Contains("info", "[dry-run]"))
}

func TestRun_AllSatisfiedInstallsNothing(t *testing.T) {
	h := newHarness(t)
	for _, pkg := range []string{"tmux", "fd", "zsh-theme-powerlevel10k-git"} {
		h.installed[pkg] = true
	}

	sum, err := h.installer(linux("arch")).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.runner.CallsTo("sudo"))
	assert.Empty(t, h.runner.CallsTo("yay"))
	assert.Empty(t, sum.Packages.Missing)
	assert.True(t, h.logger.Contains("info", "all packages already installed"))
}

func TestRun_PackageFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	next := h.runner.Handler
	h.runner.Handler = func(cmd runner.Command) ([]byte, error) {
		if cmd.Name == "sudo" {
			return nil, testutil.Failed(cmd, 1)
		}
		return next(cmd)
	}

	sum, err := h.installer(linux("arch")).Run(context.Background())
	require.Error(t, err)

	var cmdErr *runner.CommandError
	assert.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, err.Error(), "install packages")
	assert.Nil(t, sum.Deploy, "deployment must not run after a failed install")
	assert.NoFileExists(t, filepath.Join(h.env.Home, ".zshrc"))
	assert.Empty(t, h.runner.CallsTo("chsh"))
}

func TestRun_FontFailureIsBestEffort(t *testing.T) {
	h := newHarness(t)
	h.fontFails.Store(true)

	sum, err := h.installer(linux("arch")).Run(context.Background())
	require.NoError(t, err)

	assert.Error(t, sum.FontErr)
	assert.True(t, h.logger.Contains("warn", "font install failed"))
	assert.FileExists(t, filepath.Join(h.env.Home, ".zshrc"), "deployment must still run")
	assert.True(t, sum.Shell.Changed)
}

func TestRun_AURDeclined(t *testing.T) {
	h := newHarness(t)
	delete(h.runner.Paths, "yay")
	h.prompter.Answer = false

	sum, err := h.installer(linux("manjaro")).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, sum.AURHelper)
	assert.Nil(t, sum.AURPackages)
	assert.Zero(t, h.cloner.calls)
	assert.Contains(t, h.prompter.Questions[0], "AUR")
	assert.True(t, h.logger.Contains("info", "skipping AUR packages"))
}

func TestRun_ShellDeclined(t *testing.T) {
	h := newHarness(t)
	h.prompter.Answer = false

	sum, err := h.installer(linux("fedora")).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, sum.Shell.Declined)
	assert.Empty(t, h.runner.CallsTo("chsh"))
}

func TestRun_TwoRunsGiveDistinctBackups(t *testing.T) {
	h := newHarness(t)
	h.clock = deploy.TestClock{FixedTime: time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)}
	zshrc := filepath.Join(h.env.Home, ".zshrc")
	testutil.WriteFile(t, zshrc, "# original\n")

	first, err := h.installer(linux("arch")).Run(context.Background())
	require.NoError(t, err)

	testutil.WriteFile(t, filepath.Join(h.source, "zsh", ".zshrc"), "# second run\n")
	second, err := h.installer(linux("arch")).Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, first.Deploy.BackupDir)
	require.NotEmpty(t, second.Deploy.BackupDir)
	assert.NotEqual(t, first.Deploy.BackupDir, second.Deploy.BackupDir)
	assert.Equal(t, "# original\n", testutil.ReadFile(t, filepath.Join(first.Deploy.BackupDir, ".zshrc")))
	assert.Equal(t, "# new zshrc\n", testutil.ReadFile(t, filepath.Join(second.Deploy.BackupDir, ".zshrc")))
	assert.Equal(t, "# second run\n", testutil.ReadFile(t, zshrc))
}

func TestRun_HeldLock(t *testing.T) {
	h := newHarness(t)
	held, err := lock.Acquire(context.Background(), filepath.Join(h.env.StateHome, "terminal-setup"))
	require.NoError(t, err)
	defer held.Release()

	_, err = h.installer(linux("arch")).Run(context.Background())
	require.ErrorIs(t, err, lock.ErrLockExists)
	assert.Empty(t, h.mutations())
}

func TestRun_EmbeddedManifest(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.Remove(filepath.Join(h.source, "terminal-setup.lua")))
	h.opts.DryRun = true

	sum, err := h.installer(linux("debian")).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<embedded>", sum.ManifestOrigin)
	assert.Contains(t, sum.Packages.Missing, "fd-find")
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.installer(linux("arch")).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.mutations())
}
