package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/ui"
)

// maxBackupSuffix bounds the search for a free backup directory name.
const maxBackupSuffix = 100

// rename is swapped in tests to simulate cross-device moves.
var rename = os.Rename

// Options configure a Deployer.
type Options struct {
	// Home is the directory backup paths are made relative to.
	Home string
	// BackupRoot holds the per-run backup directories (~/.config-backup).
	BackupRoot string
	DryRun     bool
	Clock      Clock
	Logger     ui.Logger
}

// Deployer deploys pairs for one run. The backup directory is created on
// first use and shared by every pair of the run.
type Deployer struct {
	home       string
	backupRoot string
	dryRun     bool
	clock      Clock
	logger     ui.Logger

	backupDir string
}

// New creates a Deployer.
func New(opts Options) *Deployer {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	return &Deployer{
		home:       opts.Home,
		backupRoot: opts.BackupRoot,
		dryRun:     opts.DryRun,
		clock:      clock,
		logger:     ui.OrNop(opts.Logger),
	}
}

// Deploy processes every pair independently. A missing source is logged and
// skipped. Any other failure is recorded and the remaining pairs still run;
// the recorded failures are returned joined once all pairs are done.
func (d *Deployer) Deploy(ctx context.Context, pairs []Pair) (*Result, error) {
	result := &Result{}
	var errs []error
	seen := make(map[string]bool, len(pairs))

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("deploy cancelled: %w", err))
			break
		}
		// Deploying twice to one path would move this run's output over the
		// original already in the backup directory.
		dest := filepath.Clean(p.Dest)
		if seen[dest] {
			errs = append(errs, &PairError{Dest: p.Dest, Message: fmt.Sprintf("destination already deployed in this run, skipping %s", p.Name)})
			continue
		}
		seen[dest] = true

		info, err := os.Stat(p.Source)
		if errors.Is(err, fs.ErrNotExist) {
			d.logger.Warn("source missing, skipping", "source", p.Name)
			result.Skipped = append(result.Skipped, p.Name)
			continue
		}
		if err != nil {
			errs = append(errs, &PairError{Dest: p.Dest, Message: "stat source", Cause: err})
			continue
		}
		if !info.Mode().IsRegular() {
			errs = append(errs, &PairError{Dest: p.Dest, Message: fmt.Sprintf("source %s is not a regular file", p.Name)})
			continue
		}

		backup, err := d.deployOne(p, info.Mode().Perm())
		if backup != nil {
			result.Backups = append(result.Backups, *backup)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		result.Deployed = append(result.Deployed, p.Dest)
	}

	result.BackupDir = d.backupDir
	return result, errors.Join(errs...)
}

// deployOne backs up whatever is at p.Dest and copies p.Source over it.
func (d *Deployer) deployOne(p Pair, perm fs.FileMode) (*Backup, error) {
	_, err := os.Lstat(p.Dest)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &PairError{Dest: p.Dest, Message: "stat destination", Cause: err}
	}

	if d.dryRun {
		if exists {
			d.logger.Info("[dry-run] would back up", "dest", p.Dest)
		}
		d.logger.Info("[dry-run] would deploy", "source", p.Name, "dest", p.Dest)
		return nil, nil
	}

	var backup *Backup
	if exists {
		to, err := d.backup(p.Dest)
		if err != nil {
			return nil, &PairError{Dest: p.Dest, Message: "back up existing file", Cause: err}
		}
		backup = &Backup{From: p.Dest, To: to}
		d.logger.Info("backed up", "from", p.Dest, "to", to)
	}

	if err := os.MkdirAll(filepath.Dir(p.Dest), 0o755); err != nil {
		return backup, &PairError{Dest: p.Dest, Message: "create parent directory", Cause: err}
	}
	if err := copyFile(p.Source, p.Dest, perm); err != nil {
		return backup, &PairError{Dest: p.Dest, Message: "copy", Cause: err}
	}

	d.logger.Success("deployed", "source", p.Name, "dest", p.Dest)
	return backup, nil
}

// backup moves path into the run's backup directory and returns the new location.
func (d *Deployer) backup(path string) (string, error) {
	dir, err := d.ensureBackupDir()
	if err != nil {
		return "", err
	}

	target := filepath.Join(dir, backupRelPath(d.home, path))
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	if err := move(path, target); err != nil {
		return "", err
	}
	return target, nil
}

// ensureBackupDir creates the run's backup directory on first use.
// Names carry a second-resolution timestamp; a run in the same second as an
// earlier one gets a numeric suffix so backups never collide.
func (d *Deployer) ensureBackupDir() (string, error) {
	if d.backupDir != "" {
		return d.backupDir, nil
	}

	if err := os.MkdirAll(d.backupRoot, 0o700); err != nil {
		return "", fmt.Errorf("create backup root: %w", err)
	}

	base := filepath.Join(d.backupRoot, BackupPrefix+d.clock.Now().Format(backupTimeFormat))
	for i := 1; i <= maxBackupSuffix; i++ {
		candidate := base
		if i > 1 {
			candidate = base + "-" + strconv.Itoa(i)
		}
		err := os.Mkdir(candidate, 0o700)
		if err == nil {
			d.backupDir = candidate
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("create backup directory: %w", err)
		}
	}
	return "", fmt.Errorf("create backup directory: %s and %d suffixed names already exist", base, maxBackupSuffix)
}

// backupRelPath mirrors path below the backup directory: relative to home
// when inside it, otherwise its absolute path without the leading separator.
func backupRelPath(home, path string) string {
	if home != "" {
		if rel, err := filepath.Rel(home, path); err == nil && rel != "." && rel != ".." &&
			!strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return rel
		}
	}
	return strings.TrimPrefix(filepath.Clean(path), string(filepath.Separator))
}

// move renames src to dst, copying across filesystems when rename cannot.
func move(src, dst string) error {
	err := rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("move %s: %w", src, err)
	}

	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("move %s: %w", src, err)
	}
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return fmt.Errorf("move %s: %w", src, err)
		}
		if err := os.Symlink(target, dst); err != nil {
			return fmt.Errorf("move %s: %w", src, err)
		}
	case info.Mode().IsRegular():
		if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
			return fmt.Errorf("move %s: %w", src, err)
		}
	default:
		return fmt.Errorf("move %s: cannot copy %s across filesystems", src, info.Mode().Type())
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("move %s: remove original: %w", src, err)
	}
	return nil
}

// copyFile writes src to a temp file next to dst and renames it into place.
func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".terminal-setup-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // Clean up on error

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, dst)
}

// EnsureDirs creates the directories the dotfiles expect and returns the
// ones that did not exist. On dry-run nothing is created.
func (d *Deployer) EnsureDirs(dirs []string) ([]string, error) {
	var (
		created []string
		errs    []error
	)
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				errs = append(errs, &PairError{Dest: dir, Message: "exists and is not a directory"})
			}
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, &PairError{Dest: dir, Message: "stat directory", Cause: err})
			continue
		}

		if d.dryRun {
			d.logger.Info("[dry-run] would create directory", "path", dir)
			created = append(created, dir)
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			errs = append(errs, &PairError{Dest: dir, Message: "create directory", Cause: err})
			continue
		}
		d.logger.Debug("created directory", "path", dir)
		created = append(created, dir)
	}
	return created, errors.Join(errs...)
}
