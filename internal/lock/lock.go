// Package lock keeps two terminal-setup runs from mutating the same home
// directory at once.
package lock

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	// FileName is the lock file created inside the lock directory.
	FileName = "run.lock"

	// StaleLockThreshold is the age after which a lock with an unreadable owner is stale.
	StaleLockThreshold = 6 * time.Hour
)

// ErrLockExists is returned when another live run holds the lock.
var ErrLockExists = errors.New("another terminal-setup run is in progress")

// HeldError describes the run holding the lock.
type HeldError struct {
	Path  string
	PID   int
	RunID string
	Since time.Time
}

func (e *HeldError) Error() string {
	if e.PID == 0 {
		return fmt.Sprintf("%s (lock file %s)", ErrLockExists, e.Path)
	}
	return fmt.Sprintf("%s: pid %d since %s (lock file %s)",
		ErrLockExists, e.PID, e.Since.Format(time.RFC3339), e.Path)
}

func (e *HeldError) Unwrap() error { return ErrLockExists }

// Lock is a held run lock.
type Lock struct {
	path  string
	runID string
	file  *os.File
}

// Owner is the content of a lock file.
type Owner struct {
	PID   int
	RunID string
	Since time.Time
}

// pidExists is replaced in tests.
var pidExists = func(ctx context.Context, pid int32) (bool, error) {
	return process.PidExistsWithContext(ctx, pid)
}

// Acquire takes the lock in dir, creating dir when needed. A lock whose
// owning process no longer exists is removed and taken over once.
func Acquire(ctx context.Context, dir string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lockPath := filepath.Join(dir, FileName)

	file, err := create(lockPath)
	if errors.Is(err, os.ErrExist) {
		owner, readErr := ReadOwner(lockPath)
		if !isStale(ctx, lockPath, owner, readErr) {
			return nil, &HeldError{Path: lockPath, PID: owner.PID, RunID: owner.RunID, Since: owner.Since}
		}
		if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
		file, err = create(lockPath)
		if errors.Is(err, os.ErrExist) {
			return nil, &HeldError{Path: lockPath}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	runID := uuid.NewString()
	data := fmt.Sprintf("pid=%d\nrun_id=%s\ntimestamp=%s\n",
		os.Getpid(), runID, time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(data); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{path: lockPath, runID: runID, file: file}, nil
}

func create(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// RunID identifies the run holding the lock.
func (l *Lock) RunID() string { return l.runID }

// Release releases the lock. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if l.path != "" {
		path := l.path
		l.path = ""
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}
	return nil
}

// ReadOwner parses a lock file.
func ReadOwner(path string) (Owner, error) {
	f, err := os.Open(path)
	if err != nil {
		return Owner{}, err
	}
	defer f.Close()

	var owner Owner
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			owner.PID, _ = strconv.Atoi(value)
		case "run_id":
			owner.RunID = value
		case "timestamp":
			owner.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return owner, err
	}
	if owner.PID <= 0 {
		return owner, fmt.Errorf("lock file %s has no owner pid", path)
	}
	return owner, nil
}

// isStale reports whether the lock at path can be taken over: its owner
// process is gone, or the owner is unreadable and the file is old.
func isStale(ctx context.Context, path string, owner Owner, readErr error) bool {
	if readErr == nil {
		if owner.PID == os.Getpid() {
			return false
		}
		exists, err := pidExists(ctx, int32(owner.PID))
		if err == nil {
			return !exists
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Is(err, os.ErrNotExist)
	}
	return time.Since(info.ModTime()) > StaleLockThreshold
}
