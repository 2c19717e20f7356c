package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/ui"
)

// ErrCommandFailed is wrapped by every CommandError.
var ErrCommandFailed = errors.New("command failed")

// CommandError describes a command that could not be started or exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrCommandFailed, e.Command)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" (exit status %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// Is reports ErrCommandFailed as a match so callers can branch on it.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// Exec implements Runner with os/exec.
type Exec struct {
	logger ui.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewExec creates a Runner that traces every command at debug level.
func NewExec(logger ui.Logger) *Exec {
	return &Exec{
		logger: ui.OrNop(logger),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Run executes cmd with the process's stdio so sudo and makepkg can prompt.
func (e *Exec) Run(ctx context.Context, cmd Command) error {
	e.trace(cmd)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = e.stdin
	c.Stdout = e.stdout
	c.Stderr = e.stderr

	if err := c.Run(); err != nil {
		return translateError(ctx, cmd, err, "")
	}
	return nil
}

// Output executes cmd and captures stdout. Stderr is kept for the error message.
func (e *Exec) Output(ctx context.Context, cmd Command) ([]byte, error) {
	e.trace(cmd)

	var stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stderr = &stderr

	out, err := c.Output()
	if err != nil {
		return out, translateError(ctx, cmd, err, stderr.String())
	}
	return out, nil
}

// LookPath resolves name with exec.LookPath.
func (e *Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (e *Exec) trace(cmd Command) {
	if cmd.Dir != "" {
		e.logger.Debug("+ "+cmd.String(), "dir", cmd.Dir)
		return
	}
	e.logger.Debug("+ " + cmd.String())
}

// translateError maps exec failures to CommandError, keeping cancellation visible.
func translateError(ctx context.Context, cmd Command, err error, stderr string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: operation cancelled: %w", cmd.Name, ctxErr)
	}

	cmdErr := &CommandError{
		Command: cmd.String(),
		Stderr:  summarize(stderr),
		Err:     err,
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}

	return cmdErr
}

// summarize keeps the last non-empty stderr line, capped in length.
func summarize(stderr string) string {
	const maxLen = 200

	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if len(last) > maxLen {
		last = last[:maxLen] + "..."
	}
	return last
}
