package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/runner"
)

// FakeRunner records commands instead of executing them.
type FakeRunner struct {
	mu sync.Mutex

	// Paths maps program names to what LookPath returns. Missing names are not found.
	Paths map[string]string

	// Handler produces the result of a command. A nil Handler succeeds with no output.
	Handler func(cmd runner.Command) ([]byte, error)

	Calls []runner.Command
}

// NewFakeRunner creates a FakeRunner that finds the given programs under /usr/bin.
func NewFakeRunner(programs ...string) *FakeRunner {
	f := &FakeRunner{Paths: make(map[string]string)}
	for _, p := range programs {
		f.Paths[p] = "/usr/bin/" + p
	}
	return f
}

// Run records cmd and returns the handler's error.
func (f *FakeRunner) Run(ctx context.Context, cmd runner.Command) error {
	_, err := f.Output(ctx, cmd)
	return err
}

// Output records cmd and returns the handler's result.
func (f *FakeRunner) Output(ctx context.Context, cmd runner.Command) ([]byte, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	handler := f.Handler
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, nil
	}
	return handler(cmd)
}

// LookPath resolves name from Paths.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.Paths[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// Commands returns the recorded command lines.
func (f *FakeRunner) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.String()
	}
	return out
}

// CallsTo returns the recorded commands whose line starts with prefix.
func (f *FakeRunner) CallsTo(prefix string) []string {
	var out []string
	for _, c := range f.Commands() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Failed returns a CommandError as the real runner would for a non-zero exit.
func Failed(cmd runner.Command, exitCode int) error {
	return &runner.CommandError{Command: cmd.String(), ExitCode: exitCode, Err: fmt.Errorf("exit status %d", exitCode)}
}
