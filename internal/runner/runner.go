// Package runner executes the external programs terminal-setup drives
// (package managers, makepkg, fc-cache, chsh) behind a small interface so the
// rest of the installer can be exercised without touching the host.
package runner

import (
	"context"
	"strings"
)

// Command describes a single external program invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
}

// Cmd builds a Command from a program name and its arguments.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// In returns a copy of c that runs in dir.
func (c Command) In(dir string) Command {
	c.Dir = dir
	return c
}

// String renders the command line the way an operator would type it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t'\"") {
			arg = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Elevate prefixes c with sudo unless the caller already runs as root.
func Elevate(c Command, asRoot bool) Command {
	if asRoot {
		return c
	}
	return Command{
		Name: "sudo",
		Args: append([]string{c.Name}, c.Args...),
		Dir:  c.Dir,
	}
}

// Runner is the interface for running external commands.
type Runner interface {
	// Run executes cmd attached to the operator's terminal.
	Run(ctx context.Context, cmd Command) error

	// Output executes cmd and returns its standard output.
	Output(ctx context.Context, cmd Command) ([]byte, error)

	// LookPath resolves a program name on the search path.
	LookPath(name string) (string, error)
}
