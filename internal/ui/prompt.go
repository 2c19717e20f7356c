package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Prompter asks the operator for consent.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// ConsolePrompter reads yes/no answers from a line-oriented reader.
type ConsolePrompter struct {
	reader      *bufio.Reader
	out         io.Writer
	interactive bool
	assumeYes   bool
}

// NewPrompter creates a prompter over in/out.
// A non-interactive prompter answers "no" to everything unless assumeYes is set.
func NewPrompter(in io.Reader, out io.Writer, interactive, assumeYes bool) *ConsolePrompter {
	return &ConsolePrompter{
		reader:      bufio.NewReader(in),
		out:         out,
		interactive: interactive,
		assumeYes:   assumeYes,
	}
}

// NewStdinPrompter creates a prompter on the process's stdin and stdout.
func NewStdinPrompter(assumeYes bool) *ConsolePrompter {
	fd := os.Stdin.Fd()
	interactive := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return NewPrompter(os.Stdin, os.Stdout, interactive, assumeYes)
}

// Confirm prints question and waits for a y/yes answer. Anything else,
// including an empty line or EOF, is a refusal.
func (p *ConsolePrompter) Confirm(question string) (bool, error) {
	if p.assumeYes {
		fmt.Fprintf(p.out, "%s [y/N]: y (--yes)\n", question)
		return true, nil
	}
	if !p.interactive {
		return false, nil
	}

	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	response, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes" || response == "y", nil
}
