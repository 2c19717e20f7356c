// Package verify reports which expected tools ended up on the search path.
package verify

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/config"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/runner"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/ui"
)

// UnknownVersion is reported when a tool's version query fails or prints nothing.
const UnknownVersion = "unknown"

// ToolVersion is a tool found on PATH.
type ToolVersion struct {
	Name    string
	Binary  string // the alternate name that matched, e.g. fdfind for fd
	Path    string
	Version string
}

// Report is the outcome of a verification pass.
type Report struct {
	Found   []ToolVersion
	Missing []string
}

// Reporter checks tools through a runner.
type Reporter struct {
	runner runner.Runner
	logger ui.Logger
}

// NewReporter creates a Reporter.
func NewReporter(r runner.Runner, logger ui.Logger) *Reporter {
	return &Reporter{runner: r, logger: ui.OrNop(logger)}
}

// Check looks up every tool. The first binary name found on PATH wins; its
// version is the first non-empty line of `<binary> --version`. Check never
// fails: lookup and version errors only shape the report.
func (r *Reporter) Check(ctx context.Context, tools []config.Tool) *Report {
	report := &Report{}
	for _, tool := range tools {
		found := false
		for _, bin := range tool.Binaries {
			path, err := r.runner.LookPath(bin)
			if err != nil {
				continue
			}
			report.Found = append(report.Found, ToolVersion{
				Name:    tool.Name,
				Binary:  bin,
				Path:    path,
				Version: r.version(ctx, path),
			})
			found = true
			break
		}
		if !found {
			report.Missing = append(report.Missing, tool.Name)
		}
	}
	return report
}

func (r *Reporter) version(ctx context.Context, path string) string {
	out, err := r.runner.Output(ctx, runner.Cmd(path, "--version"))
	if err != nil {
		r.logger.Debug("version query failed", "binary", path, "error", err)
		return UnknownVersion
	}
	if line := FirstLine(out); line != "" {
		return line
	}
	return UnknownVersion
}

// FirstLine returns the first non-blank line of out, trimmed.
func FirstLine(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}

// Print renders the report as a checklist followed by the missing count.
func Print(w io.Writer, report *Report) {
	ui.Section(w, "Verification")
	for _, t := range report.Found {
		label := t.Name
		if t.Binary != t.Name {
			label = fmt.Sprintf("%s (%s)", t.Name, t.Binary)
		}
		ui.Check(w, label, t.Version)
	}
	for _, name := range report.Missing {
		ui.Cross(w, name, "not found")
	}
	if len(report.Missing) == 0 {
		ui.Line(w, "All %d tools found", len(report.Found))
		return
	}
	ui.Line(w, "%d of %d tools missing", len(report.Missing), len(report.Found)+len(report.Missing))
}
