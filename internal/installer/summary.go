package installer

import (
	"io"
	"path/filepath"
	"strconv"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/pkgmgr"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/shell"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/ui"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/verify"
)

// PrintSummary writes the verification report and the end-of-run summary.
func PrintSummary(w io.Writer, sum *Summary) {
	if sum.Report != nil {
		verify.Print(w, sum.Report)
	}

	title := "Summary"
	if sum.DryRun {
		title = "Summary (dry-run, nothing was changed)"
	}
	ui.Section(w, title)

	if sum.Distro != nil {
		ui.Line(w, "Distribution:  %s (%s, %s)", sum.Distro.ID, sum.Distro.Family, sum.Distro.PackageManager)
	}
	if sum.ManifestOrigin != "" {
		ui.Line(w, "Manifest:      %s", sum.ManifestOrigin)
	}

	ui.Line(w, "Packages:      %s", packageLine(sum.DryRun, sum.Prerequisites, sum.Packages))
	if sum.AURPackages != nil {
		ui.Line(w, "AUR (%s):  %s", sum.AURHelper, packageLine(sum.DryRun, sum.AURPackages))
	}

	switch {
	case sum.FontErr != nil:
		ui.Line(w, "Font:          failed (%v)", sum.FontErr)
	case sum.Font == nil:
	case sum.Font.AlreadyInstalled:
		ui.Line(w, "Font:          already installed")
	case sum.DryRun:
		ui.Line(w, "Font:          would install into %s", sum.Font.Dir)
	default:
		ui.Line(w, "Font:          %d files in %s", len(sum.Font.Files), sum.Font.Dir)
	}

	if d := sum.Deploy; d != nil {
		verb := "deployed"
		if sum.DryRun {
			verb = "would deploy"
		}
		ui.Line(w, "Dotfiles:      %d %s, %d skipped", len(d.Deployed), verb, len(d.Skipped))
		for _, name := range d.Skipped {
			ui.Cross(w, name, "source missing")
		}
		if d.BackupDir != "" {
			ui.Line(w, "Backups:       %s (%d files)", d.BackupDir, len(d.Backups))
		}
	}

	if next := nextSteps(sum); len(next) > 0 {
		ui.Section(w, "Next steps")
		for _, step := range next {
			ui.Line(w, "• %s", step)
		}
	}
}

func packageLine(dryRun bool, results ...*pkgmgr.Result) string {
	var satisfied, missing, installed int
	for _, r := range results {
		if r == nil {
			continue
		}
		satisfied += len(r.Satisfied)
		missing += len(r.Missing)
		installed += len(r.Installed)
	}
	if dryRun {
		return plural(missing, "to install") + ", " + plural(satisfied, "already present")
	}
	return plural(installed, "installed") + ", " + plural(satisfied, "already present")
}

func plural(n int, what string) string {
	if n == 1 {
		return "1 package " + what
	}
	return strconv.Itoa(n) + " packages " + what
}

func nextSteps(sum *Summary) []string {
	if sum.DryRun {
		return []string{"Run again without --dry-run to apply these changes"}
	}

	var steps []string
	if sum.Shell != nil && sum.Shell.Changed {
		steps = append(steps, "Log out and back in so "+sum.Shell.Target+" becomes your login shell")
	} else if sum.Shell != nil && sum.Shell.Target != "" {
		if det, err := shell.DetectShell(); err == nil && det.Shell != shell.ShellType(filepath.Base(sum.Shell.Target)) {
			steps = append(steps, "Start a new "+sum.Shell.Target+" session to load the new configuration")
		}
	}
	if sum.Deploy != nil && len(sum.Deploy.Deployed) > 0 {
		steps = append(steps, "Restart your terminal or open a new tab to pick up the deployed dotfiles")
	}
	if sum.FontErr == nil && sum.Font != nil && !sum.Font.AlreadyInstalled {
		steps = append(steps, "Select the installed font in your terminal emulator's settings")
	}
	if sum.Report != nil && len(sum.Report.Missing) > 0 {
		steps = append(steps, "Install the missing tools listed above by hand")
	}
	if sum.Deploy != nil && sum.Deploy.BackupDir != "" {
		steps = append(steps, "Review replaced files in "+sum.Deploy.BackupDir)
	}
	return steps
}
