package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/installer"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/ui"
)

type flags struct {
	dryRun      bool
	verbose     bool
	yes         bool
	source      string
	config      string
	printConfig bool
}

func newRootCommand(f *flags, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "terminal-setup",
		Short: "Set up a terminal environment on Arch, Fedora or Debian",
		Long: `terminal-setup detects the Linux distribution, installs the packages
listed in the manifest with the native package manager (and an AUR helper on
Arch), deploys dotfiles into place with a timestamped backup of anything they
replace, installs a Nerd Font, offers to change the login shell and finally
reports which tools are available.

The manifest is a Lua file. By default terminal-setup.lua at the dotfiles
source root is used, falling back to the manifest built into the binary.
Use --print-config to see the effective manifest.`,
		Version:       version,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, stdout, stderr)
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate(fmt.Sprintf("terminal-setup %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
		return err
	})

	fl := root.Flags()
	fl.BoolVar(&f.dryRun, "dry-run", false, "report intended actions without changing anything")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "echo every executed command")
	fl.BoolVarP(&f.yes, "yes", "y", false, "answer yes to confirmation prompts")
	fl.StringVar(&f.source, "source", "", "dotfiles source root (default: git root of the current directory)")
	fl.StringVar(&f.config, "config", "", "Lua manifest (default: <source>/terminal-setup.lua, else built-in)")
	fl.BoolVar(&f.printConfig, "print-config", false, "print the effective manifest and exit")

	return root
}

// noArgs rejects positional arguments and shows usage, like a bad flag.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
	return fmt.Errorf("unexpected argument %q", args[0])
}

func run(cmd *cobra.Command, f *flags, stdout, stderr io.Writer) error {
	ctx := cmd.Context()
	logger := ui.NewConsole(stderr, f.verbose)

	source, err := installer.ResolveSourceRoot(f.source)
	if err != nil {
		return err
	}

	inst := installer.New(installer.Options{
		DryRun:     f.dryRun,
		Verbose:    f.verbose,
		AssumeYes:  f.yes,
		AsRoot:     os.Geteuid() == 0,
		SourceDir:  source,
		ConfigPath: f.config,
	}, installer.Deps{
		Logger:   logger,
		Prompter: ui.NewStdinPrompter(f.yes),
		Out:      stdout,
	})

	if f.printConfig {
		return inst.PrintConfig(ctx)
	}

	if f.dryRun {
		logger.Info("dry-run: nothing will be changed")
	}
	sum, err := inst.Run(ctx)
	if sum != nil && sum.Distro != nil {
		installer.PrintSummary(stdout, sum)
	}
	return err
}
