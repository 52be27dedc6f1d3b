package cli

import (
	"github.com/bsmithyman/galoshes/config"
	"github.com/bsmithyman/galoshes/dispatch"
	"github.com/bsmithyman/galoshes/fs"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var (
	runForce  bool
	runNoSkip bool
	runUI     bool
)

var runCmd = &cobra.Command{
	Use:   "run <target>...",
	Short: "Run the named targets and their dependencies",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTargets,
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "Bypass the publish re-upload guard")
	runCmd.Flags().BoolVar(&runNoSkip, "no-skip", false, "Run file-backed targets even when up to date")
	runCmd.Flags().BoolVar(&runUI, "ui", false, "Show the live status view while running")
	rootCmd.AddCommand(runCmd)
}

func runTargets(cmd *cobra.Command, args []string) error {
	settings := config.LoadSettings()

	targets, err := config.ParseWorkflowConfig(settings.ConfigFile)
	if err != nil {
		return err
	}

	fsys := fs.RealFileSystem{}
	executor := dispatch.NewShellExecutor(settings.Shell)
	lockMgr := dispatch.NewLockFileManager(fsys, settings.LockFile)

	d := dispatch.NewDispatcher(fsys, executor, lockMgr)
	d.Force = runForce
	d.NoSkip = runNoSkip

	if err := d.Initialize(); err != nil {
		return err
	}

	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		d.AddTarget(targets[name])
	}

	if runUI {
		return runWithStatusUI(d, executor, args)
	}
	return d.Dispatch(args...)
}
