package cli

import (
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   "galoshes [target]...",
	Short: "Dispatch declared packaging-workflow targets",
	Long: `galoshes maps named workflow targets (install, publish, test, ...)
declared in galoshes.star to external tool invocations and runs them in
dependency order, one subprocess at a time, stopping at the first
non-zero exit.`,
	SilenceUsage: true,
	Args:         cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bare `galoshes <target>` is the common invocation; it behaves
		// like `galoshes run <target>` with default flags.
		if len(args) == 0 {
			return cmd.Help()
		}
		return runTargets(cmd, args)
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
