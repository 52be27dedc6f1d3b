package cli

import (
	"fmt"

	"github.com/bsmithyman/galoshes/config"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List declared targets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.LoadSettings()

		targets, err := config.ParseWorkflowConfig(settings.ConfigFile)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(targets))
		for name := range targets {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			t := targets[name]
			label := name
			if t.Phony {
				label += " (phony)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", label, t.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
