package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/hitstep/packages/steps"
	"github.com/spf13/cobra"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the available step definitions",
	Long: `List the pattern of every built-in step definition. Patterns are
regular expressions matched against the whole step text, keyword excluded.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, def := range steps.Default().Definitions() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", def.Pattern)
		}
	},
}
