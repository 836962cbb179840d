package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/hitstep/packages/core/parser"
	"github.com/abdul-hamid-achik/hitstep/packages/core/runner"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>",
	Short: "Validate feature files without running them",
	Long: `Validate feature files for syntax errors and steps that no definition
matches, without sending any request.

Examples:
  hitstep validate features/users.feature
  hitstep validate features/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	if len(files) == 0 {
		return exitErrorf(ExitUsageError, "no .feature files found")
	}

	r := runner.NewRunner(nil)
	hasErrors := false
	for _, file := range files {
		f, err := parser.ParseFile(file)
		if err == nil {
			err = r.Check(f)
		}
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error in %s:\n%v\n", file, err)
			hasErrors = true
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d scenarios)\n", file, len(f.Scenarios))
	}

	if hasErrors {
		return exitErrorf(ExitParseError, "validation failed")
	}

	return nil
}
