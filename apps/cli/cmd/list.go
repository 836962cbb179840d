package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hitstep/packages/core/parser"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>",
	Short: "List the scenarios in feature files",
	Long: `List every scenario defined in .feature files. Scenario outlines are
shown expanded, one entry per example row.

Examples:
  hitstep list features/users.feature
  hitstep list features/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	if len(files) == 0 {
		return exitErrorf(ExitUsageError, "no .feature files found")
	}

	for _, file := range files {
		f, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %s\n", file, f.Name)
		for _, sc := range f.Scenarios {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s (line %d)\n", sc.Name, sc.Line)
			if tags := sc.AllTags(f); len(tags) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    tags: @%s\n", strings.Join(tags, " @"))
			}
		}
	}

	return nil
}
