package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/hitstep/packages/import/curl"
	"github.com/abdul-hamid-achik/hitstep/packages/import/feature"
	"github.com/abdul-hamid-achik/hitstep/packages/import/openapi"
	"github.com/abdul-hamid-achik/hitstep/packages/logging"
	"github.com/spf13/cobra"
)

var (
	importOutputFlag      string
	importBaseURLFlag     string
	importTagsFlag        string
	importExcludeTagsFlag string
	importOperationsFlag  string
	importNameFlag        string
)

var importCmd = &cobra.Command{
	Use:   "import <format> <source>",
	Short: "Generate feature files from other formats",
	Long: `Generate hitstep feature files from API descriptions and commands.

Supported formats:
  openapi - OpenAPI 3.0/3.1 document (YAML or JSON, file or URL)
  curl    - curl command lines, one per line

Examples:
  hitstep import openapi spec.yaml -o features/api.feature
  hitstep import openapi https://api.example.com/openapi.json --tags users
  hitstep import curl requests.sh --name "Smoke"
  pbpaste | hitstep import curl -`,
}

var importOpenAPICmd = &cobra.Command{
	Use:   "openapi <file-or-url>",
	Short: "Generate a feature from an OpenAPI document",
	Long: `Generate one scenario per operation of an OpenAPI document. Each scenario
fills in path, required query and header parameters with examples, sends the
request and checks the lowest documented 2xx status.

Examples:
  hitstep import openapi spec.yaml
  hitstep import openapi spec.yaml -o features/api.feature
  hitstep import openapi spec.yaml --tags users,auth --base-url {baseUrl}
  hitstep import openapi spec.yaml --operations getUser,createUser`,
	Args: cobra.ExactArgs(1),
	RunE: importOpenAPICommand,
}

var importCurlCmd = &cobra.Command{
	Use:   "curl <file|->",
	Short: "Generate a feature from curl commands",
	Long: `Generate one scenario per curl command. Commands may span lines with a
trailing backslash; blank lines and # comments are ignored. Use - to read
from stdin.

Examples:
  hitstep import curl requests.sh
  hitstep import curl requests.sh -o features/smoke.feature --name Smoke`,
	Args: cobra.ExactArgs(1),
	RunE: importCurlCommand,
}

func init() {
	importOpenAPICmd.Flags().StringVarP(&importOutputFlag, "output", "o", "", "Output file path (default: stdout)")
	importOpenAPICmd.Flags().StringVar(&importBaseURLFlag, "base-url", "", "Override the server URL of the document")
	importOpenAPICmd.Flags().StringVar(&importTagsFlag, "tags", "", "Only operations with any of these tags (comma-separated)")
	importOpenAPICmd.Flags().StringVar(&importExcludeTagsFlag, "exclude-tags", "", "Skip operations with any of these tags (comma-separated)")
	importOpenAPICmd.Flags().StringVar(&importOperationsFlag, "operations", "", "Only these operation IDs (comma-separated)")

	importCurlCmd.Flags().StringVarP(&importOutputFlag, "output", "o", "", "Output file path (default: stdout)")
	importCurlCmd.Flags().StringVar(&importNameFlag, "name", "Imported requests", "Feature name")

	importCmd.AddCommand(importOpenAPICmd)
	importCmd.AddCommand(importCurlCmd)
}

func importOpenAPICommand(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(cmd.ErrOrStderr(), "", logging.Level(false, false))
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}
	opts := []openapi.Option{openapi.WithLogger(logger)}
	if importBaseURLFlag != "" {
		opts = append(opts, openapi.WithBaseURL(importBaseURLFlag))
	}
	if tags := splitList(importTagsFlag); len(tags) > 0 {
		opts = append(opts, openapi.WithTags(tags))
	}
	if tags := splitList(importExcludeTagsFlag); len(tags) > 0 {
		opts = append(opts, openapi.WithExcludeTags(tags))
	}
	if ops := splitList(importOperationsFlag); len(ops) > 0 {
		opts = append(opts, openapi.WithOperations(ops))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	doc, err := openapi.NewConverter(opts...).ConvertFile(ctx, args[0])
	if err != nil {
		return &ExitError{Code: ExitParseError, Err: err}
	}
	return writeImport(cmd, doc)
}

func importCurlCommand(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return &ExitError{Code: ExitUsageError, Err: err}
		}
		defer f.Close()
		r = f
	}

	cmds, err := curl.ParseAll(r)
	if err != nil {
		return &ExitError{Code: ExitParseError, Err: err}
	}
	if len(cmds) == 0 {
		return exitErrorf(ExitUsageError, "no curl commands found")
	}

	name := importNameFlag
	if !cmd.Flags().Changed("name") && args[0] != "-" {
		base := filepath.Base(args[0])
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	doc, err := curl.Document(name, cmds)
	if err != nil {
		return &ExitError{Code: ExitParseError, Err: err}
	}
	return writeImport(cmd, doc)
}

func writeImport(cmd *cobra.Command, doc *feature.Document) error {
	if importOutputFlag == "" {
		fmt.Fprint(cmd.OutOrStdout(), doc.Render())
		return nil
	}
	if err := doc.WriteFile(importOutputFlag); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d scenarios in %s\n", len(doc.Scenarios), importOutputFlag)
	return nil
}
