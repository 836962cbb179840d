// Package cmd implements the hitstep CLI commands using Cobra.
//
// Available commands:
//   - run: Execute the scenarios of feature files
//   - validate: Check syntax and step definitions without executing
//   - list: Display all scenarios defined in files
//   - steps: Print the available step patterns
//   - init: Create a new hitstep project with example files
//   - import: Generate feature files from OpenAPI documents or curl commands
//   - version: Show hitstep version information
//   - completion: Generate shell completion scripts
//
// Flags of the run command default to their HITSTEP_* environment variable
// and override the configuration file.
package cmd
