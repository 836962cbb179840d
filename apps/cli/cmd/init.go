package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/hitstep/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new hitstep project",
	Long: `Initialize a new hitstep project in the current directory.

This creates:
  - hitstep.yaml              - Configuration file with environments
  - features/example.feature  - Example feature file
  - schemas/user.json         - JSON schema used by the example

Examples:
  hitstep init
  hitstep init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleFeature = `@users
Feature: Users API
  Exercise the user endpoints of the service under test.

  Background:
    Given set base url to {baseUrl}
    And add to headers
      | Accept | application/json |

  @smoke
  Scenario: Create a user
    Given set endpoint to /users
    And generate random values
      | email | [a-z]{8}@example\.com |
    And add to body
      | name        | Ada      |
      | email       | {email}  |
      | age:integer | 36       |
    When send a POST request
    Then validate status code of 201
    And the response body should match schema: user.json
    And extract values from response
      | id   | userId:long |
      | name | userName    |
    And the value userid should exist

  Scenario Outline: Fetch users by id
    Given add to path parameters
      | id:integer | <id> |
    And set endpoint to /users/{id}
    When send a GET request
    Then validate status code of <status>

    Examples:
      | id  | status |
      | 1   | 200    |
      | 999 | 404    |
`

const exampleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name"],
  "properties": {
    "id": {"type": "integer"},
    "name": {"type": "string"},
    "email": {"type": "string"}
  }
}
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "hitstep.yaml")
	exampleFile := filepath.Join(cwd, "features", "example.feature")
	schemaFile := filepath.Join(cwd, config.DefaultSchemaDir, "user.json")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile, schemaFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.Headers = map[string]string{
		"User-Agent": "hitstep/" + version,
	}
	cfg.Environments = map[string]map[string]any{
		"dev": {
			"baseUrl": "http://localhost:3000",
		},
		"staging": {
			"baseUrl": "https://staging.api.example.com",
		},
		"prod": {
			"baseUrl": "https://api.example.com",
		},
	}

	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	for path, content := range map[string]string{
		exampleFile: exampleFeature,
		schemaFile:  exampleSchema,
	} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nhitstep project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'hitstep run features/' to execute the example scenarios.\n")

	return nil
}
