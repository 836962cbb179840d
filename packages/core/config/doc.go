// Package config handles configuration loading and management for hitstep.
//
// It provides functionality for:
//   - Loading configuration from hitstep.yaml, .hitstep.yaml or hitstep.config.json
//   - Default configuration values
//   - Named environments whose variables are seeded into every scenario
//   - Merging file configuration with command-line overrides
package config
