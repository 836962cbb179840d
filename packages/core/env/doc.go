// Package env holds per-scenario state and placeholder resolution for hitstep.
//
// It provides functionality for:
//   - The scenario Context, a typed key/value store reset after every scenario
//   - Placeholder substitution using {name} syntax
//   - Built-in function and $ENV fallbacks ({uuid()}, {$HOME})
//   - Loading .env files and configured environments into a Context
package env
