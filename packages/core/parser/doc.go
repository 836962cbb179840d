// Package parser reads hitstep .feature files.
//
// The format is a Gherkin subset:
//   - One Feature per file, with an optional free-text description
//   - An optional Background whose steps run before every scenario
//   - Scenario (or Example) blocks made of Given/When/Then/And/But/* steps
//   - Scenario Outline blocks expanded once per Examples row, with <name>
//     substituted in names, steps, tables and doc strings
//   - @tags on features, scenarios and Examples blocks
//   - Data tables (| key | value |) and doc strings (""" or ```) as step arguments
//   - # comments
//
// Errors are returned as *ParseError with file, line and column.
package parser
