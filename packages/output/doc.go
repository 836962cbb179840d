// Package output provides formatters for displaying scenario results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output with latency percentiles
//   - JSON: Machine-readable JSON output with per-step detail
//   - JUnit: JUnit XML format for CI integration, one suite per feature
//   - TAP: Test Anything Protocol format, one test per scenario
//
// Each formatter implements the Formatter interface and can optionally
// implement Flushable for formats that accumulate results before output.
package output
