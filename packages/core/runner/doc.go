// Package runner executes feature files and collects their results.
//
// It provides functionality for:
//   - Running a feature file or an already parsed feature
//   - Seeding every scenario with a fresh Context built from the selected
//     environment, .env file and HITSTEP_VAR_* variables
//   - Running Background steps before each scenario
//   - Filtering scenarios by name pattern and tags, skipping @skip
//   - Parallel scenario execution with configurable concurrency
//   - Before and after scenario hooks
//   - Request latency percentiles backed by HdrHistogram
//   - Waiting for a service to become ready before the run
//
// A failing step fails its scenario; the remaining steps are reported as
// skipped and the next scenario starts from a clean Context.
package runner
