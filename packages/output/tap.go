package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitstep/packages/core/runner"
)

// TAPFormatter formats scenarios in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
}

type tapResult struct {
	number     int
	name       string
	passed     bool
	skipped    bool
	skipReason string
	error      string
	step       string
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	for _, sc := range result.Scenarios {
		f.testCount++
		tr := tapResult{
			number:     f.testCount,
			name:       result.Feature + ": " + sc.Name,
			passed:     sc.Passed,
			skipped:    sc.Skipped,
			skipReason: visibleSkipReason(sc.SkipReason),
			error:      errorText(sc.Error),
		}
		if step := failedStep(sc); step != nil {
			tr.step = fmt.Sprintf("%s %s", step.Keyword, step.Text)
		}
		f.results = append(f.results, tr)
	}
}

func (f *TAPFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		if r.skipped {
			reason := r.skipReason
			if reason == "" {
				reason = "SKIP"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", r.number, r.name, reason)
			continue
		}

		if r.passed {
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
			continue
		}

		fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
		fmt.Fprintf(f.writer, "  ---\n")
		if r.step != "" {
			fmt.Fprintf(f.writer, "  step: %s\n", escapeYAML(r.step))
		}
		if r.error != "" {
			fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(r.error))
		}
		fmt.Fprintf(f.writer, "  severity: fail\n")
		fmt.Fprintf(f.writer, "  ...\n")
	}

	fmt.Fprintln(f.writer)
	return nil
}

func escapeYAML(s string) string {
	// quote when the value holds YAML indicators
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}
