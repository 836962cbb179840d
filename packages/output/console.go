package output

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/hitstep/packages/core/runner"
	"github.com/fatih/color"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Feature: "+result.Feature))
	fmt.Fprintf(f.writer, "%s\n\n", result.File)

	for _, sc := range result.Scenarios {
		if sc.Skipped {
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), sc.Name)
			if reason := visibleSkipReason(sc.SkipReason); reason != "" {
				fmt.Fprintf(f.writer, " (%s)", reason)
			}
			fmt.Fprintf(f.writer, "\n")
			continue
		}

		symbol := green("✓")
		if !sc.Passed {
			symbol = red("✗")
		}
		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, sc.Name, cyan(fmt.Sprintf("(%dms)", sc.Duration.Milliseconds())))

		if f.verbose {
			for _, s := range sc.Steps {
				fmt.Fprintf(f.writer, "      %s %s %s\n", f.stepSymbol(s.Status), s.Keyword, s.Text)
			}
			if sc.Response != nil {
				fmt.Fprintf(f.writer, "    Status: %d\n", sc.Response.StatusCode)
			}
		}

		if !sc.Passed {
			if step := failedStep(sc); step != nil {
				fmt.Fprintf(f.writer, "    %s line %d: %s %s\n", red("→"), step.Line, step.Keyword, step.Text)
			}
			if sc.Error != nil {
				fmt.Fprintf(f.writer, "      %s\n", sc.Error)
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Scenarios: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	total := result.Passed + result.Failed + result.Skipped
	fmt.Fprintf(f.writer, "%d total\n", total)
	fmt.Fprintf(f.writer, "Time:      %dms\n", result.Duration.Milliseconds())
	if l := result.Latency; l.Count > 0 {
		fmt.Fprintf(f.writer, "Latency:   p50 %s, p95 %s, p99 %s, max %s (%d requests)\n",
			l.P50, l.P95, l.P99, l.Max, l.Count)
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) stepSymbol(s runner.Status) string {
	switch s {
	case runner.StatusPassed:
		return color.GreenString("✓")
	case runner.StatusFailed:
		return color.RedString("✗")
	case runner.StatusUndefined:
		return color.YellowString("?")
	}
	return color.YellowString("-")
}

// FormatLatency prints the per endpoint latency table collected over the run.
func (f *ConsoleFormatter) FormatLatency(endpoints []runner.EndpointSummary) {
	if len(endpoints) == 0 {
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s\n", bold("Latency by endpoint"))
	for _, e := range endpoints {
		fmt.Fprintf(f.writer, "  %-40s n=%-5d p50 %-10s p95 %-10s p99 %-10s max %s\n",
			e.Name, e.Count, e.P50, e.P95, e.P99, e.Max)
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitstep"), version)
}
