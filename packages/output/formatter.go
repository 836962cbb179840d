package output

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/hitstep/packages/core/runner"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatJUnit   = "junit"
	FormatTAP     = "tap"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Formatter receives the result of every feature file as it finishes.
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that accumulate results and write
// them once the run is over.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Formats lists the accepted --output values.
func Formats() []string {
	return []string{FormatConsole, FormatJSON, FormatJUnit, FormatTAP}
}

// New builds the formatter registered under format. Console options only
// apply to the console formatter.
func New(format string, w io.Writer, consoleOpts ...ConsoleOption) (Formatter, error) {
	switch format {
	case "", FormatConsole:
		return NewConsoleFormatter(append([]ConsoleOption{WithWriter(w)}, consoleOpts...)...), nil
	case FormatJSON:
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case FormatJUnit:
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case FormatTAP:
		return NewTAPFormatter(TAPWithWriter(w)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// failedStep returns the step that failed a scenario, if any.
func failedStep(sc *runner.ScenarioResult) *runner.StepResult {
	for _, s := range sc.Steps {
		if s.Status == runner.StatusFailed || s.Status == runner.StatusUndefined {
			return s
		}
	}
	return nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// visibleSkipReason hides the reason for scenarios removed by --name/--tags.
func visibleSkipReason(reason string) string {
	if reason == "filtered out" {
		return ""
	}
	return reason
}
