package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitstep/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary   `json:"summary"`
	Features []JSONFeature `json:"features"`
	Duration float64       `json:"duration"`
	Time     string        `json:"time"`
}

type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type JSONFeature struct {
	Name      string         `json:"name"`
	File      string         `json:"file"`
	Duration  float64        `json:"duration"`
	Scenarios []JSONScenario `json:"scenarios"`
	Latency   *JSONLatency   `json:"latency,omitempty"`
}

type JSONScenario struct {
	Name       string        `json:"name"`
	Line       int           `json:"line"`
	Tags       []string      `json:"tags,omitempty"`
	Passed     bool          `json:"passed"`
	Skipped    bool          `json:"skipped,omitempty"`
	SkipReason string        `json:"skipReason,omitempty"`
	Duration   float64       `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Steps      []JSONStep    `json:"steps,omitempty"`
	Response   *JSONResponse `json:"response,omitempty"`
}

type JSONStep struct {
	Keyword  string  `json:"keyword"`
	Text     string  `json:"text"`
	Line     int     `json:"line"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error,omitempty"`
}

// JSONResponse is the last response a scenario received.
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Duration   float64           `json:"duration"`
}

// JSONLatency holds request latency percentiles in milliseconds.
type JSONLatency struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// JSONFormatter formats test results as JSON
type JSONFormatter struct {
	writer   io.Writer
	features []JSONFeature
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:   os.Stdout,
		features: make([]JSONFeature, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	feature := JSONFeature{
		Name:      result.Feature,
		File:      result.File,
		Duration:  ms(result.Duration),
		Scenarios: make([]JSONScenario, 0, len(result.Scenarios)),
	}

	if l := result.Latency; l.Count > 0 {
		feature.Latency = &JSONLatency{
			Count: l.Count,
			Min:   ms(l.Min),
			Mean:  ms(l.Mean),
			P50:   ms(l.P50),
			P95:   ms(l.P95),
			P99:   ms(l.P99),
			Max:   ms(l.Max),
		}
	}

	for _, sc := range result.Scenarios {
		s := JSONScenario{
			Name:       sc.Name,
			Line:       sc.Line,
			Tags:       sc.Tags,
			Passed:     sc.Passed,
			Skipped:    sc.Skipped,
			SkipReason: visibleSkipReason(sc.SkipReason),
			Duration:   ms(sc.Duration),
			Error:      errorText(sc.Error),
		}

		for _, step := range sc.Steps {
			s.Steps = append(s.Steps, JSONStep{
				Keyword:  step.Keyword,
				Text:     step.Text,
				Line:     step.Line,
				Status:   step.Status.String(),
				Duration: ms(step.Duration),
				Error:    errorText(step.Error),
			})
		}

		if sc.Response != nil {
			s.Response = &JSONResponse{
				StatusCode: sc.Response.StatusCode,
				Status:     sc.Response.Status,
				Headers:    sc.Response.Headers,
				Duration:   ms(sc.Response.Duration),
			}
		}

		feature.Scenarios = append(feature.Scenarios, s)
	}

	f.features = append(f.features, feature)
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual scenario results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var summary JSONSummary
	for _, feature := range f.features {
		for _, s := range feature.Scenarios {
			summary.Total++
			switch {
			case s.Skipped:
				summary.Skipped++
			case s.Passed:
				summary.Passed++
			default:
				summary.Failed++
			}
		}
	}

	output := JSONOutput{
		Summary:  summary,
		Features: f.features,
		Duration: ms(totalDuration),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
