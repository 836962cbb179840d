package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitstep/packages/core/runner"
	"github.com/abdul-hamid-achik/hitstep/packages/http"
	"github.com/abdul-hamid-achik/hitstep/packages/steps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *runner.RunResult {
	failure := &steps.StepError{Step: "Then validate status code of 200", Line: 9, Err: errors.New("expected status 200, got 404")}
	undefined := &steps.StepError{Step: "Given frobnicate", Line: 13, Err: steps.ErrUndefinedStep}

	return &runner.RunResult{
		File:     "features/users.feature",
		Feature:  "Users",
		Duration: 120 * time.Millisecond,
		Passed:   1,
		Failed:   2,
		Skipped:  2,
		Latency: runner.LatencySummary{
			Count: 2,
			P50:   10 * time.Millisecond,
			P95:   20 * time.Millisecond,
			P99:   20 * time.Millisecond,
			Max:   20 * time.Millisecond,
		},
		Scenarios: []*runner.ScenarioResult{
			{
				Name:     "Fetch user",
				Line:     3,
				Passed:   true,
				Duration: 15 * time.Millisecond,
				Steps: []*runner.StepResult{
					{Keyword: "When", Text: "send a GET request", Line: 4, Status: runner.StatusPassed},
				},
				Response: &http.Response{StatusCode: 200, Status: "200 OK", Duration: 10 * time.Millisecond},
			},
			{
				Name:  "Missing user",
				Line:  7,
				Error: failure,
				Steps: []*runner.StepResult{
					{Keyword: "When", Text: "send a GET request", Line: 8, Status: runner.StatusPassed},
					{Keyword: "Then", Text: "validate status code of 200", Line: 9, Status: runner.StatusFailed, Error: failure},
					{Keyword: "And", Text: "store a as b", Line: 10, Status: runner.StatusSkipped},
				},
			},
			{
				Name:  "Typo",
				Line:  12,
				Error: undefined,
				Steps: []*runner.StepResult{
					{Keyword: "Given", Text: "frobnicate", Line: 13, Status: runner.StatusUndefined, Error: undefined},
				},
			},
			{Name: "Nightly", Line: 15, Skipped: true, SkipReason: "tagged @skip"},
			{Name: "Other", Line: 18, Skipped: true, SkipReason: "filtered out"},
		},
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	for _, name := range append(Formats(), "") {
		f, err := New(name, &buf)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}

	_, err := New("html", &buf)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatResult(sampleResult())
	out := buf.String()

	assert.Contains(t, out, "Feature: Users")
	assert.Contains(t, out, "✓ Fetch user (15ms)")
	assert.Contains(t, out, "✗ Missing user")
	assert.Contains(t, out, "→ line 9: Then validate status code of 200")
	assert.Contains(t, out, "expected status 200, got 404")
	assert.Contains(t, out, "- Nightly (tagged @skip)")
	assert.Contains(t, out, "- Other\n")
	assert.Contains(t, out, "1 passed, 2 failed, 2 skipped, 5 total")
	assert.Contains(t, out, "p50 10ms, p95 20ms, p99 20ms, max 20ms (2 requests)")
	assert.NotContains(t, out, "Status: 200")

	t.Run("verbose lists steps", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
		f.FormatResult(sampleResult())
		out := buf.String()
		assert.Contains(t, out, "✓ When send a GET request")
		assert.Contains(t, out, "? Given frobnicate")
		assert.Contains(t, out, "- And store a as b")
		assert.Contains(t, out, "Status: 200")
	})

	t.Run("latency table", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
		f.FormatLatency(nil)
		assert.Empty(t, buf.String())

		f.FormatLatency([]runner.EndpointSummary{{Name: "GET /users/{id}", LatencySummary: runner.LatencySummary{Count: 3}}})
		assert.Contains(t, buf.String(), "GET /users/{id}")
		assert.Contains(t, buf.String(), "n=3")
	})
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, JSONSummary{Total: 5, Passed: 1, Failed: 2, Skipped: 2}, out.Summary)
	assert.Equal(t, float64(1000), out.Duration)
	require.Len(t, out.Features, 1)

	feature := out.Features[0]
	assert.Equal(t, "Users", feature.Name)
	require.NotNil(t, feature.Latency)
	assert.Equal(t, float64(10), feature.Latency.P50)

	require.Len(t, feature.Scenarios, 5)
	ok := feature.Scenarios[0]
	require.NotNil(t, ok.Response)
	assert.Equal(t, 200, ok.Response.StatusCode)

	failed := feature.Scenarios[1]
	assert.Contains(t, failed.Error, "line 9")
	require.Len(t, failed.Steps, 3)
	assert.Equal(t, "failed", failed.Steps[1].Status)
	assert.Equal(t, "skipped", failed.Steps[2].Status)

	assert.Equal(t, "undefined", feature.Scenarios[2].Steps[0].Status)
	assert.Equal(t, "tagged @skip", feature.Scenarios[3].SkipReason)
	assert.Empty(t, feature.Scenarios[4].SkipReason)
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	assert.Contains(t, buf.String(), `<?xml version="1.0" encoding="UTF-8"?>`)

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))
	assert.Equal(t, 5, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	assert.Equal(t, 2, suites.Skipped)

	require.Len(t, suites.TestSuites, 1)
	cases := suites.TestSuites[0].TestCases
	require.Len(t, cases, 5)
	assert.Nil(t, cases[0].Failure)
	require.NotNil(t, cases[1].Failure)
	assert.Equal(t, "StepFailure", cases[1].Failure.Type)
	assert.Contains(t, cases[1].Failure.Content, "failed    line 9: Then validate status code of 200")
	require.NotNil(t, cases[2].Error)
	assert.Equal(t, "UndefinedStep", cases[2].Error.Type)
	require.NotNil(t, cases[3].Skipped)
	assert.Equal(t, "tagged @skip", cases[3].Skipped.Message)
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))
	out := buf.String()

	assert.Contains(t, out, "TAP version 13\n1..5\n")
	assert.Contains(t, out, "ok 1 - Users: Fetch user\n")
	assert.Contains(t, out, "not ok 2 - Users: Missing user\n")
	assert.Contains(t, out, "  step: Then validate status code of 200\n")
	assert.Contains(t, out, `  message: "line 9: Then validate status code of 200: expected status 200, got 404"`)
	assert.Contains(t, out, "ok 4 - Users: Nightly # SKIP tagged @skip\n")
	assert.Contains(t, out, "ok 5 - Users: Other # SKIP SKIP\n")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"a: b"`, escapeYAML("a: b"))
	assert.Equal(t, `"say \"hi\"\nbye:"`, escapeYAML("say \"hi\"\nbye:"))
}
