// Package coverage reports which operations of an OpenAPI document a run
// exercised.
package coverage

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/abdul-hamid-achik/hitstep/packages/import/openapi"
)

type Report struct {
	TotalEndpoints   int                   `json:"totalEndpoints"`
	CoveredEndpoints int                   `json:"coveredEndpoints"`
	CoveragePercent  float64               `json:"coveragePercent"`
	ByTag            map[string]*TagReport `json:"byTag,omitempty"`
	Endpoints        []EndpointStatus      `json:"endpoints"`
	// Unmatched lists requests no documented operation accounts for.
	Unmatched []string `json:"unmatched,omitempty"`
}

type TagReport struct {
	Tag              string  `json:"tag"`
	TotalEndpoints   int     `json:"totalEndpoints"`
	CoveredEndpoints int     `json:"coveredEndpoints"`
	CoveragePercent  float64 `json:"coveragePercent"`
}

type EndpointStatus struct {
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	OperationID string   `json:"operationId,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Covered     bool     `json:"covered"`
	Requests    int      `json:"requests"`
}

// Endpoint is a documented operation.
type Endpoint struct {
	Method      string
	Path        string
	OperationID string
	Tags        []string

	pattern *regexp.Regexp
}

// Request is a method and endpoint sent during a run, with how often it was
// sent. Endpoints may still hold {name} path parameters.
type Request struct {
	Method string
	Path   string
	Count  int
}

type Analyzer struct {
	endpoints []Endpoint
}

var paramPattern = regexp.MustCompile(`\{[^}]+\}`)

func NewAnalyzer(endpoints ...Endpoint) *Analyzer {
	a := &Analyzer{}
	for _, e := range endpoints {
		a.add(e)
	}
	return a
}

// Load reads the operations of an OpenAPI document from a file or URL.
func Load(location string) (*Analyzer, error) {
	doc, err := openapi.Load(location)
	if err != nil {
		return nil, fmt.Errorf("loading OpenAPI document: %w", err)
	}
	return FromDocument(doc), nil
}

func FromDocument(doc *openapi3.T) *Analyzer {
	a := &Analyzer{}
	if doc.Paths == nil {
		return a
	}
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			a.add(Endpoint{
				Method:      strings.ToUpper(method),
				Path:        path,
				OperationID: op.OperationID,
				Tags:        op.Tags,
			})
		}
	}
	return a
}

func (a *Analyzer) add(e Endpoint) {
	segments := paramPattern.Split(e.Path, -1)
	for i, s := range segments {
		segments[i] = regexp.QuoteMeta(s)
	}
	e.pattern = regexp.MustCompile("^" + strings.Join(segments, `[^/]+`) + "/?$")
	a.endpoints = append(a.endpoints, e)
}

// Analyze matches requests against the documented operations. A request
// counts for the first operation it matches, literal paths before templated
// ones.
func (a *Analyzer) Analyze(requests []Request) *Report {
	ordered := make([]int, len(a.endpoints))
	for i := range ordered {
		ordered[i] = i
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return strings.Count(a.endpoints[ordered[i]].Path, "{") < strings.Count(a.endpoints[ordered[j]].Path, "{")
	})

	counts := make([]int, len(a.endpoints))
	report := &Report{
		TotalEndpoints: len(a.endpoints),
		ByTag:          make(map[string]*TagReport),
		Endpoints:      make([]EndpointStatus, 0, len(a.endpoints)),
	}

	for _, req := range requests {
		path := req.Path
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
		matched := false
		for _, i := range ordered {
			e := a.endpoints[i]
			if e.Method == strings.ToUpper(req.Method) && e.pattern.MatchString(path) {
				counts[i] += max(req.Count, 1)
				matched = true
				break
			}
		}
		if !matched {
			report.Unmatched = append(report.Unmatched, strings.ToUpper(req.Method)+" "+req.Path)
		}
	}

	for i, e := range a.endpoints {
		covered := counts[i] > 0
		report.Endpoints = append(report.Endpoints, EndpointStatus{
			Method:      e.Method,
			Path:        e.Path,
			OperationID: e.OperationID,
			Tags:        e.Tags,
			Covered:     covered,
			Requests:    counts[i],
		})
		if covered {
			report.CoveredEndpoints++
		}
		for _, tag := range e.Tags {
			tr, ok := report.ByTag[tag]
			if !ok {
				tr = &TagReport{Tag: tag}
				report.ByTag[tag] = tr
			}
			tr.TotalEndpoints++
			if covered {
				tr.CoveredEndpoints++
			}
		}
	}

	report.CoveragePercent = percent(report.CoveredEndpoints, report.TotalEndpoints)
	for _, tr := range report.ByTag {
		tr.CoveragePercent = percent(tr.CoveredEndpoints, tr.TotalEndpoints)
	}
	sort.Slice(report.Endpoints, func(i, j int) bool {
		if report.Endpoints[i].Path != report.Endpoints[j].Path {
			return report.Endpoints[i].Path < report.Endpoints[j].Path
		}
		return report.Endpoints[i].Method < report.Endpoints[j].Method
	})
	sort.Strings(report.Unmatched)
	return report
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// WriteConsole prints the report in the console layout used for run output.
func (r *Report) WriteConsole(w io.Writer, noColor bool) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)
	if noColor {
		green.DisableColor()
		red.DisableColor()
		bold.DisableColor()
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "API Coverage")
	fmt.Fprintf(w, "  %d/%d operations (%.1f%%)\n", r.CoveredEndpoints, r.TotalEndpoints, r.CoveragePercent)

	if len(r.ByTag) > 0 {
		tags := make([]string, 0, len(r.ByTag))
		for tag := range r.ByTag {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			tr := r.ByTag[tag]
			fmt.Fprintf(w, "  @%s: %d/%d (%.1f%%)\n", tag, tr.CoveredEndpoints, tr.TotalEndpoints, tr.CoveragePercent)
		}
	}

	fmt.Fprintln(w)
	for _, e := range r.Endpoints {
		if e.Covered {
			green.Fprint(w, "  ✓ ")
		} else {
			red.Fprint(w, "  ✗ ")
		}
		fmt.Fprintf(w, "%-7s %s", e.Method, e.Path)
		if e.Requests > 1 {
			fmt.Fprintf(w, " (x%d)", e.Requests)
		}
		fmt.Fprintln(w)
	}
	for _, u := range r.Unmatched {
		fmt.Fprintf(w, "  ? %s (not documented)\n", u)
	}
}

func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
