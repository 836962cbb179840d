package parser

import (
	"fmt"
	"strconv"
	"strings"
)

type Feature struct {
	Path        string
	Name        string
	Description string
	Tags        []string
	Background  *Background
	Scenarios   []*Scenario
	Line        int
}

type Background struct {
	Name  string
	Steps []*Step
	Line  int
}

// Scenario is a runnable scenario. Outlines are expanded at parse time, one
// Scenario per example row.
type Scenario struct {
	Name  string
	Tags  []string
	Steps []*Step
	Line  int
	// Outline is the name of the outline this scenario was expanded from.
	Outline string
}

// AllTags returns the feature tags followed by the scenario's own tags.
func (s *Scenario) AllTags(f *Feature) []string {
	tags := make([]string, 0, len(f.Tags)+len(s.Tags))
	tags = append(tags, f.Tags...)
	return append(tags, s.Tags...)
}

func (s *Scenario) HasTag(f *Feature, tag string) bool {
	tag = strings.TrimPrefix(tag, "@")
	for _, t := range s.AllTags(f) {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

type Step struct {
	Keyword   string
	Text      string
	Table     *DataTable
	DocString *DocString
	Line      int
}

func (s *Step) String() string {
	return s.Keyword + " " + s.Text
}

type DataTable struct {
	Rows [][]string
	Line int
}

// Pairs reads every row as a key/value entry. Rows must have exactly two
// cells; a header row is not treated specially.
func (t *DataTable) Pairs() ([][2]string, error) {
	pairs := make([][2]string, 0, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("table row %d: expected 2 cells, got %d", i+1, len(row))
		}
		pairs = append(pairs, [2]string{row[0], row[1]})
	}
	return pairs, nil
}

type DocString struct {
	ContentType string
	Content     string
	Line        int
}

type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
	Snippet string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return e.File + ":" + strconv.Itoa(e.Line) + ":" + strconv.Itoa(e.Column) + ": " + e.Message
	}
	return "line " + strconv.Itoa(e.Line) + ": " + e.Message
}
