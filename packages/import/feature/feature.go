// Package feature renders generated scenarios as .feature file text.
package feature

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

type Step struct {
	Keyword string
	Text    string
	Table   [][]string
	Doc     string
}

type Scenario struct {
	Name  string
	Tags  []string
	Steps []Step
}

// Document is a feature file under construction.
type Document struct {
	Comments    []string
	Tags        []string
	Name        string
	Description string
	Background  []Step
	Scenarios   []Scenario
}

// Render returns the feature file text of d.
func (d *Document) Render() string {
	var sb strings.Builder
	for _, c := range d.Comments {
		sb.WriteString("# " + c + "\n")
	}
	if len(d.Comments) > 0 {
		sb.WriteString("\n")
	}
	writeTags(&sb, "", d.Tags)
	sb.WriteString("Feature: " + d.Name + "\n")
	if d.Description != "" {
		for _, line := range strings.Split(d.Description, "\n") {
			sb.WriteString(strings.TrimRight("  "+line, " ") + "\n")
		}
	}

	if len(d.Background) > 0 {
		sb.WriteString("\n  Background:\n")
		writeSteps(&sb, d.Background)
	}

	for _, sc := range d.Scenarios {
		sb.WriteString("\n")
		writeTags(&sb, "  ", sc.Tags)
		sb.WriteString("  Scenario: " + sc.Name + "\n")
		writeSteps(&sb, sc.Steps)
	}
	return sb.String()
}

// WriteFile renders d into path, creating its directory.
func (d *Document) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(d.Render()), 0644)
}

func writeTags(sb *strings.Builder, indent string, tags []string) {
	if len(tags) == 0 {
		return
	}
	sb.WriteString(indent)
	for i, t := range tags {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("@" + t)
	}
	sb.WriteString("\n")
}

// writeSteps writes steps with the first keyword of each Given/When/Then
// run spelled out and the rest as And.
func writeSteps(sb *strings.Builder, steps []Step) {
	prev := ""
	for _, st := range steps {
		kw := st.Keyword
		if kw == prev {
			kw = "And"
		} else {
			prev = kw
		}
		sb.WriteString("    " + kw + " " + st.Text + "\n")
		if len(st.Table) > 0 {
			writeTable(sb, st.Table)
		}
		if st.Doc != "" {
			sb.WriteString("      \"\"\"\n")
			for _, line := range strings.Split(strings.TrimRight(st.Doc, "\n"), "\n") {
				sb.WriteString(strings.TrimRight("      "+line, " ") + "\n")
			}
			sb.WriteString("      \"\"\"\n")
		}
	}
}

func writeTable(sb *strings.Builder, rows [][]string) {
	var widths []int
	escaped := make([][]string, len(rows))
	for i, row := range rows {
		escaped[i] = make([]string, len(row))
		for j, cell := range row {
			cell = escapeCell(cell)
			escaped[i][j] = cell
			if j >= len(widths) {
				widths = append(widths, 0)
			}
			if n := utf8.RuneCountInString(cell); n > widths[j] {
				widths[j] = n
			}
		}
	}
	for _, row := range escaped {
		sb.WriteString("      |")
		for j, cell := range row {
			sb.WriteString(" " + cell + strings.Repeat(" ", widths[j]-utf8.RuneCountInString(cell)) + " |")
		}
		sb.WriteString("\n")
	}
}

var cellEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`, "\n", `\n`)

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}

var tagUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Tag turns free text such as an OpenAPI tag into a feature file tag.
func Tag(s string) string {
	return strings.Trim(tagUnsafe.ReplaceAllString(strings.TrimSpace(s), "-"), "-")
}
