package parser

import (
	"fmt"
	"os"
	"strings"
)

type Parser struct {
	lexer    *Lexer
	curToken Token
	file     string
	tags     []string
}

func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	p.nextToken()
	return p
}

func ParseFile(path string) (*Feature, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(content), path)
}

func Parse(input, filename string) (*Feature, error) {
	p := NewParser(input)
	p.file = filename
	return p.ParseFeature()
}

// nextToken advances past blank lines and comments.
func (p *Parser) nextToken() {
	p.curToken = p.lexer.NextToken()
	for p.curToken.Type == TokenBlank || p.curToken.Type == TokenComment {
		p.curToken = p.lexer.NextToken()
	}
}

func (p *Parser) errorf(tok Token, format string, args ...any) *ParseError {
	return &ParseError{
		File:    p.file,
		Line:    tok.Line,
		Column:  tok.Column,
		Message: fmt.Sprintf(format, args...),
		Snippet: tok.Value,
	}
}

// collectTags gathers consecutive tag lines into the pending tag set.
func (p *Parser) collectTags() {
	for p.curToken.Type == TokenTags {
		p.tags = append(p.tags, p.curToken.Literal.([]string)...)
		p.nextToken()
	}
}

func (p *Parser) takeTags() []string {
	tags := p.tags
	p.tags = nil
	return tags
}

func (p *Parser) ParseFeature() (*Feature, error) {
	p.collectTags()
	if p.curToken.Type == TokenIllegal {
		return nil, p.errorf(p.curToken, "%s", p.curToken.Value)
	}
	if p.curToken.Type != TokenFeature {
		return nil, p.errorf(p.curToken, "expected Feature:, got %s", p.curToken.Type)
	}

	feature := &Feature{
		Path: p.file,
		Name: p.curToken.Value,
		Tags: p.takeTags(),
		Line: p.curToken.Line,
	}
	p.nextToken()
	feature.Description = p.parseDescription()

	for {
		p.collectTags()
		tok := p.curToken

		switch tok.Type {
		case TokenEOF:
			if len(p.tags) > 0 {
				return nil, p.errorf(tok, "tags must be followed by a Scenario")
			}
			return feature, nil
		case TokenBackground:
			if len(p.tags) > 0 {
				return nil, p.errorf(tok, "Background cannot be tagged")
			}
			if feature.Background != nil {
				return nil, p.errorf(tok, "only one Background is allowed")
			}
			if len(feature.Scenarios) > 0 {
				return nil, p.errorf(tok, "Background must come before the first Scenario")
			}
			p.nextToken()
			steps, err := p.parseSteps()
			if err != nil {
				return nil, err
			}
			feature.Background = &Background{Name: tok.Value, Steps: steps, Line: tok.Line}
		case TokenScenario:
			tags := p.takeTags()
			p.nextToken()
			steps, err := p.parseSteps()
			if err != nil {
				return nil, err
			}
			feature.Scenarios = append(feature.Scenarios, &Scenario{
				Name:  tok.Value,
				Tags:  tags,
				Steps: steps,
				Line:  tok.Line,
			})
		case TokenScenarioOutline:
			scenarios, err := p.parseOutline()
			if err != nil {
				return nil, err
			}
			feature.Scenarios = append(feature.Scenarios, scenarios...)
		case TokenFeature:
			return nil, p.errorf(tok, "only one Feature per file is allowed")
		case TokenIllegal:
			return nil, p.errorf(tok, "%s", tok.Value)
		default:
			return nil, p.errorf(tok, "unexpected %s", tok.Type)
		}
	}
}

func (p *Parser) parseDescription() string {
	var lines []string
	for p.curToken.Type == TokenText {
		lines = append(lines, p.curToken.Value)
		p.nextToken()
	}
	return strings.Join(lines, "\n")
}

func (p *Parser) parseSteps() ([]*Step, error) {
	p.parseDescription()

	var steps []*Step
	for {
		tok := p.curToken
		switch tok.Type {
		case TokenStep:
			steps = append(steps, &Step{Keyword: tok.Keyword, Text: tok.Value, Line: tok.Line})
			p.nextToken()
		case TokenTableRow:
			if len(steps) == 0 {
				return nil, p.errorf(tok, "data table must follow a step")
			}
			last := steps[len(steps)-1]
			if last.Table != nil || last.DocString != nil {
				return nil, p.errorf(tok, "step already has an argument")
			}
			table, _, err := p.parseTable()
			if err != nil {
				return nil, err
			}
			last.Table = table
		case TokenDocString:
			if len(steps) == 0 {
				return nil, p.errorf(tok, "doc string must follow a step")
			}
			last := steps[len(steps)-1]
			if last.Table != nil || last.DocString != nil {
				return nil, p.errorf(tok, "step already has an argument")
			}
			last.DocString = &DocString{ContentType: tok.Keyword, Content: tok.Value, Line: tok.Line}
			p.nextToken()
		case TokenText:
			return nil, p.errorf(tok, "unexpected text, expected a step")
		case TokenIllegal:
			return nil, p.errorf(tok, "%s", tok.Value)
		default:
			return steps, nil
		}
	}
}

// parseTable reads consecutive rows. All rows must have the same width.
func (p *Parser) parseTable() (*DataTable, []int, error) {
	table := &DataTable{Line: p.curToken.Line}
	var lines []int
	for p.curToken.Type == TokenTableRow {
		cells := p.curToken.Literal.([]string)
		if len(table.Rows) > 0 && len(cells) != len(table.Rows[0]) {
			return nil, nil, p.errorf(p.curToken, "inconsistent cell count: expected %d, got %d", len(table.Rows[0]), len(cells))
		}
		table.Rows = append(table.Rows, cells)
		lines = append(lines, p.curToken.Line)
		p.nextToken()
	}
	if p.curToken.Type == TokenIllegal {
		return nil, nil, p.errorf(p.curToken, "%s", p.curToken.Value)
	}
	return table, lines, nil
}

// parseOutline expands a Scenario Outline into one scenario per example row.
func (p *Parser) parseOutline() ([]*Scenario, error) {
	header := p.curToken
	tags := p.takeTags()
	p.nextToken()

	steps, err := p.parseSteps()
	if err != nil {
		return nil, err
	}

	var scenarios []*Scenario
	examples := 0
	for {
		p.collectTags()
		if p.curToken.Type != TokenExamples {
			break
		}
		exampleTags := append(append([]string{}, tags...), p.takeTags()...)
		p.nextToken()
		p.parseDescription()
		examples++

		if p.curToken.Type != TokenTableRow {
			return nil, p.errorf(p.curToken, "Examples must have a table")
		}
		table, lines, err := p.parseTable()
		if err != nil {
			return nil, err
		}

		names := table.Rows[0]
		for i, row := range table.Rows[1:] {
			scenarios = append(scenarios, expand(header, steps, names, row, exampleTags, lines[i+1], len(scenarios)+1))
		}
	}

	if examples == 0 {
		return nil, p.errorf(header, "Scenario Outline %q has no Examples", header.Value)
	}
	return scenarios, nil
}

func expand(header Token, steps []*Step, names, row []string, tags []string, line, n int) *Scenario {
	pairs := make([]string, 0, len(names)*2)
	for i, name := range names {
		pairs = append(pairs, "<"+name+">", row[i])
	}
	r := strings.NewReplacer(pairs...)

	name := r.Replace(header.Value)
	if name == header.Value {
		name = fmt.Sprintf("%s (example %d)", header.Value, n)
	}

	expanded := make([]*Step, len(steps))
	for i, s := range steps {
		step := &Step{Keyword: s.Keyword, Text: r.Replace(s.Text), Line: s.Line}
		if s.Table != nil {
			rows := make([][]string, len(s.Table.Rows))
			for j, cells := range s.Table.Rows {
				rows[j] = make([]string, len(cells))
				for k, c := range cells {
					rows[j][k] = r.Replace(c)
				}
			}
			step.Table = &DataTable{Rows: rows, Line: s.Table.Line}
		}
		if s.DocString != nil {
			step.DocString = &DocString{
				ContentType: s.DocString.ContentType,
				Content:     r.Replace(s.DocString.Content),
				Line:        s.DocString.Line,
			}
		}
		expanded[i] = step
	}

	return &Scenario{
		Name:    name,
		Tags:    tags,
		Steps:   expanded,
		Line:    line,
		Outline: header.Value,
	}
}
