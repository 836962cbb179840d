package parser

import (
	"strings"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenBlank
	TokenComment
	TokenTags
	TokenFeature
	TokenBackground
	TokenScenario
	TokenScenarioOutline
	TokenExamples
	TokenStep
	TokenTableRow
	TokenDocString
	TokenText
	TokenIllegal
)

var tokenNames = map[TokenType]string{
	TokenEOF:             "end of file",
	TokenBlank:           "blank line",
	TokenComment:         "comment",
	TokenTags:            "tags",
	TokenFeature:         "Feature",
	TokenBackground:      "Background",
	TokenScenario:        "Scenario",
	TokenScenarioOutline: "Scenario Outline",
	TokenExamples:        "Examples",
	TokenStep:            "step",
	TokenTableRow:        "table row",
	TokenDocString:       "doc string",
	TokenText:            "text",
	TokenIllegal:         "illegal",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown"
}

// Token is one logical line of a feature file. Doc strings span several
// physical lines but form a single token.
type Token struct {
	Type    TokenType
	Keyword string
	Value   string
	Line    int
	Column  int
	Literal any
}

var sectionKeywords = []struct {
	prefix string
	typ    TokenType
}{
	{"Scenario Outline:", TokenScenarioOutline},
	{"Scenario Template:", TokenScenarioOutline},
	{"Feature:", TokenFeature},
	{"Background:", TokenBackground},
	{"Scenario:", TokenScenario},
	{"Example:", TokenScenario},
	{"Examples:", TokenExamples},
	{"Scenarios:", TokenExamples},
}

var stepKeywords = []string{"Given ", "When ", "Then ", "And ", "But ", "* "}

// Lexer splits a feature file into line tokens.
type Lexer struct {
	lines []string
	pos   int
}

func NewLexer(input string) *Lexer {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.TrimSuffix(input, "\n")
	return &Lexer{
		lines: strings.Split(input, "\n"),
	}
}

func (l *Lexer) NextToken() Token {
	if l.pos >= len(l.lines) {
		return Token{Type: TokenEOF, Line: len(l.lines) + 1}
	}

	raw := l.lines[l.pos]
	lineNo := l.pos + 1
	l.pos++

	trimmed := strings.TrimSpace(raw)
	column := strings.Index(raw, trimmed) + 1
	tok := Token{Line: lineNo, Column: column, Value: trimmed}

	switch {
	case trimmed == "":
		tok.Type = TokenBlank
	case strings.HasPrefix(trimmed, "#"):
		tok.Type = TokenComment
	case strings.HasPrefix(trimmed, "@"):
		tok.Type = TokenTags
		tok.Literal = parseTags(trimmed)
	case strings.HasPrefix(trimmed, "|"):
		cells, ok := splitRow(trimmed)
		if !ok {
			tok.Type = TokenIllegal
			tok.Value = "table row must end with '|'"
			break
		}
		tok.Type = TokenTableRow
		tok.Literal = cells
	case strings.HasPrefix(trimmed, `"""`), strings.HasPrefix(trimmed, "```"):
		return l.readDocString(raw, trimmed, lineNo, column)
	default:
		l.classify(&tok, trimmed)
	}
	return tok
}

func (l *Lexer) classify(tok *Token, line string) {
	for _, kw := range sectionKeywords {
		if strings.HasPrefix(line, kw.prefix) {
			tok.Type = kw.typ
			tok.Keyword = strings.TrimSuffix(kw.prefix, ":")
			tok.Value = strings.TrimSpace(strings.TrimPrefix(line, kw.prefix))
			return
		}
	}
	for _, kw := range stepKeywords {
		if strings.HasPrefix(line, kw) {
			tok.Type = TokenStep
			tok.Keyword = strings.TrimSpace(kw)
			tok.Value = strings.TrimSpace(strings.TrimPrefix(line, kw))
			return
		}
	}
	tok.Type = TokenText
}

// readDocString consumes lines up to the closing delimiter. Indentation up
// to the opening delimiter's column is stripped from every content line.
func (l *Lexer) readDocString(raw, trimmed string, lineNo, column int) Token {
	delim := trimmed[:3]
	indent := len(raw) - len(strings.TrimLeft(raw, " \t"))
	contentType := strings.TrimSpace(trimmed[3:])

	var content []string
	for l.pos < len(l.lines) {
		line := l.lines[l.pos]
		l.pos++
		if strings.TrimSpace(line) == delim {
			return Token{
				Type:    TokenDocString,
				Keyword: contentType,
				Value:   strings.Join(content, "\n"),
				Line:    lineNo,
				Column:  column,
			}
		}
		content = append(content, dedent(line, indent))
	}

	return Token{
		Type:   TokenIllegal,
		Value:  "unterminated doc string",
		Line:   lineNo,
		Column: column,
	}
}

func dedent(line string, indent int) string {
	i := 0
	for i < indent && i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[i:]
}

func parseTags(line string) []string {
	var tags []string
	for _, field := range strings.Fields(line) {
		if strings.HasPrefix(field, "#") {
			break
		}
		if strings.HasPrefix(field, "@") && len(field) > 1 {
			tags = append(tags, field[1:])
		}
	}
	return tags
}

// splitRow splits "| a | b |" into trimmed cells. "\|" escapes a pipe,
// "\n" a newline and "\\" a backslash.
func splitRow(line string) ([]string, bool) {
	if len(line) < 2 || !strings.HasSuffix(line, "|") {
		return nil, false
	}
	body := line[1:]

	var cells []string
	var cell strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			i++
			switch body[i] {
			case '|':
				cell.WriteByte('|')
			case 'n':
				cell.WriteByte('\n')
			case '\\':
				cell.WriteByte('\\')
			default:
				cell.WriteByte('\\')
				cell.WriteByte(body[i])
			}
		case c == '|':
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteByte(c)
		}
	}
	if strings.TrimSpace(cell.String()) != "" {
		return nil, false
	}
	return cells, true
}
