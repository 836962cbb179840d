// Package curl turns curl command lines into hitstep scenarios.
package curl

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hitstep/packages/import/feature"
	"github.com/tidwall/gjson"
)

var (
	ErrNoURL        = errors.New("no URL found in curl command")
	ErrMissingValue = errors.New("missing flag value")
)

// Command is a parsed curl invocation.
type Command struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
	Form    bool
	User    string
}

// Parse reads a single curl command. A leading "curl" is optional.
func Parse(line string) (*Command, error) {
	tokens := tokenize(strings.TrimSpace(line))
	if len(tokens) > 0 && tokens[0] == "curl" {
		tokens = tokens[1:]
	}

	cmd := &Command{Headers: make(map[string]string)}
	var data []string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		arg := func() (string, error) {
			if i+1 >= len(tokens) {
				return "", fmt.Errorf("%w for %s", ErrMissingValue, tok)
			}
			i++
			return tokens[i], nil
		}

		switch tok {
		case "-X", "--request":
			v, err := arg()
			if err != nil {
				return nil, err
			}
			cmd.Method = strings.ToUpper(v)
		case "-H", "--header":
			v, err := arg()
			if err != nil {
				return nil, err
			}
			if k, val, ok := strings.Cut(v, ":"); ok {
				cmd.Headers[strings.TrimSpace(k)] = strings.TrimSpace(val)
			}
		case "-d", "--data", "--data-raw", "--data-binary", "--data-ascii":
			v, err := arg()
			if err != nil {
				return nil, err
			}
			data = append(data, v)
		case "--data-urlencode":
			v, err := arg()
			if err != nil {
				return nil, err
			}
			data = append(data, v)
			cmd.Form = true
		case "--json":
			v, err := arg()
			if err != nil {
				return nil, err
			}
			data = append(data, v)
			cmd.Headers["Content-Type"] = "application/json"
			cmd.Headers["Accept"] = "application/json"
		case "-u", "--user":
			v, err := arg()
			if err != nil {
				return nil, err
			}
			cmd.User = v
		case "-A", "--user-agent":
			v, err := arg()
			if err != nil {
				return nil, err
			}
			cmd.Headers["User-Agent"] = v
		case "-e", "--referer":
			v, err := arg()
			if err != nil {
				return nil, err
			}
			cmd.Headers["Referer"] = v
		case "-b", "--cookie":
			v, err := arg()
			if err != nil {
				return nil, err
			}
			cmd.Headers["Cookie"] = v
		case "--url":
			v, err := arg()
			if err != nil {
				return nil, err
			}
			cmd.URL = v
		case "-I", "--head":
			cmd.Method = "HEAD"
		default:
			if !strings.HasPrefix(tok, "-") && cmd.URL == "" && isURL(tok) {
				cmd.URL = tok
			}
		}
	}

	if cmd.URL == "" {
		return nil, ErrNoURL
	}
	if len(data) > 0 {
		cmd.Body = strings.Join(data, "&")
		if cmd.Method == "" {
			cmd.Method = "POST"
		}
		if ct, ok := header(cmd.Headers, "Content-Type"); ok && strings.Contains(ct, "x-www-form-urlencoded") {
			cmd.Form = true
		}
		if _, ok := header(cmd.Headers, "Content-Type"); !ok && !gjson.Valid(cmd.Body) && strings.Contains(cmd.Body, "=") {
			cmd.Form = true
		}
	}
	if cmd.Method == "" {
		cmd.Method = "GET"
	}
	return cmd, nil
}

// ParseAll reads commands from r, one per line, honouring trailing
// backslash continuations and skipping blank and # lines.
func ParseAll(r io.Reader) ([]*Command, error) {
	var cmds []*Command
	var current strings.Builder
	flush := func() error {
		if current.Len() == 0 {
			return nil
		}
		cmd, err := Parse(current.String())
		current.Reset()
		if err != nil {
			return fmt.Errorf("command %d: %w", len(cmds)+1, err)
		}
		cmds = append(cmds, cmd)
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if strings.HasSuffix(line, `\`) {
			current.WriteString(strings.TrimSuffix(line, `\`) + " ")
			continue
		}
		current.WriteString(line)
		if err := flush(); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cmds, nil
}

// Document wraps the scenarios of cmds in a feature named name.
func Document(name string, cmds []*Command) (*feature.Document, error) {
	doc := &feature.Document{
		Comments: []string{"Generated from curl commands"},
		Name:     name,
	}
	mixedCase := false
	for _, cmd := range cmds {
		sc, err := cmd.Scenario()
		if err != nil {
			return nil, err
		}
		doc.Scenarios = append(doc.Scenarios, sc)
		mixedCase = mixedCase || hasMixedCase(sc)
	}
	if mixedCase {
		doc.Comments = append(doc.Comments, "Table values below are case sensitive, run with --preserve-case")
	}
	return doc, nil
}

func hasMixedCase(sc feature.Scenario) bool {
	for _, st := range sc.Steps {
		for _, row := range st.Table {
			for _, cell := range row[1:] {
				if cell != strings.ToLower(cell) {
					return true
				}
			}
		}
	}
	return false
}

// Scenario renders the command as steps that send the same request and
// expect a non-error status.
func (c *Command) Scenario() (feature.Scenario, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return feature.Scenario{}, fmt.Errorf("parsing URL %q: %w", c.URL, err)
	}

	sc := feature.Scenario{Name: c.Method + " " + pathOf(u)}
	given := func(text string, table [][]string, doc string) {
		sc.Steps = append(sc.Steps, feature.Step{Keyword: "Given", Text: text, Table: table, Doc: doc})
	}

	if u.Scheme != "" && u.Host != "" {
		given("set base url to "+u.Scheme+"://"+u.Host, nil, "")
	}
	given("set endpoint to "+pathOf(u), nil, "")
	if rows := valuesTable(u.Query()); len(rows) > 0 {
		given("add to query parameters", rows, "")
	}

	headers := make(map[string]string, len(c.Headers)+1)
	for k, v := range c.Headers {
		headers[k] = v
	}
	if c.User != "" {
		headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(c.User))
	}
	if c.Form {
		delete(headers, "Content-Type")
	}
	if len(headers) > 0 {
		keys := make([]string, 0, len(headers))
		for k := range headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([][]string, len(keys))
		for i, k := range keys {
			rows[i] = []string{k, headers[k]}
		}
		given("add to headers", rows, "")
	}

	switch {
	case c.Body == "":
	case c.Form:
		values, err := url.ParseQuery(c.Body)
		if err != nil {
			return feature.Scenario{}, fmt.Errorf("parsing form body: %w", err)
		}
		given("add to form parameters", valuesTable(values), "")
	case gjson.Valid(c.Body):
		given("set body to", nil, gjson.Get(c.Body, "@pretty").Raw)
	default:
		given("set body to", nil, c.Body)
	}

	sc.Steps = append(sc.Steps,
		feature.Step{Keyword: "When", Text: "send a " + c.Method + " request"},
		feature.Step{Keyword: "Then", Text: "the response @status:integer should be less than 400"},
	)
	return sc, nil
}

func pathOf(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func valuesTable(values url.Values) [][]string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var rows [][]string
	for _, k := range keys {
		for _, v := range values[k] {
			rows = append(rows, []string{k, v})
		}
	}
	return rows
}

func header(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// tokenize splits a shell-style command line, honouring single quotes,
// double quotes and backslash escapes.
func tokenize(line string) []string {
	var tokens []string
	var current strings.Builder
	inToken := false
	var quote rune
	escaped := false

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inToken = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens
}
