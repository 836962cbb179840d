package steps

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/abdul-hamid-achik/hitstep/packages/core/parser"
)

var (
	ErrUndefinedStep    = errors.New("undefined step")
	ErrMissingTable     = errors.New("step needs a data table")
	ErrMissingDocString = errors.New("step needs a doc string")
	ErrNoResponse       = errors.New("no response yet, send a request first")
	ErrNoDatabase       = errors.New("no database configured, use \"set database to\" first")
	ErrNoQueryResult    = errors.New("no query result, use \"run query\" first")
)

// Call carries what a handler receives for one step: the pattern's capture
// groups and the step's table or doc string, if any.
type Call struct {
	Step      *parser.Step
	Args      []string
	Table     *parser.DataTable
	DocString *parser.DocString
}

// Arg returns capture group i, or "" when the group did not participate.
func (c *Call) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Pairs reads the data table as key/value rows.
func (c *Call) Pairs() ([][2]string, error) {
	if c.Table == nil {
		return nil, ErrMissingTable
	}
	return c.Table.Pairs()
}

// Doc returns the doc string content.
func (c *Call) Doc() (string, error) {
	if c.DocString == nil {
		return "", ErrMissingDocString
	}
	return c.DocString.Content, nil
}

type Handler func(ctx context.Context, w *World, c *Call) error

// Definition binds a step pattern to its handler. Patterns are regular
// expressions matched against the whole step text, keyword excluded.
type Definition struct {
	Pattern string
	re      *regexp.Regexp
	handler Handler
}

// StepError reports which step failed and where.
type StepError struct {
	Step string
	Line int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Registry struct {
	defs []*Definition
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Default returns a registry holding the built-in step library.
func Default() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// Register adds a step definition. It panics if pattern does not compile,
// like regexp.MustCompile. Definitions are tried in registration order.
func (r *Registry) Register(pattern string, h Handler) {
	r.defs = append(r.defs, &Definition{
		Pattern: pattern,
		re:      regexp.MustCompile("^" + pattern + "$"),
		handler: h,
	})
}

// Match finds the first definition matching text and returns its capture groups.
func (r *Registry) Match(text string) (*Definition, []string, error) {
	for _, def := range r.defs {
		if m := def.re.FindStringSubmatch(text); m != nil {
			return def, m[1:], nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUndefinedStep, text)
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []*Definition {
	defs := make([]*Definition, len(r.defs))
	copy(defs, r.defs)
	return defs
}

// Run matches step and invokes its handler. Failures come back as *StepError.
func (r *Registry) Run(ctx context.Context, w *World, step *parser.Step) error {
	def, args, err := r.Match(step.Text)
	if err != nil {
		return &StepError{Step: step.String(), Line: step.Line, Err: err}
	}

	call := &Call{
		Step:      step,
		Args:      args,
		Table:     step.Table,
		DocString: step.DocString,
	}
	if err := def.handler(ctx, w, call); err != nil {
		return &StepError{Step: step.String(), Line: step.Line, Err: err}
	}
	return nil
}
