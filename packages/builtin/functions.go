package builtin

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/hitstep/packages/value"
)

var (
	ErrUnknownFunction = errors.New("unknown function")
	ErrBadArguments    = errors.New("bad arguments")
)

const (
	lowerAlpha   = "abcdefghijklmnopqrstuvwxyz"
	letters      = lowerAlpha + "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	alphanumeric = letters + "0123456789"
)

// Func is a placeholder function. Args arrive split and unquoted.
type Func func(args []string) (value.Value, error)

// Registry maps lower-cased function names to implementations. Names are
// case-insensitive since step tables are lower-cased before resolution.
type Registry struct {
	funcs map[string]Func
	gen   *Generator
}

type RegistryOption func(*Registry)

// WithGenerator sets the source of randomness for random*() and regex().
func WithGenerator(g *Generator) RegistryOption {
	return func(r *Registry) {
		r.gen = g
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	for _, opt := range opts {
		opt(r)
	}
	if r.gen == nil {
		r.gen = NewGenerator()
	}

	r.Register("uuid", noArgs(func() value.Value { return value.String(uuid.New().String()) }))
	r.Register("now", r.now)
	r.Register("date", r.date)
	r.Register("timestamp", noArgs(func() value.Value { return value.Long(time.Now().Unix()) }))
	r.Register("timestampMs", noArgs(func() value.Value { return value.Long(time.Now().UnixMilli()) }))
	r.Register("random", r.random)
	r.Register("randomDouble", r.randomDouble)
	r.Register("randomBoolean", noArgs(func() value.Value { return value.Boolean(r.gen.int63n(2) == 1) }))
	r.Register("randomString", r.randomChars(letters, 16))
	r.Register("randomAlphanumeric", r.randomChars(alphanumeric, 8))
	r.Register("randomEmail", noArgs(func() value.Value {
		return value.String(r.gen.pick(lowerAlpha, 8) + "@" + r.gen.pick(lowerAlpha, 6) + ".com")
	}))
	r.Register("regex", r.regex)
	r.Register("upper", unary(strings.ToUpper))
	r.Register("base64", unary(func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }))
	r.Register("md5", unary(func(s string) string { sum := md5.Sum([]byte(s)); return hex.EncodeToString(sum[:]) }))
	r.Register("sha256", unary(func(s string) string { sum := sha256.Sum256([]byte(s)); return hex.EncodeToString(sum[:]) }))
	r.Register("urlEncode", unary(url.QueryEscape))
	return r
}

func (r *Registry) Register(name string, fn Func) {
	r.funcs[strings.ToLower(name)] = fn
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var funcCallPattern = regexp.MustCompile(`^\s*(\w+)\((.*)\)\s*$`)

// IsCall reports whether expr has the shape of a function call.
func IsCall(expr string) bool {
	return funcCallPattern.MatchString(expr)
}

// Call evaluates an expression such as uuid() or random(1, 10).
func (r *Registry) Call(expr string) (value.Value, error) {
	m := funcCallPattern.FindStringSubmatch(expr)
	if m == nil {
		return value.Value{}, fmt.Errorf("%q is not a function call", expr)
	}
	name := strings.ToLower(m[1])
	fn, ok := r.funcs[name]
	if !ok {
		return value.Value{}, fmt.Errorf("%s(): %w", name, ErrUnknownFunction)
	}

	var args []string
	if m[2] != "" {
		args = parseArgs(m[2])
	}
	v, err := fn(args)
	if err != nil {
		return value.Value{}, fmt.Errorf("%s(): %w", name, err)
	}
	return v, nil
}

func parseArgs(s string) []string {
	var (
		args    []string
		current strings.Builder
		quote   byte
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}
	return args
}

func noArgs(fn func() value.Value) Func {
	return func([]string) (value.Value, error) {
		return fn(), nil
	}
}

func unary(fn func(string) string) Func {
	return func(args []string) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, fmt.Errorf("%w: want 1 argument, got %d", ErrBadArguments, len(args))
		}
		return value.String(fn(args[0])), nil
	}
}

// now formats the current UTC time, RFC 3339 unless a layout is given.
func (r *Registry) now(args []string) (value.Value, error) {
	layout := time.RFC3339
	if len(args) > 0 && args[0] != "" {
		layout = args[0]
	}
	return value.String(time.Now().UTC().Format(layout)), nil
}

// date formats today's UTC date, optionally shifted: date(2006-01-02, 24h).
func (r *Registry) date(args []string) (value.Value, error) {
	layout := "2006-01-02"
	t := time.Now().UTC()
	if len(args) > 0 && args[0] != "" {
		layout = args[0]
	}
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: offset %q: %v", ErrBadArguments, args[1], err)
		}
		t = t.Add(d)
	}
	return value.String(t.Format(layout)), nil
}

// random returns a long in [min, max], 0..100 without arguments.
func (r *Registry) random(args []string) (value.Value, error) {
	lo, hi, err := bounds(args, 0, 100, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
	if err != nil {
		return value.Value{}, err
	}
	return value.Long(lo + r.gen.int63n(hi-lo+1)), nil
}

// randomDouble returns a double in [min, max), 0..1 without arguments.
func (r *Registry) randomDouble(args []string) (value.Value, error) {
	lo, hi, err := bounds(args, 0, 1, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	if err != nil {
		return value.Value{}, err
	}
	return value.Double(lo + r.gen.float64()*(hi-lo)), nil
}

func (r *Registry) randomChars(charset string, defaultLen int) Func {
	return func(args []string) (value.Value, error) {
		n := defaultLen
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 0 {
				return value.Value{}, fmt.Errorf("%w: length %q", ErrBadArguments, args[0])
			}
			n = v
		}
		return value.String(r.gen.pick(charset, n)), nil
	}
}

// regex returns a string matching its pattern. Unquoted commas are part of
// the pattern.
func (r *Registry) regex(args []string) (value.Value, error) {
	if len(args) == 0 {
		return value.Value{}, fmt.Errorf("%w: want a pattern", ErrBadArguments)
	}
	s, err := r.gen.Generate(strings.Join(args, ","))
	if err != nil {
		return value.Value{}, err
	}
	return value.String(s), nil
}

// bounds parses optional (min, max) arguments and orders them.
func bounds[T int64 | float64](args []string, lo, hi T, parse func(string) (T, error)) (T, T, error) {
	switch len(args) {
	case 0:
	case 2:
		var err error
		if lo, err = parse(args[0]); err != nil {
			return lo, hi, fmt.Errorf("%w: min %q", ErrBadArguments, args[0])
		}
		if hi, err = parse(args[1]); err != nil {
			return lo, hi, fmt.Errorf("%w: max %q", ErrBadArguments, args[1])
		}
	default:
		return lo, hi, fmt.Errorf("%w: want (min, max)", ErrBadArguments)
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo, hi, nil
}
