package env

import (
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hitstep/packages/builtin"
	"github.com/abdul-hamid-achik/hitstep/packages/value"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Lookup returns the value stored under key, if any.
type Lookup func(key string) (value.Value, bool)

// Resolve substitutes {name} placeholders in template with values from
// lookup. Placeholders are collected from the original template once; each
// distinct name found there is replaced everywhere in the progressively
// rewritten string. Substituted text is never rescanned, and placeholders
// without a value are left as they are.
func Resolve(template string, lookup Lookup) string {
	resolved, _ := resolve(template, lookup)
	return resolved
}

// ResolveTyped resolves template and converts the result to typ.
func ResolveTyped(template, typ string, lookup Lookup) (value.Value, error) {
	return value.ConvertString(Resolve(template, lookup), typ)
}

// ResolveWithMissing is Resolve that also reports the placeholder names
// lookup could not satisfy, in order of first appearance.
func ResolveWithMissing(template string, lookup Lookup) (string, []string) {
	return resolve(template, lookup)
}

func resolve(template string, lookup Lookup) (string, []string) {
	if !strings.Contains(template, "{") {
		return template, nil
	}

	resolved := template
	seen := make(map[string]bool)
	var missing []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true

		var v value.Value
		ok := false
		if lookup != nil {
			v, ok = lookup(name)
		}
		if !ok {
			missing = append(missing, name)
			continue
		}
		resolved = strings.ReplaceAll(resolved, m[0], v.String())
	}
	return resolved, missing
}

// Resolver resolves placeholders against a scenario Context, falling back to
// OS environment variables ({$HOME}) and built-in functions ({uuid()}).
type Resolver struct {
	ctx    *Context
	funcs  *builtin.Registry
	logger *slog.Logger
}

type ResolverOption func(*Resolver)

func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

func WithFunctions(funcs *builtin.Registry) ResolverOption {
	return func(r *Resolver) {
		r.funcs = funcs
	}
}

func NewResolver(ctx *Context, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		ctx: ctx,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.funcs == nil {
		r.funcs = builtin.NewRegistry()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

func (r *Resolver) Context() *Context {
	return r.ctx
}

// Lookup checks the context first, then $ENV names, then function calls.
func (r *Resolver) Lookup(key string) (value.Value, bool) {
	if v, ok := r.ctx.Lookup(key); ok {
		return v, true
	}

	if strings.HasPrefix(key, "$") {
		if val, ok := os.LookupEnv(key[1:]); ok {
			return value.String(val), true
		}
		return value.Value{}, false
	}

	if builtin.IsCall(key) {
		v, err := r.funcs.Call(key)
		if err != nil {
			r.logger.Warn("placeholder function failed", "call", key, "error", err)
			return value.Value{}, false
		}
		return v, true
	}

	return value.Value{}, false
}

// Resolve substitutes placeholders and warns about the ones left unresolved.
func (r *Resolver) Resolve(template string) string {
	resolved, missing := resolve(template, r.Lookup)
	for _, name := range missing {
		r.logger.Warn("unresolved placeholder", "name", name)
	}
	return resolved
}

// ResolveTyped resolves template and converts the result to typ.
func (r *Resolver) ResolveTyped(template, typ string) (value.Value, error) {
	return value.ConvertString(r.Resolve(template), typ)
}
