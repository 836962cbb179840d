package params

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hitstep/packages/core/env"
	"github.com/abdul-hamid-achik/hitstep/packages/value"
	"github.com/tidwall/sjson"
)

// Entry is one row of a parameter table: a compound "key:type" and its raw value.
type Entry struct {
	Key string
	Raw string
}

// Table maps parameter names to typed values.
type Table map[string]value.Value

// SplitCompoundKey splits k on the first ':'. A missing type defaults to
// value.DefaultType.
func SplitCompoundKey(k string) (key, typ string) {
	key, typ, found := strings.Cut(k, ":")
	key = strings.TrimSpace(key)
	typ = strings.TrimSpace(typ)
	if !found || typ == "" {
		typ = value.DefaultType
	}
	return key, typ
}

type options struct {
	preserveCase bool
	logger       *slog.Logger
}

type Option func(*options)

// WithPreserveCase keeps raw values as written. Keys are still lower-cased.
func WithPreserveCase(preserve bool) Option {
	return func(o *options) {
		o.preserveCase = preserve
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Build converts entries into typed values and merges them over into. The
// input table is left untouched; entries already in it survive unless an
// entry with the same key replaces them.
//
// Compound keys and raw values are lower-cased before processing unless
// WithPreserveCase is set, in which case only keys are. Raw values
// containing '{' are resolved through lookup first.
func Build(into Table, entries []Entry, lookup env.Lookup, opts ...Option) (Table, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	out := make(Table, len(into)+len(entries))
	for k, v := range into {
		out[k] = v
	}

	for _, e := range entries {
		key, typ := SplitCompoundKey(strings.ToLower(e.Key))
		if key == "" {
			return nil, fmt.Errorf("parameter %q: empty key", e.Key)
		}

		raw := e.Raw
		if !o.preserveCase {
			raw = strings.ToLower(raw)
		}

		if strings.Contains(raw, "{") {
			resolved, missing := env.ResolveWithMissing(raw, lookup)
			for _, name := range missing {
				o.logger.Warn("unresolved placeholder", "parameter", key, "name", name)
			}
			raw = resolved
		}

		v, err := value.ConvertString(raw, typ)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		out[key] = v
	}

	return out, nil
}

// FromValue unpacks a map value stored in a Context. Anything else yields an
// empty table.
func FromValue(v value.Value) Table {
	m, ok := v.AsMap()
	if !ok {
		return Table{}
	}
	return Table(m)
}

// Value packs the table into a map value for storage in a Context.
func (t Table) Value() value.Value {
	return value.Map(t)
}

// Keys returns the parameter names in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Strings renders every value in its textual form. Null values are dropped.
func (t Table) Strings() map[string]string {
	out := make(map[string]string, len(t))
	for k, v := range t {
		if v.IsNull() {
			continue
		}
		out[k] = v.String()
	}
	return out
}

// JSON renders the table as a JSON object. Dotted keys become nested
// objects, so "user.name" yields {"user":{"name":...}}. Values keep their
// JSON type.
func (t Table) JSON() ([]byte, error) {
	doc := []byte("{}")
	for _, k := range t.Keys() {
		var err error
		doc, err = sjson.SetBytes(doc, k, t[k].Interface())
		if err != nil {
			return nil, fmt.Errorf("body field %q: %w", k, err)
		}
	}
	return doc, nil
}
