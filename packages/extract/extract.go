package extract

import (
	"log/slog"

	"github.com/abdul-hamid-achik/hitstep/packages/value"
	"github.com/tidwall/gjson"
)

type options struct {
	logger *slog.Logger
}

// Option configures an extraction call.
type Option func(*options)

// WithLogger sets the logger used for non-fatal diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// ExtractBytes parses body as JSON and extracts expr from it.
func ExtractBytes(body []byte, expr, declaredType string, opts ...Option) (value.Value, error) {
	if !gjson.ValidBytes(body) {
		return value.Value{}, &PathError{Path: expr, Err: ErrInvalidDocument}
	}
	return Extract(gjson.ParseBytes(body), expr, declaredType, opts...)
}

// Extract resolves expr against root and converts the matches to
// declaredType. A list<T> type yields every match; a scalar type yields the
// first match in document order and logs a warning when more than one node
// matched. Zero matches fail with ErrPathNotFound.
func Extract(root gjson.Result, expr, declaredType string, opts ...Option) (value.Value, error) {
	o := newOptions(opts)

	path, err := ParsePath(expr)
	if err != nil {
		return value.Value{}, err
	}
	typ, err := value.ParseType(declaredType)
	if err != nil {
		return value.Value{}, err
	}

	matches := Match(root, path)
	if len(matches) == 0 {
		return value.Value{}, &PathError{Path: expr, Err: ErrPathNotFound}
	}

	if typ.List {
		scalar := value.Type{Scalar: typ.Scalar}
		items := make([]value.Value, 0, len(matches))
		for _, m := range matches {
			v, err := value.ConvertType(text(m), scalar)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, v)
		}
		return value.List(items...), nil
	}

	if len(matches) > 1 {
		o.logger.Warn("multiple values found for single value path, using first value only",
			"path", expr,
			"matches", len(matches),
		)
	}
	return value.ConvertType(text(matches[0]), typ)
}

// Match returns the raw nodes matched by path, in traversal order.
func Match(root gjson.Result, path Path) []gjson.Result {
	return traverse(root, path.Segments, 0, false)
}

// traverse walks one branch. Each call returns its own matches so sibling
// branches never share state.
func traverse(node gjson.Result, segments []Segment, depth int, fanned bool) []gjson.Result {
	if !node.Exists() || depth >= len(segments) {
		return nil
	}

	seg := segments[depth]
	last := depth == len(segments)-1

	if seg.Indexed {
		arr := field(node, seg.Name)
		if !arr.IsArray() {
			return nil
		}
		elems := arr.Array()
		if seg.Index >= len(elems) {
			return nil
		}
		if last {
			return []gjson.Result{elems[seg.Index]}
		}
		return traverse(elems[seg.Index], segments, depth+1, false)
	}

	// Fan out at most once per segment: an array nested directly inside
	// the fanned array is not descended again.
	if !fanned && node.IsArray() {
		var out []gjson.Result
		node.ForEach(func(_, child gjson.Result) bool {
			out = append(out, traverse(child, segments, depth, true)...)
			return true
		})
		return out
	}

	next := field(node, seg.Name)
	if !next.Exists() {
		return nil
	}
	if !last {
		return traverse(next, segments, depth+1, false)
	}
	if next.IsArray() {
		return next.Array()
	}
	return []gjson.Result{next}
}

// field looks up an object member by exact key. The last duplicate wins.
// Non-objects have no fields.
func field(node gjson.Result, name string) gjson.Result {
	if !node.IsObject() {
		return gjson.Result{}
	}
	var found gjson.Result
	node.ForEach(func(key, val gjson.Result) bool {
		if key.Str == name {
			found = val
		}
		return true
	})
	return found
}

// text returns the textual form of a matched node. JSON null becomes the
// text "null", so a typed extraction never yields a null value.
func text(node gjson.Result) *string {
	var s string
	switch node.Type {
	case gjson.Null:
		s = "null"
	case gjson.String:
		s = node.Str
	case gjson.True:
		s = "true"
	case gjson.False:
		s = "false"
	default:
		// numbers keep their literal text, objects and arrays their raw JSON
		s = node.Raw
	}
	return &s
}
