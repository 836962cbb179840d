package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidPath     = errors.New("invalid path")
	ErrPathNotFound    = errors.New("path not found")
	ErrInvalidDocument = errors.New("invalid JSON document")
)

// PathError reports a failed extraction together with the offending path.
type PathError struct {
	Path   string
	Reason string
	Err    error
}

func (e *PathError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v %q: %s", e.Err, e.Path, e.Reason)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Path)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

var indexedSegment = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

// Segment is one dot separated step of a path: a field name, optionally
// followed by an array index.
type Segment struct {
	Name    string
	Index   int
	Indexed bool
}

func (s Segment) String() string {
	if s.Indexed {
		return s.Name + "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Name
}

// Path is a parsed path expression.
type Path struct {
	Expr     string
	Segments []Segment
}

func (p Path) String() string {
	return p.Expr
}

// ParsePath parses expr into segments. Empty paths and empty segments
// ("a..b", "a.") are rejected with ErrInvalidPath.
func ParsePath(expr string) (Path, error) {
	trimmed := strings.TrimPrefix(expr, "$.")
	if strings.TrimSpace(trimmed) == "" {
		return Path{}, &PathError{Path: expr, Reason: "empty path", Err: ErrInvalidPath}
	}

	parts := strings.Split(trimmed, ".")
	segments := make([]Segment, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return Path{}, &PathError{Path: expr, Reason: fmt.Sprintf("empty segment at position %d", i), Err: ErrInvalidPath}
		}

		m := indexedSegment.FindStringSubmatch(part)
		if m == nil {
			segments = append(segments, Segment{Name: part})
			continue
		}

		idx, err := strconv.Atoi(m[2])
		if err != nil {
			return Path{}, &PathError{Path: expr, Reason: fmt.Sprintf("index out of range in %q", part), Err: ErrInvalidPath}
		}
		segments = append(segments, Segment{Name: m[1], Index: idx, Indexed: true})
	}

	return Path{Expr: expr, Segments: segments}, nil
}
