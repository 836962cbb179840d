package capture

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitstep/packages/core/env"
	"github.com/abdul-hamid-achik/hitstep/packages/extract"
	"github.com/abdul-hamid-achik/hitstep/packages/http"
	"github.com/abdul-hamid-achik/hitstep/packages/params"
	"github.com/abdul-hamid-achik/hitstep/packages/value"
)

// Response metadata sources. Any other path is evaluated against the JSON body.
const (
	SourceStatus   = "@status"
	SourceDuration = "@duration"
	headerPrefix   = "@header."
)

// Row asks for the value at Path to be stored under Target ("key" or "key:type").
type Row struct {
	Path   string
	Target string
}

type Extractor struct {
	response     *http.Response
	logger       *slog.Logger
	preserveCase bool
}

type Option func(*Extractor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// WithPreserveCase keeps paths as written. Target keys are lower-cased
// either way.
func WithPreserveCase(preserve bool) Option {
	return func(e *Extractor) {
		e.preserveCase = preserve
	}
}

func NewExtractor(resp *http.Response, opts ...Option) *Extractor {
	e := &Extractor{
		response: resp,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract evaluates one row and returns the target key and typed value.
func (e *Extractor) Extract(row Row) (string, value.Value, error) {
	path := strings.TrimSpace(row.Path)
	if !e.preserveCase {
		path = strings.ToLower(path)
	}
	key, typ := params.SplitCompoundKey(strings.ToLower(row.Target))
	if key == "" {
		return "", value.Value{}, fmt.Errorf("extract %q: empty target key", row.Path)
	}

	var (
		v   value.Value
		err error
	)
	switch {
	case path == SourceStatus:
		v, err = value.ConvertString(strconv.Itoa(e.response.StatusCode), typ)
	case path == SourceDuration:
		v, err = value.ConvertString(strconv.FormatInt(e.response.DurationMs(), 10), typ)
	case strings.HasPrefix(path, headerPrefix):
		v, err = e.extractFromHeader(strings.TrimPrefix(path, headerPrefix), typ)
	default:
		v, err = extract.ExtractBytes(e.response.Body, path, typ, extract.WithLogger(e.logger))
	}
	if err != nil {
		return "", value.Value{}, fmt.Errorf("extract %q into %q: %w", path, key, err)
	}
	return key, v, nil
}

func (e *Extractor) extractFromHeader(name, typ string) (value.Value, error) {
	for k, raw := range e.response.Headers {
		if strings.EqualFold(k, name) {
			return value.ConvertString(raw, typ)
		}
	}
	return value.Value{}, &extract.PathError{Path: headerPrefix + name, Err: extract.ErrPathNotFound}
}

// Apply extracts every row and publishes the results into ctx. Rows are
// evaluated in order; the first failure stops the remaining rows.
func (e *Extractor) Apply(ctx *env.Context, rows []Row) error {
	for _, row := range rows {
		key, v, err := e.Extract(row)
		if err != nil {
			return err
		}
		ctx.Set(key, v)
		e.logger.Debug("captured value", "key", key, "kind", v.Kind().String())
	}
	return nil
}

// ExtractAll is Apply with default options.
func ExtractAll(ctx *env.Context, resp *http.Response, rows []Row) error {
	return NewExtractor(resp).Apply(ctx, rows)
}
