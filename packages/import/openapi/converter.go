// Package openapi generates hitstep feature files from OpenAPI 3 documents.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitstep/packages/import/feature"
	"github.com/getkin/kin-openapi/openapi3"
)

const maxSchemaDepth = 5

var methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

// Converter turns every operation of a document into one scenario.
type Converter struct {
	baseURL     string
	includeTags []string
	excludeTags []string
	operations  []string
	logger      *slog.Logger
}

type Option func(*Converter)

// WithBaseURL overrides the first server of the document.
func WithBaseURL(u string) Option {
	return func(c *Converter) {
		c.baseURL = u
	}
}

// WithTags keeps only operations carrying one of tags.
func WithTags(tags []string) Option {
	return func(c *Converter) {
		c.includeTags = tags
	}
}

func WithExcludeTags(tags []string) Option {
	return func(c *Converter) {
		c.excludeTags = tags
	}
}

// WithOperations keeps only the given operation IDs.
func WithOperations(ids []string) Option {
	return func(c *Converter) {
		c.operations = ids
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

func NewConverter(opts ...Option) *Converter {
	c := &Converter{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Load reads a document from a file path or an http(s) URL.
func Load(location string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, err
		}
		return loader.LoadFromURI(u)
	}
	return loader.LoadFromFile(location)
}

// ConvertFile loads location and converts it.
func (c *Converter) ConvertFile(ctx context.Context, location string) (*feature.Document, error) {
	doc, err := Load(location)
	if err != nil {
		return nil, fmt.Errorf("loading OpenAPI document: %w", err)
	}
	return c.Convert(ctx, doc)
}

// ConvertData parses an OpenAPI document held in memory, JSON or YAML.
func (c *Converter) ConvertData(ctx context.Context, data []byte) (*feature.Document, error) {
	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("loading OpenAPI document: %w", err)
	}
	return c.Convert(ctx, doc)
}

// Convert builds a feature whose scenarios send each operation once and
// check its first documented 2xx status.
func (c *Converter) Convert(ctx context.Context, doc *openapi3.T) (*feature.Document, error) {
	if err := doc.Validate(ctx); err != nil {
		c.logger.Warn("OpenAPI document does not validate", "error", err)
	}

	out := &feature.Document{Name: "API"}
	if doc.Info != nil {
		if doc.Info.Title != "" {
			out.Name = doc.Info.Title
		}
		comment := "Generated from OpenAPI document " + out.Name
		if doc.Info.Version != "" {
			comment += " " + doc.Info.Version
		}
		out.Comments = []string{comment}
	}

	if base := c.serverURL(doc); base != "" {
		out.Background = []feature.Step{{Keyword: "Given", Text: "set base url to " + base}}
	}

	if doc.Paths == nil {
		return out, nil
	}
	paths := doc.Paths.InMatchingOrder()
	sort.Strings(paths)
	for _, path := range paths {
		item := doc.Paths.Value(path)
		if item == nil {
			continue
		}
		for _, method := range methods {
			op := item.GetOperation(method)
			if op == nil || !c.include(op) {
				continue
			}
			out.Scenarios = append(out.Scenarios, c.scenario(path, method, op, item.Parameters))
		}
	}
	return out, nil
}

func (c *Converter) serverURL(doc *openapi3.T) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	if len(doc.Servers) > 0 {
		return doc.Servers[0].URL
	}
	return ""
}

func (c *Converter) include(op *openapi3.Operation) bool {
	if len(c.operations) > 0 && !contains(c.operations, op.OperationID) {
		return false
	}
	if len(c.includeTags) > 0 && !anyContains(c.includeTags, op.Tags) {
		return false
	}
	return !anyContains(c.excludeTags, op.Tags)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func anyContains(list, values []string) bool {
	for _, v := range values {
		if contains(list, v) {
			return true
		}
	}
	return false
}

func (c *Converter) scenario(path, method string, op *openapi3.Operation, shared openapi3.Parameters) feature.Scenario {
	sc := feature.Scenario{Name: scenarioName(path, method, op)}
	for _, t := range op.Tags {
		if tag := feature.Tag(t); tag != "" {
			sc.Tags = append(sc.Tags, tag)
		}
	}

	endpoint := path
	var pathRows, queryRows, headerRows [][]string
	for _, ref := range append(append(openapi3.Parameters{}, shared...), op.Parameters...) {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		row := []string{typedKey(p.Name, p.Schema), paramExample(p)}
		switch p.In {
		case openapi3.ParameterInPath:
			// table keys are lower-cased when read, so the endpoint must match
			name := strings.ToLower(p.Name)
			endpoint = strings.ReplaceAll(endpoint, "{"+p.Name+"}", "{"+name+"}")
			row[0] = typedKey(name, p.Schema)
			pathRows = append(pathRows, row)
		case openapi3.ParameterInQuery:
			if p.Required {
				queryRows = append(queryRows, row)
			}
		case openapi3.ParameterInHeader:
			headerRows = append(headerRows, []string{p.Name, paramExample(p)})
		}
	}

	given := func(text string, table [][]string) {
		sc.Steps = append(sc.Steps, feature.Step{Keyword: "Given", Text: text, Table: table})
	}
	if len(pathRows) > 0 {
		given("add to path parameters", pathRows)
	}
	given("set endpoint to "+endpoint, nil)
	if len(queryRows) > 0 {
		given("add to query parameters", queryRows)
	}
	if len(headerRows) > 0 {
		given("add to headers", headerRows)
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if st, ok := bodyStep(op.RequestBody.Value); ok {
			sc.Steps = append(sc.Steps, st)
		}
	}

	sc.Steps = append(sc.Steps,
		feature.Step{Keyword: "When", Text: "send a " + method + " request"},
		feature.Step{Keyword: "Then", Text: "validate status code of " + successStatus(op)},
	)
	return sc
}

func scenarioName(path, method string, op *openapi3.Operation) string {
	switch {
	case op.Summary != "":
		return strings.TrimSpace(op.Summary)
	case op.OperationID != "":
		return op.OperationID
	default:
		return method + " " + path
	}
}

func bodyStep(body *openapi3.RequestBody) (feature.Step, bool) {
	types := make([]string, 0, len(body.Content))
	for ct := range body.Content {
		types = append(types, ct)
	}
	sort.Strings(types)

	for _, ct := range types {
		media := body.Content[ct]
		if !strings.Contains(ct, "json") || media == nil || media.Schema == nil {
			continue
		}
		data, err := json.MarshalIndent(example(media.Schema.Value, 0), "", "  ")
		if err != nil {
			continue
		}
		return feature.Step{Keyword: "Given", Text: "set body to", Doc: string(data)}, true
	}

	for _, ct := range types {
		media := body.Content[ct]
		if !strings.Contains(ct, "form") || media == nil || media.Schema == nil || media.Schema.Value == nil {
			continue
		}
		var rows [][]string
		for _, name := range sortedProperties(media.Schema.Value) {
			rows = append(rows, []string{typedKey(name, media.Schema.Value.Properties[name]), scalarExample(media.Schema.Value.Properties[name].Value, name)})
		}
		if len(rows) > 0 {
			return feature.Step{Keyword: "Given", Text: "add to form parameters", Table: rows}, true
		}
	}
	return feature.Step{}, false
}

// successStatus returns the lowest documented 2xx status, 200 when none is.
func successStatus(op *openapi3.Operation) string {
	if op.Responses == nil {
		return "200"
	}
	var codes []string
	for code := range op.Responses.Map() {
		if len(code) == 3 && code[0] == '2' {
			if _, err := strconv.Atoi(code); err == nil {
				codes = append(codes, code)
			}
		}
	}
	if len(codes) == 0 {
		return "200"
	}
	sort.Strings(codes)
	return codes[0]
}

func schemaType(s *openapi3.Schema) string {
	if s == nil || s.Type == nil || len(s.Type.Slice()) == 0 {
		return ""
	}
	return s.Type.Slice()[0]
}

// typedKey appends the hitstep type of a scalar schema to name.
func typedKey(name string, ref *openapi3.SchemaRef) string {
	if ref == nil {
		return name
	}
	switch schemaType(ref.Value) {
	case openapi3.TypeInteger:
		if ref.Value.Format == "int64" {
			return name + ":long"
		}
		return name + ":integer"
	case openapi3.TypeNumber:
		return name + ":double"
	case openapi3.TypeBoolean:
		return name + ":boolean"
	}
	return name
}

func paramExample(p *openapi3.Parameter) string {
	if p.Example != nil {
		return fmt.Sprint(p.Example)
	}
	if p.Schema != nil && p.Schema.Value != nil {
		return scalarExample(p.Schema.Value, p.Name)
	}
	return "{" + p.Name + "}"
}

func scalarExample(s *openapi3.Schema, name string) string {
	if s == nil {
		return "{" + name + "}"
	}
	if s.Example != nil {
		return fmt.Sprint(s.Example)
	}
	if len(s.Enum) > 0 {
		return fmt.Sprint(s.Enum[0])
	}
	switch schemaType(s) {
	case openapi3.TypeInteger:
		if s.Min != nil {
			return strconv.FormatFloat(*s.Min, 'f', 0, 64)
		}
		return "1"
	case openapi3.TypeNumber:
		return "1.5"
	case openapi3.TypeBoolean:
		return "true"
	case openapi3.TypeString:
		switch s.Format {
		case "date":
			return "2024-01-01"
		case "date-time":
			return "2024-01-01T00:00:00Z"
		case "email":
			return "{randomEmail()}"
		case "uuid":
			return "{uuid()}"
		}
		return "example"
	}
	return "{" + name + "}"
}

// example builds a JSON value matching s from its examples, enums and types.
func example(s *openapi3.Schema, depth int) any {
	if s == nil || depth > maxSchemaDepth {
		return nil
	}
	if s.Example != nil {
		return s.Example
	}
	switch schemaType(s) {
	case openapi3.TypeObject, "":
		if len(s.Properties) == 0 {
			if schemaType(s) == "" {
				return nil
			}
			return map[string]any{}
		}
		obj := make(map[string]any, len(s.Properties))
		for _, name := range sortedProperties(s) {
			obj[name] = example(s.Properties[name].Value, depth+1)
		}
		return obj
	case openapi3.TypeArray:
		if s.Items == nil {
			return []any{}
		}
		return []any{example(s.Items.Value, depth+1)}
	case openapi3.TypeInteger:
		if s.Min != nil {
			return int64(*s.Min)
		}
		return 1
	case openapi3.TypeNumber:
		return 1.5
	case openapi3.TypeBoolean:
		return true
	default:
		return scalarExample(s, "value")
	}
}

func sortedProperties(s *openapi3.Schema) []string {
	names := make([]string, 0, len(s.Properties))
	for name, ref := range s.Properties {
		if ref != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
