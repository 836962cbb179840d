package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitstep/packages/assertions"
	"github.com/abdul-hamid-achik/hitstep/packages/capture"
	"github.com/abdul-hamid-achik/hitstep/packages/core/env"
	"github.com/abdul-hamid-achik/hitstep/packages/db"
	"github.com/abdul-hamid-achik/hitstep/packages/extract"
	"github.com/abdul-hamid-achik/hitstep/packages/http"
	"github.com/abdul-hamid-achik/hitstep/packages/params"
	"github.com/abdul-hamid-achik/hitstep/packages/value"
)

// tableKeys maps the "add to ..." targets to their context keys.
var tableKeys = map[string]string{
	"headers":          env.KeyHeaders,
	"path parameters":  env.KeyPathParameters,
	"query parameters": env.KeyQueryParameters,
	"form parameters":  env.KeyFormParameters,
	"body":             env.KeyBody,
}

// RegisterBuiltins adds the built-in step library to r.
func RegisterBuiltins(r *Registry) {
	r.Register(`set base url to (.+)`, setString(env.KeyBaseURL))
	r.Register(`set endpoint to (.+)`, setString(env.KeyEndpoint))
	r.Register(`add to (headers|path parameters|query parameters|form parameters|body)`, addToTable)
	r.Register(`set body to`, setBody)
	r.Register(`generate random values`, generateRandomValues)
	r.Register(`send an? ((?i:get|post|put|patch|delete|head|options)) request`, sendRequest)
	r.Register(`validate status code of (\d{3})`, validateStatus)
	r.Register(`the response body should match schema: (.+)`, matchSchema)
	r.Register(`the response body should match snapshot (.+)`, matchSnapshot)
	r.Register(`extract values from response`, extractFromResponse)
	r.Register(`set database to (.+)`, setDatabase)
	r.Register(`run query`, runQuery)
	r.Register(`extract values from query`, extractFromQuery)
	r.Register(`execute on database`, executeOnDatabase)
	r.Register(`store (\S+) as (.*)`, storeValue)
	r.Register(`print context`, printContext)

	ops := operatorPattern()
	r.Register(`the value (\S+) should (`+ops+`)(?: (.*))?`, assertValue)
	r.Register(`the response (\S+) should (`+ops+`)(?: (.*))?`, assertResponse)
}

func operatorPattern() string {
	phrases := assertions.Phrases()
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(quoted, "|")
}

func setString(key string) Handler {
	return func(_ context.Context, w *World, c *Call) error {
		w.Context.Set(key, value.String(w.Resolver.Resolve(strings.TrimSpace(c.Arg(0)))))
		return nil
	}
}

func entries(c *Call) ([]params.Entry, error) {
	pairs, err := c.Pairs()
	if err != nil {
		return nil, err
	}
	out := make([]params.Entry, len(pairs))
	for i, p := range pairs {
		out[i] = params.Entry{Key: p[0], Raw: p[1]}
	}
	return out, nil
}

func addToTable(_ context.Context, w *World, c *Call) error {
	key := tableKeys[c.Arg(0)]
	rows, err := entries(c)
	if err != nil {
		return err
	}

	current, ok := w.Context.Get(key)
	if ok && current.Kind() == value.KindString {
		return fmt.Errorf("%s already holds a raw body", key)
	}

	table, err := params.Build(params.FromValue(current), rows, w.Resolver.Lookup, w.paramOptions()...)
	if err != nil {
		return err
	}
	w.Context.Set(key, table.Value())
	return nil
}

func setBody(_ context.Context, w *World, c *Call) error {
	doc, err := c.Doc()
	if err != nil {
		return err
	}
	w.Context.Set(env.KeyBody, value.String(w.Resolver.Resolve(doc)))
	return nil
}

// generateRandomValues reads "key:type | regex" rows. Keys are lower-cased;
// generated values are stored as produced.
func generateRandomValues(_ context.Context, w *World, c *Call) error {
	pairs, err := c.Pairs()
	if err != nil {
		return err
	}
	for _, p := range pairs {
		key, typ := params.SplitCompoundKey(strings.ToLower(p[0]))
		raw, err := w.Generator.Generate(p[1])
		if err != nil {
			return fmt.Errorf("generate %q: %w", key, err)
		}
		v, err := value.ConvertString(raw, typ)
		if err != nil {
			return fmt.Errorf("generate %q: %w", key, err)
		}
		w.Context.Set(key, v)
		w.Logger.Debug("generated value", "key", key, "value", raw)
	}
	return nil
}

func sendRequest(ctx context.Context, w *World, c *Call) error {
	baseURL, _ := w.Context.GetString(env.KeyBaseURL)
	endpoint, _ := w.Context.GetString(env.KeyEndpoint)

	req := http.NewRequest(strings.ToUpper(c.Arg(0)), baseURL, endpoint)
	req.Headers = params.Table(w.Context.GetTable(env.KeyHeaders)).Strings()
	req.PathParams = params.Table(w.Context.GetTable(env.KeyPathParameters)).Strings()
	req.QueryParams = params.Table(w.Context.GetTable(env.KeyQueryParameters)).Strings()
	req.FormParams = params.Table(w.Context.GetTable(env.KeyFormParameters)).Strings()

	if body, ok := w.Context.Get(env.KeyBody); ok {
		switch body.Kind() {
		case value.KindString:
			s, _ := body.AsString()
			req.Body = []byte(s)
		case value.KindMap:
			data, err := params.FromValue(body).JSON()
			if err != nil {
				return fmt.Errorf("encode body: %w", err)
			}
			req.Body = data
		}
	}

	w.Request = req
	resp, err := w.Client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", req.Method, err)
	}
	w.Response = resp
	return nil
}

func validateStatus(_ context.Context, w *World, c *Call) error {
	expected, err := strconv.Atoi(c.Arg(0))
	if err != nil {
		return err
	}
	return assertions.Status(w.Response, expected).Err()
}

func matchSchema(_ context.Context, w *World, c *Call) error {
	if w.Response == nil {
		return ErrNoResponse
	}
	path, err := assertions.ResolveSchemaPath(w.SchemaDir, strings.TrimSpace(c.Arg(0)))
	if err != nil {
		return err
	}
	return assertions.Schema(w.Response.Body, path).Err()
}

func matchSnapshot(_ context.Context, w *World, c *Call) error {
	if w.Response == nil {
		return ErrNoResponse
	}
	name := w.Resolver.Resolve(strings.TrimSpace(c.Arg(0)))
	if w.FeaturePath == "" {
		return fmt.Errorf("snapshot %s: scenario has no feature file", name)
	}
	outcome, err := w.Snapshots.Match(w.FeaturePath, w.Scenario, name, w.Response.Body)
	if err != nil {
		return err
	}
	w.Logger.Debug("snapshot compared", "name", name, "outcome", outcome)
	return nil
}

func extractFromResponse(_ context.Context, w *World, c *Call) error {
	pairs, err := c.Pairs()
	if err != nil {
		return err
	}
	ex, err := w.extractor()
	if err != nil {
		return err
	}
	rows := make([]capture.Row, len(pairs))
	for i, p := range pairs {
		rows[i] = capture.Row{Path: p[0], Target: p[1]}
	}
	return ex.Apply(w.Context, rows)
}

func setDatabase(ctx context.Context, w *World, c *Call) error {
	client, err := db.NewClient(ctx, w.Resolver.Resolve(strings.TrimSpace(c.Arg(0))))
	if err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		w.Logger.Warn("closing previous database failed", "error", err)
	}
	w.DB = client
	return nil
}

// runQuery runs the doc string query and keeps the rows for
// "extract values from query".
func runQuery(ctx context.Context, w *World, c *Call) error {
	if w.DB == nil {
		return ErrNoDatabase
	}
	query, err := c.Doc()
	if err != nil {
		return err
	}
	result, err := w.DB.Query(ctx, w.Resolver.Resolve(query))
	if err != nil {
		return err
	}
	w.QueryResult = result
	return nil
}

// extractFromQuery stores the columns named in the "column | key:type" table.
func extractFromQuery(_ context.Context, w *World, c *Call) error {
	if w.QueryResult == nil {
		return ErrNoQueryResult
	}
	pairs, err := c.Pairs()
	if err != nil {
		return err
	}
	for _, p := range pairs {
		key, typ := params.SplitCompoundKey(strings.ToLower(p[1]))
		v, err := w.QueryResult.Extract(p[0], typ, w.Logger)
		if err != nil {
			return fmt.Errorf("extract %q into %q: %w", p[0], key, err)
		}
		w.Context.Set(key, v)
	}
	return nil
}

func executeOnDatabase(ctx context.Context, w *World, c *Call) error {
	if w.DB == nil {
		return ErrNoDatabase
	}
	stmt, err := c.Doc()
	if err != nil {
		return err
	}
	n, err := w.DB.Exec(ctx, w.Resolver.Resolve(stmt))
	if err != nil {
		return err
	}
	w.Logger.Debug("database statement executed", "rows", n)
	return nil
}

func storeValue(_ context.Context, w *World, c *Call) error {
	table, err := params.Build(nil, []params.Entry{{Key: c.Arg(0), Raw: c.Arg(1)}}, w.Resolver.Lookup, w.paramOptions()...)
	if err != nil {
		return err
	}
	for k, v := range table {
		w.Context.Set(k, v)
	}
	return nil
}

func printContext(_ context.Context, w *World, _ *Call) error {
	keys := w.Context.Keys()
	attrs := make([]any, 0, len(keys))
	for _, k := range keys {
		v, _ := w.Context.Get(k)
		attrs = append(attrs, slog.String(k, v.String()))
	}
	w.Logger.Info("context", attrs...)
	return nil
}

func parseAssertion(c *Call) (assertions.Operator, string, error) {
	op, err := assertions.ParseOperator(c.Arg(1))
	if err != nil {
		return op, "", err
	}
	expected := c.Arg(2)
	if op.NeedsOperand() && expected == "" {
		return op, "", fmt.Errorf("%q needs an expected value", op)
	}
	return op, expected, nil
}

// assertValue compares a stored context value. A missing key compares as null.
func assertValue(_ context.Context, w *World, c *Call) error {
	op, expected, err := parseAssertion(c)
	if err != nil {
		return err
	}
	key := strings.ToLower(c.Arg(0))
	actual, ok := w.Context.Get(key)
	if !ok && op.NeedsOperand() {
		return fmt.Errorf("no value stored under %q", key)
	}
	return assertions.Evaluate(key, actual, op, w.Resolver.Resolve(expected)).Err()
}

// assertResponse compares a response value. The source is a body path,
// @status, @duration or @header.<name>, optionally typed as "source:type".
func assertResponse(_ context.Context, w *World, c *Call) error {
	op, expected, err := parseAssertion(c)
	if err != nil {
		return err
	}
	ex, err := w.extractor()
	if err != nil {
		return err
	}

	source, typ := params.SplitCompoundKey(c.Arg(0))
	_, actual, err := ex.Extract(capture.Row{Path: source, Target: "actual:" + typ})
	if err != nil {
		if !errors.Is(err, extract.ErrPathNotFound) || op.NeedsOperand() {
			return err
		}
		actual = value.Null()
	}
	return assertions.Evaluate(source, actual, op, w.Resolver.Resolve(expected)).Err()
}
