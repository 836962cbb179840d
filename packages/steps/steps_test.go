package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/hitstep/packages/builtin"
	"github.com/abdul-hamid-achik/hitstep/packages/core/env"
	"github.com/abdul-hamid-achik/hitstep/packages/core/parser"
	"github.com/abdul-hamid-achik/hitstep/packages/http"
	"github.com/abdul-hamid-achik/hitstep/packages/logging"
	"github.com/abdul-hamid-achik/hitstep/packages/snapshot"
	"github.com/abdul-hamid-achik/hitstep/packages/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/users/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Echo-Id", r.Header.Get("X-Request-Id"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      42,
			"name":    "Ana",
			"path":    r.URL.Path,
			"verbose": r.URL.Query().Get("verbose"),
			"tags":    []string{"a", "b"},
		})
	})
	mux.HandleFunc("/echo", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Content-Type", r.Header.Get("Content-Type"))
		if r.Method == nethttp.MethodPost {
			w.WriteHeader(nethttp.StatusCreated)
		}
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/form", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"grant_type": r.PostForm.Get("grant_type"),
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestWorld(t *testing.T, opts ...WorldOption) *World {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]WorldOption{WithLogger(logger), WithGenerator(builtin.NewGenerator(builtin.WithSeed(7)))}, opts...)
	w := NewWorld(env.NewContext(), http.NewClient(), opts...)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// runSteps parses a single-scenario feature and runs its steps in order.
func runSteps(t *testing.T, w *World, steps string) error {
	t.Helper()
	f, err := parser.Parse("Feature: f\n  Scenario: s\n"+steps, "test.feature")
	require.NoError(t, err)
	require.Len(t, f.Scenarios, 1)

	reg := Default()
	for _, step := range f.Scenarios[0].Steps {
		if err := reg.Run(context.Background(), w, step); err != nil {
			return err
		}
	}
	return nil
}

func TestSteps_GetAndExtract(t *testing.T) {
	srv := newTestServer(t)
	w := newTestWorld(t)
	w.Context.Set("server", value.String(srv.URL))

	err := runSteps(t, w, `
    Given set base url to {server}
    And add to headers
      | X-Request-Id | ABC |
      | Accept       | application/json |
    And add to path parameters
      | id:integer | 42 |
    And set endpoint to /users/{id}
    And add to query parameters
      | verbose:boolean | TRUE |
    When send a GET request
    Then validate status code of 200
    And extract values from response
      | id   | userId:integer    |
      | name | userName          |
      | tags | tags:list<string> |
    And the value userid should equal 42
    And the value tags should have length 2
    And the response name should equal Ana
    And the response verbose should equal true
    And the response path should equal /users/42
    And the response @header.X-Echo-Id should equal abc
    And the response @status should be less than 300
`)
	require.NoError(t, err)

	name, ok := w.Context.GetString("username")
	require.True(t, ok)
	assert.Equal(t, "Ana", name)

	id, _ := w.Context.Get("userid")
	assert.True(t, id.Equal(value.Integer(42)))

	require.NotNil(t, w.Request)
	assert.Equal(t, "GET", w.Request.Method)
	assert.Equal(t, "abc", w.Request.Headers["x-request-id"])
}

func TestSteps_PostTableBodyAndSchema(t *testing.T) {
	srv := newTestServer(t)
	schemaDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(schemaDir, "user.json"), []byte(`{
		"type": "object",
		"required": ["name", "age"],
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"}
		}
	}`), 0644))

	w := newTestWorld(t, WithSchemaDir(schemaDir))
	w.Context.Set("server", value.String(srv.URL))

	err := runSteps(t, w, `
    Given set base url to {server}
    And set endpoint to /echo
    And add to body
      | name         | Ana   |
      | address.city | Paris |
      | age:integer  | 30    |
    When send a POST request
    Then validate status code of 201
    And the response body should match schema: user.json
    And the response name should equal ana
    And the response address.city should equal paris
    And the response age:integer should be greater than 18
    And the response @header.X-Content-Type should equal application/json
`)
	require.NoError(t, err)
}

func TestSteps_Snapshot(t *testing.T) {
	srv := newTestServer(t)
	feature := filepath.Join(t.TempDir(), "users.feature")
	steps := `
    Given set base url to {server}
    And set endpoint to /users/7
    When send a GET request
    Then the response body should match snapshot user
`

	w := newTestWorld(t)
	w.Context.Set("server", value.String(srv.URL))
	err := runSteps(t, w, steps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no feature file")

	w = newTestWorld(t, WithSnapshots(snapshot.NewStore(), feature, "Get user"))
	w.Context.Set("server", value.String(srv.URL))
	assert.ErrorIs(t, runSteps(t, w, steps), snapshot.ErrMissing)

	w = newTestWorld(t, WithSnapshots(snapshot.NewStore(snapshot.WithUpdate(true)), feature, "Get user"))
	w.Context.Set("server", value.String(srv.URL))
	require.NoError(t, runSteps(t, w, steps))
	assert.FileExists(t, snapshot.PathFor(feature))

	w = newTestWorld(t, WithSnapshots(snapshot.NewStore(), feature, "Get user"))
	w.Context.Set("server", value.String(srv.URL))
	require.NoError(t, runSteps(t, w, steps))
}

func TestSteps_PreserveCase(t *testing.T) {
	srv := newTestServer(t)
	w := newTestWorld(t, WithPreserveCase(true))
	w.Context.Set("server", value.String(srv.URL))

	err := runSteps(t, w, `
    Given set base url to {server}
    And set endpoint to /echo
    And add to body
      | Name | Ana |
    When send a POST request
    Then the response name should equal Ana
`)
	require.NoError(t, err)
}

func TestSteps_RawBodyWithPlaceholders(t *testing.T) {
	srv := newTestServer(t)
	w := newTestWorld(t)
	w.Context.Set("server", value.String(srv.URL))

	err := runSteps(t, w, `
    Given store token as abc123
    And store count:integer as 3
    And set base url to {server}
    And set endpoint to /echo
    And set body to
      """
      {"token": "{token}", "count": {count}}
      """
    When send a PUT request
    Then validate status code of 200
    And the response token should equal abc123
    And the response count:integer should equal 3
    And the value count should have type integer
`)
	require.NoError(t, err)
}

func TestSteps_LowerCaseMethod(t *testing.T) {
	srv := newTestServer(t)
	w := newTestWorld(t)
	w.Context.Set("server", value.String(srv.URL))

	err := runSteps(t, w, `
    Given set base url to {server}
    And set endpoint to /echo
    And set body to
      """
      {"ok": true}
      """
    When send a post request
    Then validate status code of 201
`)
	require.NoError(t, err)
	require.NotNil(t, w.Request)
	assert.Equal(t, "POST", w.Request.Method)
}

func TestSteps_AddToBodyAfterRawBodyFails(t *testing.T) {
	w := newTestWorld(t)
	err := runSteps(t, w, `
    Given set body to
      """
      {}
      """
    And add to body
      | a | b |
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raw body")
}

func TestSteps_FormParameters(t *testing.T) {
	srv := newTestServer(t)
	w := newTestWorld(t)
	w.Context.Set("server", value.String(srv.URL))

	err := runSteps(t, w, `
    Given set base url to {server}
    And set endpoint to /form
    And add to form parameters
      | grant_type | client_credentials |
    When send a POST request
    Then the response grant_type should equal client_credentials
`)
	require.NoError(t, err)
}

func TestSteps_GenerateRandomValues(t *testing.T) {
	w := newTestWorld(t)
	err := runSteps(t, w, `
    Given generate random values
      | Code        | [A-Z]{3}       |
      | pin:integer | [1-9][0-9]{3}  |
    Then the value code should match ^[A-Z]{3}$
    And the value pin should have type integer
`)
	require.NoError(t, err)

	code, ok := w.Context.GetString("code")
	require.True(t, ok)
	assert.Len(t, code, 3)
}

func TestSteps_Database(t *testing.T) {
	w := newTestWorld(t)
	w.Context.Set("dbpath", value.String(filepath.Join(t.TempDir(), "steps.db")))

	err := runSteps(t, w, `
    Given set database to sqlite://{dbpath}
    And execute on database
      """
      CREATE TABLE users (id INTEGER, name TEXT);
      INSERT INTO users VALUES (1, 'Ana'), (2, 'Bo');
      """
    And store wanted:integer as 2
    And run query
      """
      SELECT id, name FROM users WHERE id <= {wanted} ORDER BY id
      """
    And extract values from query
      | id   | ids:list<integer> |
      | name | firstName         |
    Then the value ids should contain 2
    And the value firstname should equal Ana
`)
	require.NoError(t, err)

	ids, _ := w.Context.Get("ids")
	assert.True(t, ids.Equal(value.List(value.Integer(1), value.Integer(2))))
}

func TestSteps_PrintContextRedactsSecrets(t *testing.T) {
	var logs bytes.Buffer
	logger, err := logging.New(&logs, logging.FormatText, slog.LevelInfo)
	require.NoError(t, err)

	w := newTestWorld(t, WithLogger(logger))
	w.Context.Set("user", value.String("ana"))
	w.Context.Set("token", value.String("s3cr3t"))

	require.NoError(t, runSteps(t, w, "    Given print context\n"))
	assert.Contains(t, logs.String(), "user=ana")
	assert.Contains(t, logs.String(), "token="+logging.Redacted)
	assert.NotContains(t, logs.String(), "s3cr3t")
}

func TestSteps_Failures(t *testing.T) {
	tests := []struct {
		name    string
		steps   string
		target  error
		message string
	}{
		{
			name:   "undefined step",
			steps:  "    Given something nobody wrote\n",
			target: ErrUndefinedStep,
		},
		{
			name:   "table missing",
			steps:  "    Given add to headers\n",
			target: ErrMissingTable,
		},
		{
			name:   "doc string missing",
			steps:  "    Given set body to\n",
			target: ErrMissingDocString,
		},
		{
			name:    "status before request",
			steps:   "    Then validate status code of 200\n",
			message: "no response received",
		},
		{
			name:   "extract before request",
			steps:  "    Then extract values from response\n      | id | id |\n",
			target: ErrNoResponse,
		},
		{
			name:   "query without database",
			steps:  "    Given run query\n      \"\"\"\n      SELECT 1\n      \"\"\"\n",
			target: ErrNoDatabase,
		},
		{
			name:   "extract without query",
			steps:  "    Given extract values from query\n      | id | id |\n",
			target: ErrNoQueryResult,
		},
		{
			name:    "missing operand",
			steps:   "    Given store a as 1\n    Then the value a should equal\n",
			message: "needs an expected value",
		},
		{
			name:    "missing value",
			steps:   "    Then the value nothing should equal 1\n",
			message: "no value stored",
		},
		{
			name:   "bad conversion",
			steps:  "    Given store n:integer as abc\n",
			target: value.ErrInvalidFormat,
		},
		{
			name:    "failed comparison",
			steps:   "    Given store n:integer as 5\n    Then the value n should be greater than 10\n",
			message: "assertion on n failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t)
			err := runSteps(t, w, tt.steps)
			require.Error(t, err)

			var stepErr *StepError
			require.True(t, errors.As(err, &stepErr))
			assert.Greater(t, stepErr.Line, 2)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestSteps_ExistenceChecks(t *testing.T) {
	srv := newTestServer(t)
	w := newTestWorld(t)
	w.Context.Set("server", value.String(srv.URL))

	err := runSteps(t, w, `
    Given set base url to {server}
    And set endpoint to /users/1
    When send a GET request
    Then the response name should exist
    And the response missing.field should not exist
    And the value nothing should not exist
`)
	require.NoError(t, err)

	err = runSteps(t, w, "    Then the response name should not exist\n")
	require.Error(t, err)
}

func TestSteps_StatusMismatch(t *testing.T) {
	srv := newTestServer(t)
	w := newTestWorld(t)
	w.Context.Set("server", value.String(srv.URL))

	err := runSteps(t, w, `
    Given set base url to {server}
    And set endpoint to /users/1
    When send a GET request
    Then validate status code of 404
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected status 404, got 200")
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	var got []string
	reg.Register(`say (\w+)`, func(_ context.Context, _ *World, c *Call) error {
		got = append(got, c.Arg(0), c.Arg(5))
		return nil
	})
	reg.Register(`say (\w+) twice`, func(_ context.Context, _ *World, _ *Call) error {
		return errors.New("unreachable")
	})

	def, args, err := reg.Match("say hi")
	require.NoError(t, err)
	assert.Equal(t, `say (\w+)`, def.Pattern)
	assert.Equal(t, []string{"hi"}, args)

	_, _, err = reg.Match("say hi loudly")
	assert.ErrorIs(t, err, ErrUndefinedStep)

	step := &parser.Step{Keyword: "Given", Text: "say hello", Line: 3}
	require.NoError(t, reg.Run(context.Background(), nil, step))
	assert.Equal(t, []string{"hello", ""}, got)

	step = &parser.Step{Keyword: "Then", Text: "say hi twice", Line: 9}
	err = reg.Run(context.Background(), nil, step)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "line 9: Then say hi twice"))

	assert.Len(t, reg.Definitions(), 2)
}

func TestDefault_PatternsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range Default().Definitions() {
		assert.False(t, seen[def.Pattern], def.Pattern)
		seen[def.Pattern] = true
	}
}
