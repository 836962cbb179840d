package assertions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitstep/packages/http"
	"github.com/abdul-hamid-achik/hitstep/packages/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
		Duration:   100 * time.Millisecond,
	}
}

func TestStatus(t *testing.T) {
	result := Status(createResponse(200, `{}`), 200)
	assert.True(t, result.Passed)
	assert.Equal(t, 200, result.Actual)
	assert.NoError(t, result.Err())

	result = Status(createResponse(404, `{}`), 200)
	assert.False(t, result.Passed)
	assert.Equal(t, "expected status 200, got 404", result.Message)
	assert.EqualError(t, result.Err(), "assertion on status failed: expected status 200, got 404")

	result = Status(nil, 200)
	assert.False(t, result.Passed)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		actual   value.Value
		op       Operator
		expected string
		passed   bool
	}{
		{"string equals", value.String("John"), OpEquals, "John", true},
		{"string not equals", value.String("John"), OpNotEquals, "Jane", true},
		{"integer equals", value.Integer(30), OpEquals, "30", true},
		{"double equals integer text", value.Double(30), OpEquals, "30.0", true},
		{"boolean equals case-insensitive", value.Boolean(true), OpEquals, "TRUE", true},
		{"mismatch", value.Long(1), OpEquals, "2", false},
		{"greater than", value.Integer(30), OpGreaterThan, "18", true},
		{"greater or equal", value.Long(18), OpGreaterOrEqual, "18", true},
		{"less than fails", value.Float(2.5), OpLessThan, "1", false},
		{"less or equal numeric string", value.String("7"), OpLessOrEqual, "7", true},
		{"non-numeric comparison", value.String("abc"), OpGreaterThan, "1", false},
		{"substring", value.String("hello world"), OpContains, "world", true},
		{"list membership", value.List(value.String("a"), value.String("b")), OpContains, "b", true},
		{"list membership miss", value.List(value.Integer(1)), OpContains, "2", false},
		{"not contains", value.String("hello"), OpNotContains, "bye", true},
		{"starts with", value.String("Bearer abc"), OpStartsWith, "Bearer", true},
		{"ends with", value.String("file.json"), OpEndsWith, ".json", true},
		{"matches", value.String("user-42"), OpMatches, `/^user-\d+$/`, true},
		{"matches fails", value.String("user-x"), OpMatches, `^user-\d+$`, false},
		{"exists", value.String(""), OpExists, "", true},
		{"null does not exist", value.Null(), OpExists, "", false},
		{"not exists", value.Null(), OpNotExists, "", true},
		{"list length", value.List(value.Integer(1), value.Integer(2)), OpLength, "2", true},
		{"string length in runes", value.String("héllo"), OpLength, "5", true},
		{"length of number", value.Integer(5), OpLength, "1", false},
		{"type name", value.Long(5), OpType, "long", true},
		{"type number", value.Double(1.5), OpType, "number", true},
		{"numeric string is not a number type", value.String("5"), OpType, "number", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate("subject", tt.actual, tt.op, tt.expected)
			assert.Equal(t, tt.passed, result.Passed, result.Message)
			if !tt.passed {
				assert.NotEmpty(t, result.Message)
			}
		})
	}
}

func TestEvaluate_LengthReportsComputedLength(t *testing.T) {
	result := Evaluate("tags", value.List(value.String("a")), OpLength, "3")
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.Actual)
	assert.Equal(t, "expected length 3, got 1", result.Message)
}

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in   string
		want Operator
	}{
		{"equal", OpEquals},
		{"==", OpEquals},
		{"be", OpEquals},
		{"not  equal", OpNotEquals},
		{"Be Greater Than", OpGreaterThan},
		{">=", OpGreaterOrEqual},
		{"be at most", OpLessOrEqual},
		{"contain", OpContains},
		{"have length", OpLength},
		{"not exist", OpNotExists},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			op, err := ParseOperator(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, op)
		})
	}

	_, err := ParseOperator("resemble")
	assert.Error(t, err)
}

func TestPhrases(t *testing.T) {
	phrases := Phrases()
	require.Len(t, phrases, len(operatorNames))
	assert.Equal(t, "be greater than", phrases[0])
	for i := 1; i < len(phrases); i++ {
		assert.GreaterOrEqual(t, len(phrases[i-1]), len(phrases[i]))
	}
	assert.False(t, OpExists.NeedsOperand())
	assert.True(t, OpEquals.NeedsOperand())
}

const userSchema = `{
	"type": "object",
	"required": ["id", "name"],
	"properties": {
		"id": {"type": "integer"},
		"name": {"type": "string"}
	}
}`

func TestSchema(t *testing.T) {
	tmpDir := t.TempDir()
	schemaPath := filepath.Join(tmpDir, "user.schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(userSchema), 0644))

	result := Schema([]byte(`{"id": 1, "name": "John"}`), schemaPath)
	assert.True(t, result.Passed, result.Message)

	result = Schema([]byte(`{"id": "one"}`), schemaPath)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "JSON Schema Validation Failed:")
	assert.Contains(t, result.Message, "- [id]")
	assert.Contains(t, result.Message, "- [(root)] name is required")
}

func TestSchema_Errors(t *testing.T) {
	result := Schema([]byte(`{}`), filepath.Join(t.TempDir(), "missing.json"))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "failed to read schema file")

	tmpDir := t.TempDir()
	schemaPath := filepath.Join(tmpDir, "user.schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(userSchema), 0644))

	result = Schema([]byte(`not json`), schemaPath)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "schema validation error")
}

func TestResolveSchemaPath(t *testing.T) {
	got, err := ResolveSchemaPath("/schemas", "user.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/schemas", "user.json"), got)

	_, err = ResolveSchemaPath("/schemas", "../../etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path traversal")

	got, err = ResolveSchemaPath("", "user.json")
	require.NoError(t, err)
	assert.Equal(t, "user.json", got)
}

func TestValidatePathWithinBase(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		baseDir string
		wantErr bool
	}{
		{
			name:    "path within base",
			path:    "/home/user/project/schema.json",
			baseDir: "/home/user/project",
			wantErr: false,
		},
		{
			name:    "path traversal attempt",
			path:    "/home/user/project/../../../etc/passwd",
			baseDir: "/home/user/project",
			wantErr: true,
		},
		{
			name:    "empty base dir",
			path:    "/any/path",
			baseDir: "",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePathWithinBase(tt.path, tt.baseDir)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
