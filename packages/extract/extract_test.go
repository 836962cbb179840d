package extract

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/abdul-hamid-achik/hitstep/packages/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const ordersDoc = `{
	"users": [
		{"name": "ana", "age": 31, "roles": ["admin", "dev"]},
		{"name": "bo", "age": 27, "roles": ["dev"]},
		{"nickname": "cy"}
	],
	"items": ["1", "2", "3"],
	"matrix": [[1, 2], [3, 4]],
	"meta": {"total": 3, "ratio": 0.75, "active": true, "next": null, "tags": []},
	"orders": [
		{"id": 10, "lines": [{"sku": "a"}, {"sku": "b"}]},
		{"id": 11, "lines": [{"sku": "c"}]}
	]
}`

func extract(t *testing.T, doc, path, typ string) (value.Value, error) {
	t.Helper()
	return Extract(gjson.Parse(doc), path, typ)
}

func TestExtract_Basics(t *testing.T) {
	t.Run("indexed field", func(t *testing.T) {
		got, err := extract(t, `{"users":[{"name":"ana"}]}`, "users[0].name", "string")
		require.NoError(t, err)
		assert.True(t, value.String("ana").Equal(got))
	})

	t.Run("list of integers", func(t *testing.T) {
		got, err := extract(t, `{"items":["1","2","3"]}`, "items", "list<integer>")
		require.NoError(t, err)
		assert.True(t, value.List(value.Integer(1), value.Integer(2), value.Integer(3)).Equal(got))
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := extract(t, `{}`, "missing.field", "string")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrPathNotFound))

		var pathErr *PathError
		require.True(t, errors.As(err, &pathErr))
		assert.Equal(t, "missing.field", pathErr.Path)
	})
}

func TestExtract_Scalars(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		typ      string
		expected value.Value
	}{
		{name: "dollar prefix", path: "$.meta.total", typ: "integer", expected: value.Integer(3)},
		{name: "number as long", path: "meta.total", typ: "long", expected: value.Long(3)},
		{name: "number as string keeps literal", path: "meta.ratio", typ: "string", expected: value.String("0.75")},
		{name: "double", path: "meta.ratio", typ: "double", expected: value.Double(0.75)},
		{name: "boolean", path: "meta.active", typ: "boolean", expected: value.Boolean(true)},
		{name: "null as string is its text", path: "meta.next", typ: "string", expected: value.String("null")},
		{name: "single element array flattens", path: "users[1].roles", typ: "string", expected: value.String("dev")},
		{name: "object as raw json", path: "orders[0].lines[0]", typ: "string", expected: value.String(`{"sku": "a"}`)},
		{name: "second index", path: "users[1].name", typ: "string", expected: value.String("bo")},
		{name: "index on last segment", path: "items[2]", typ: "integer", expected: value.Integer(3)},
		{name: "nested indexes", path: "orders[0].lines[1].sku", typ: "string", expected: value.String("b")},
		{name: "character", path: "orders[1].lines[0].sku", typ: "character", expected: value.Character('c')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extract(t, ordersDoc, tt.path, tt.typ)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %v (%s), want %v (%s)", got, got.Kind(), tt.expected, tt.expected.Kind())
		})
	}
}

func TestExtract_FanOut(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		typ      string
		expected value.Value
	}{
		{
			name:     "fan out over array field skips missing members",
			path:     "users.name",
			typ:      "list<string>",
			expected: value.List(value.String("ana"), value.String("bo")),
		},
		{
			name:     "final array is flattened per branch",
			path:     "users.roles",
			typ:      "list<string>",
			expected: value.List(value.String("admin"), value.String("dev"), value.String("dev")),
		},
		{
			name:     "nested fan out keeps document order",
			path:     "orders.lines.sku",
			typ:      "list<string>",
			expected: value.List(value.String("a"), value.String("b"), value.String("c")),
		},
		{
			name:     "list of one match is still a list",
			path:     "users[0].name",
			typ:      "list<string>",
			expected: value.List(value.String("ana")),
		},
		{
			name:     "list of numbers",
			path:     "orders.id",
			typ:      "list<long>",
			expected: value.List(value.Long(10), value.Long(11)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extract(t, ordersDoc, tt.path, tt.typ)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %v, want %v", got, tt.expected)
		})
	}
}

func TestExtract_ScalarOnManyMatchesTakesFirstAndWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	got, err := Extract(gjson.Parse(ordersDoc), "users.name", "string", WithLogger(logger))
	require.NoError(t, err)
	assert.True(t, value.String("ana").Equal(got))
	assert.Contains(t, buf.String(), "multiple values found")
	assert.Contains(t, buf.String(), "matches=2")
}

func TestExtract_ArrayEndpoint(t *testing.T) {
	doc := `{"items":[5,6,7,8]}`

	got, err := extract(t, doc, "items", "integer")
	require.NoError(t, err)
	assert.True(t, value.Integer(5).Equal(got))

	got, err = extract(t, doc, "items", "list<integer>")
	require.NoError(t, err)
	items, ok := got.AsList()
	require.True(t, ok)
	require.Len(t, items, 4)
	for i, want := range []int32{5, 6, 7, 8} {
		assert.True(t, value.Integer(want).Equal(items[i]))
	}
}

func TestExtract_Pruning(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "index out of range", path: "users[3].name"},
		{name: "index on object", path: "meta[0]"},
		{name: "index on scalar", path: "meta.total[0]"},
		{name: "field on scalar", path: "meta.total.value"},
		{name: "empty array", path: "meta.tags"},
		{name: "nested arrays do not fan out twice", path: "matrix.value"},
		{name: "indexed segment is looked up on the array itself", path: "orders.lines[0].sku"},
		{name: "indexed segment after fan out position", path: "users.roles[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extract(t, ordersDoc, tt.path, "string")
			assert.ErrorIs(t, err, ErrPathNotFound)
		})
	}
}

func TestExtract_RootArray(t *testing.T) {
	got, err := extract(t, `[{"id":"a"},{"id":"b"}]`, "id", "list<string>")
	require.NoError(t, err)
	assert.True(t, value.List(value.String("a"), value.String("b")).Equal(got))
}

func TestExtract_Errors(t *testing.T) {
	t.Run("invalid path", func(t *testing.T) {
		for _, p := range []string{"", "$.", "a..b", "a."} {
			_, err := extract(t, ordersDoc, p, "string")
			assert.ErrorIs(t, err, ErrInvalidPath, "path %q", p)
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := extract(t, ordersDoc, "meta.total", "uuid")
		assert.ErrorIs(t, err, value.ErrUnsupportedType)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := extract(t, ordersDoc, "users[0].name", "integer")
		assert.ErrorIs(t, err, value.ErrInvalidFormat)
	})

	t.Run("invalid format inside list", func(t *testing.T) {
		_, err := extract(t, ordersDoc, "users.name", "list<integer>")
		assert.ErrorIs(t, err, value.ErrInvalidFormat)
	})

	t.Run("null as number", func(t *testing.T) {
		for _, typ := range []string{"integer", "long", "float", "double"} {
			_, err := extract(t, ordersDoc, "meta.next", typ)
			assert.ErrorIs(t, err, value.ErrInvalidFormat, "type %s", typ)
		}
	})

	t.Run("null inside list", func(t *testing.T) {
		_, err := extract(t, `{"ids":[1,null,3]}`, "ids", "list<integer>")
		assert.ErrorIs(t, err, value.ErrInvalidFormat)

		got, err := extract(t, `{"ids":[1,null,3]}`, "ids", "list<string>")
		require.NoError(t, err)
		assert.True(t, value.List(value.String("1"), value.String("null"), value.String("3")).Equal(got))
	})

	t.Run("invalid document", func(t *testing.T) {
		_, err := ExtractBytes([]byte(`{"a":`), "a", "string")
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})
}

func TestExtractBytes(t *testing.T) {
	got, err := ExtractBytes([]byte(ordersDoc), "orders[1].id", "integer")
	require.NoError(t, err)
	assert.True(t, value.Integer(11).Equal(got))
}

func TestMatch_ReturnsRawNodes(t *testing.T) {
	path, err := ParsePath("orders.lines")
	require.NoError(t, err)

	matches := Match(gjson.Parse(ordersDoc), path)
	require.Len(t, matches, 3)
	assert.Equal(t, "a", matches[0].Get("sku").String())
	assert.Equal(t, "c", matches[2].Get("sku").String())
}
