package snapshot

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFor(t *testing.T) {
	assert.Equal(t,
		filepath.Join("features", Dir, "users.snap.json"),
		PathFor(filepath.Join("features", "users.feature")))
}

func TestStore_Match(t *testing.T) {
	dir := t.TempDir()
	feature := filepath.Join(dir, "users.feature")
	body := []byte(`{"id": 1, "name": "Ada", "roles": ["admin"]}`)

	_, err := NewStore().Match(feature, "Get user", "user", body)
	assert.ErrorIs(t, err, ErrMissing)

	outcome, err := NewStore(WithUpdate(true)).Match(feature, "Get user", "user", body)
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.FileExists(t, PathFor(feature))

	// fresh store reads the file back; key order and spacing do not matter
	outcome, err = NewStore().Match(feature, "Get user", "user",
		[]byte(`{"roles":["admin"],"name":"Ada","id":1}`))
	require.NoError(t, err)
	assert.Equal(t, Matched, outcome)

	_, err = NewStore().Match(feature, "Get user", "user",
		[]byte(`{"id": 1, "name": "Grace", "roles": ["admin"]}`))
	require.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), "$.name")

	outcome, err = NewStore(WithUpdate(true)).Match(feature, "Get user", "user",
		[]byte(`{"id": 1, "name": "Grace", "roles": ["admin"]}`))
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)
}

func TestStore_MatchText(t *testing.T) {
	feature := filepath.Join(t.TempDir(), "health.feature")
	s := NewStore(WithUpdate(true))

	_, err := s.Match(feature, "Health", "body", []byte("OK"))
	require.NoError(t, err)

	_, err = NewStore().Match(feature, "Health", "body", []byte("DOWN"))
	require.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), `expected "OK", got "DOWN"`)
}

func TestStore_KeysAreScopedByScenario(t *testing.T) {
	feature := filepath.Join(t.TempDir(), "users.feature")
	s := NewStore(WithUpdate(true))

	_, err := s.Match(feature, "A", "body", []byte(`{"n":1}`))
	require.NoError(t, err)
	outcome, err := s.Match(feature, "B", "body", []byte(`{"n":2}`))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)

	data, err := os.ReadFile(PathFor(feature))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"A::body"`)
	assert.Contains(t, string(data), `"B::body"`)
}

func TestStore_Concurrent(t *testing.T) {
	feature := filepath.Join(t.TempDir(), "users.feature")
	s := NewStore(WithUpdate(true))

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := s.Match(feature, "Scenario", name, []byte(`{"ok":true}`))
			assert.NoError(t, err)
		}(name)
	}
	wg.Wait()

	for _, name := range []string{"a", "b", "c", "d"} {
		outcome, err := NewStore().Match(feature, "Scenario", name, []byte(`{"ok":true}`))
		require.NoError(t, err)
		assert.Equal(t, Matched, outcome)
	}
}

func TestFirstDiff(t *testing.T) {
	tests := []struct {
		name     string
		a, b     any
		expected string
	}{
		{"nested key", map[string]any{"a": map[string]any{"b": 1}}, map[string]any{"a": map[string]any{"b": 2}}, "$.a.b"},
		{"array item", []any{1, 2}, []any{1, 3}, "$[1]"},
		{"array length", []any{1}, []any{1, 2}, "$"},
		{"missing key", map[string]any{"a": 1}, map[string]any{"a": 1, "z": 2}, "$.z"},
		{"type change", map[string]any{"a": 1}, "text", "$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, firstDiff(tt.a, tt.b, "$"))
		})
	}
}
