package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

const (
	// Dir is the directory, next to the feature file, holding its snapshots.
	Dir = "__snapshots__"
	// Ext is the extension of a snapshot file.
	Ext = ".snap.json"

	fileVersion = 1
)

var (
	ErrMissing  = errors.New("snapshot does not exist (run with --update-snapshots to record it)")
	ErrMismatch = errors.New("snapshot mismatch")
)

// Outcome tells what Match did with the stored snapshot.
type Outcome int

const (
	Matched Outcome = iota
	Created
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "matched"
	}
}

type file struct {
	Version   int            `json:"version"`
	Snapshots map[string]any `json:"snapshots"`
}

// Store reads and writes the snapshot files of a run. It is safe for use
// by scenarios running in parallel.
type Store struct {
	mu     sync.Mutex
	update bool
	logger *slog.Logger
	files  map[string]*file
}

type Option func(*Store)

// WithUpdate makes Match record the actual body instead of failing when the
// snapshot is missing or differs.
func WithUpdate(update bool) Option {
	return func(s *Store) {
		s.update = update
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{files: make(map[string]*file)}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// PathFor returns the snapshot file of a feature file:
// users.feature maps to __snapshots__/users.snap.json.
func PathFor(featurePath string) string {
	base := filepath.Base(featurePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(featurePath), Dir, name+Ext)
}

// Key identifies a snapshot inside its file.
func Key(scenario, name string) string {
	return scenario + "::" + name
}

// Match compares body with the snapshot stored under scenario and name for
// the given feature file. JSON bodies are compared structurally, anything
// else as text.
func (s *Store) Match(featurePath, scenario, name string, body []byte) (Outcome, error) {
	actual := decode(body)
	path := PathFor(featurePath)
	key := Key(scenario, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(path)
	if err != nil {
		return Matched, fmt.Errorf("loading snapshots %s: %w", path, err)
	}

	expected, ok := f.Snapshots[key]
	switch {
	case ok && equal(expected, actual):
		return Matched, nil
	case !s.update && !ok:
		return Matched, fmt.Errorf("%w: %s", ErrMissing, key)
	case !s.update:
		return Matched, fmt.Errorf("%w at %s: expected %s, got %s",
			ErrMismatch, firstDiff(expected, actual, "$"), brief(expected), brief(actual))
	}

	f.Snapshots[key] = actual
	if err := s.save(path, f); err != nil {
		return Matched, fmt.Errorf("saving snapshots %s: %w", path, err)
	}
	if ok {
		s.logger.Info("snapshot updated", "file", path, "key", key)
		return Updated, nil
	}
	s.logger.Info("snapshot created", "file", path, "key", key)
	return Created, nil
}

func (s *Store) load(path string) (*file, error) {
	if f, ok := s.files[path]; ok {
		return f, nil
	}
	f := &file{Version: fileVersion, Snapshots: make(map[string]any)}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, f); err != nil {
			return nil, err
		}
		if f.Snapshots == nil {
			f.Snapshots = make(map[string]any)
		}
	}
	s.files[path] = f
	return f, nil
}

func (s *Store) save(path string, f *file) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func decode(body []byte) any {
	if gjson.ValidBytes(body) {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			return v
		}
	}
	return string(body)
}

func equal(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// normalize gives values read back from a snapshot file and values decoded
// from a body the same Go types.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// firstDiff returns the JSON path of the first difference between a and b.
func firstDiff(a, b any, path string) string {
	a, b = normalize(a), normalize(b)
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return path
		}
		keys := make([]string, 0, len(av)+len(bv))
		for k := range av {
			keys = append(keys, k)
		}
		for k := range bv {
			if _, ok := av[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !reflect.DeepEqual(av[k], bv[k]) {
				return firstDiff(av[k], bv[k], path+"."+k)
			}
		}
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return path
		}
		for i := range av {
			if !reflect.DeepEqual(av[i], bv[i]) {
				return firstDiff(av[i], bv[i], fmt.Sprintf("%s[%d]", path, i))
			}
		}
	}
	return path
}

func brief(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	if len(data) > 80 {
		return string(data[:77]) + "..."
	}
	return string(data)
}
