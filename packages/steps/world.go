package steps

import (
	"log/slog"

	"github.com/abdul-hamid-achik/hitstep/packages/builtin"
	"github.com/abdul-hamid-achik/hitstep/packages/capture"
	"github.com/abdul-hamid-achik/hitstep/packages/core/env"
	"github.com/abdul-hamid-achik/hitstep/packages/db"
	"github.com/abdul-hamid-achik/hitstep/packages/http"
	"github.com/abdul-hamid-achik/hitstep/packages/params"
	"github.com/abdul-hamid-achik/hitstep/packages/snapshot"
)

// World is the state shared by the steps of one scenario.
type World struct {
	Context      *env.Context
	Resolver     *env.Resolver
	Client       *http.Client
	Generator    *builtin.Generator
	Logger       *slog.Logger
	SchemaDir    string
	PreserveCase bool

	// FeaturePath and Scenario locate the snapshots of the scenario.
	FeaturePath string
	Scenario    string
	Snapshots   *snapshot.Store

	Request     *http.Request
	Response    *http.Response
	DB          *db.Client
	QueryResult *db.QueryResult
}

type WorldOption func(*World)

func WithLogger(l *slog.Logger) WorldOption {
	return func(w *World) {
		w.Logger = l
	}
}

func WithSchemaDir(dir string) WorldOption {
	return func(w *World) {
		w.SchemaDir = dir
	}
}

func WithPreserveCase(preserve bool) WorldOption {
	return func(w *World) {
		w.PreserveCase = preserve
	}
}

// WithSnapshots sets the store used by the snapshot step and the feature
// file and scenario its keys are scoped to.
func WithSnapshots(store *snapshot.Store, featurePath, scenario string) WorldOption {
	return func(w *World) {
		w.Snapshots = store
		w.FeaturePath = featurePath
		w.Scenario = scenario
	}
}

func WithGenerator(g *builtin.Generator) WorldOption {
	return func(w *World) {
		w.Generator = g
	}
}

func NewWorld(ctx *env.Context, client *http.Client, opts ...WorldOption) *World {
	w := &World{
		Context: ctx,
		Client:  client,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.Logger == nil {
		w.Logger = slog.Default()
	}
	if w.Client == nil {
		w.Client = http.NewClient()
	}
	if w.Generator == nil {
		w.Generator = builtin.NewGenerator()
	}
	if w.Snapshots == nil {
		w.Snapshots = snapshot.NewStore(snapshot.WithLogger(w.Logger))
	}
	w.Resolver = env.NewResolver(ctx,
		env.WithLogger(w.Logger),
		env.WithFunctions(builtin.NewRegistry(builtin.WithGenerator(w.Generator))),
	)
	return w
}

// Close releases the database connection opened by the scenario, if any.
func (w *World) Close() error {
	if w.DB == nil {
		return nil
	}
	err := w.DB.Close()
	w.DB = nil
	w.QueryResult = nil
	return err
}

func (w *World) paramOptions() []params.Option {
	return []params.Option{
		params.WithPreserveCase(w.PreserveCase),
		params.WithLogger(w.Logger),
	}
}

func (w *World) extractor() (*capture.Extractor, error) {
	if w.Response == nil {
		return nil, ErrNoResponse
	}
	return capture.NewExtractor(w.Response,
		capture.WithLogger(w.Logger),
		capture.WithPreserveCase(w.PreserveCase),
	), nil
}
