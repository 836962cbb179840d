package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hitstep/packages/core/env"
	"github.com/abdul-hamid-achik/hitstep/packages/core/parser"
	"github.com/abdul-hamid-achik/hitstep/packages/steps"
	"github.com/abdul-hamid-achik/hitstep/packages/value"
)

// Hook runs around every scenario with the scenario's World.
type Hook func(ctx context.Context, sc *parser.Scenario, w *steps.World) error

// BeforeScenario registers a hook that runs after the scenario Context is
// seeded and before the first step. A failing hook fails the scenario and
// skips all of its steps.
func (r *Runner) BeforeScenario(h Hook) {
	r.before = append(r.before, h)
}

// AfterScenario registers a hook that runs after the last step, whether the
// scenario passed or not.
func (r *Runner) AfterScenario(h Hook) {
	r.after = append(r.after, h)
}

// newWorld builds the state for one scenario. Variables are stored under
// their own name and, since table values are lower-cased by default, under
// the lower-cased name too.
func (r *Runner) newWorld(vars map[string]string, feature *parser.Feature, sc *parser.Scenario) *steps.World {
	ctx := env.NewContext()
	env.Seed(ctx, vars)
	if !r.config.PreserveCase {
		lowered := make(map[string]string, len(vars))
		for k, v := range vars {
			lowered[strings.ToLower(k)] = v
		}
		env.Seed(ctx, lowered)
	}
	if r.config.BaseURL != "" {
		if _, ok := ctx.Get(env.KeyBaseURL); !ok {
			ctx.Set(env.KeyBaseURL, value.String(r.config.BaseURL))
		}
	}

	opts := []steps.WorldOption{
		steps.WithLogger(r.logger),
		steps.WithPreserveCase(r.config.PreserveCase),
		steps.WithSnapshots(r.snaps, feature.Path, sc.Name),
	}
	if r.config.SchemaDir != "" {
		opts = append(opts, steps.WithSchemaDir(r.config.SchemaDir))
	}
	return steps.NewWorld(ctx, r.client, opts...)
}

func (r *Runner) startScenario(ctx context.Context, sc *parser.Scenario, w *steps.World) error {
	for _, hook := range r.before {
		if err := hook(ctx, sc, w); err != nil {
			return fmt.Errorf("before hook failed: %w", err)
		}
	}
	return nil
}

// finishScenario runs every after hook, even when one fails, then clears the
// Context and releases the database connection.
func (r *Runner) finishScenario(ctx context.Context, sc *parser.Scenario, w *steps.World) error {
	var errs []error
	for _, hook := range r.after {
		if err := hook(ctx, sc, w); err != nil {
			errs = append(errs, fmt.Errorf("after hook failed: %w", err))
		}
	}

	w.Context.Reset()
	if err := w.Close(); err != nil {
		r.logger.Warn("closing database", "scenario", sc.Name, "error", err)
	}
	return errors.Join(errs...)
}
