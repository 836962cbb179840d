package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abdul-hamid-achik/hitstep/packages/core/env"
	"github.com/abdul-hamid-achik/hitstep/packages/core/parser"
	"github.com/abdul-hamid-achik/hitstep/packages/http"
	"github.com/abdul-hamid-achik/hitstep/packages/snapshot"
	"github.com/abdul-hamid-achik/hitstep/packages/steps"
)

const (
	// DefaultConcurrency is the default number of concurrent scenarios in parallel mode
	DefaultConcurrency = 5
	// SkipTag marks a scenario that should not run
	SkipTag = "skip"
	// VariablePrefix selects OS environment variables seeded into every scenario
	VariablePrefix = "HITSTEP_VAR_"
)

type Runner struct {
	client   *http.Client
	registry *steps.Registry
	config   *Config
	logger   *slog.Logger
	metrics  *Metrics
	snaps    *snapshot.Store
	before   []Hook
	after    []Hook
}

type Config struct {
	Environment     string
	EnvFile         string
	Environments    map[string]map[string]any
	Variables       map[string]string
	BaseURL         string
	Timeout         time.Duration
	FollowRedirect  bool
	MaxRedirects    int
	Insecure        bool
	Proxy           string
	Headers         map[string]string
	RateLimit       float64
	SchemaDir       string
	PreserveCase    bool
	// UpdateSnapshots records missing or changed response snapshots.
	UpdateSnapshots bool
	Bail            bool
	NameFilter      string
	TagsFilter      []string
	Parallel        bool
	Concurrency     int
	Logger          *slog.Logger
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		registry: steps.Default(),
		config:   cfg,
		logger:   logger,
		metrics:  NewMetrics(),
		snaps:    snapshot.NewStore(snapshot.WithUpdate(cfg.UpdateSnapshots), snapshot.WithLogger(logger)),
	}

	clientOpts := []http.ClientOption{
		http.WithFollowRedirects(cfg.FollowRedirect),
		http.WithLogger(logger),
		http.WithObserver(r.observe),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	if cfg.MaxRedirects > 0 {
		clientOpts = append(clientOpts, http.WithMaxRedirects(cfg.MaxRedirects))
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, http.WithValidateSSL(false))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, http.WithDefaultHeaders(cfg.Headers))
	}
	if cfg.RateLimit > 0 {
		clientOpts = append(clientOpts, http.WithRateLimit(cfg.RateLimit))
	}
	r.client = http.NewClient(clientOpts...)

	return r
}

// Registry exposes the step registry so callers can add their own steps.
func (r *Runner) Registry() *steps.Registry {
	return r.registry
}

// Metrics returns the latency of every request sent by this runner.
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}

func (r *Runner) observe(req *http.Request, resp *http.Response) {
	r.metrics.Record(req.Method+" "+req.Endpoint, resp.Duration)
}

type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	StatusSkipped
	StatusUndefined
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusUndefined:
		return "undefined"
	}
	return "unknown"
}

type StepResult struct {
	Keyword  string
	Text     string
	Line     int
	Status   Status
	Duration time.Duration
	Error    error
}

type ScenarioResult struct {
	Name       string
	Line       int
	Tags       []string
	Passed     bool
	Skipped    bool
	SkipReason string
	Duration   time.Duration
	Steps      []*StepResult
	Response   *http.Response
	Error      error
}

type RunResult struct {
	File      string
	Feature   string
	Scenarios []*ScenarioResult
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
	Latency   LatencySummary
}

func (r *Runner) RunFile(ctx context.Context, path string) (*RunResult, error) {
	feature, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}
	return r.RunFeature(ctx, feature)
}

// RunFeature runs every selected scenario of feature. Each scenario gets a
// fresh Context seeded with the environment variables.
func (r *Runner) RunFeature(ctx context.Context, feature *parser.Feature) (*RunResult, error) {
	vars, err := r.variables(feature.Path)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	start := time.Now()
	result := &RunResult{
		File:    feature.Path,
		Feature: feature.Name,
	}
	latency := NewMetrics()

	// slots keeps results in document order; scenarios not run after a
	// bail stay nil and are left out.
	slots := make([]*ScenarioResult, len(feature.Scenarios))
	var selected []int
	for i, sc := range feature.Scenarios {
		if reason, skip := r.skipReason(feature, sc); skip {
			slots[i] = &ScenarioResult{
				Name:       sc.Name,
				Line:       sc.Line,
				Tags:       sc.AllTags(feature),
				Skipped:    true,
				SkipReason: reason,
			}
			result.Skipped++
			continue
		}
		selected = append(selected, i)
	}

	if r.config.Parallel {
		r.runParallel(ctx, feature, selected, slots, vars, latency)
	} else {
		for _, i := range selected {
			slots[i] = r.runScenario(ctx, feature, feature.Scenarios[i], vars, latency)
			if !slots[i].Passed && r.config.Bail {
				break
			}
		}
	}

	for _, sr := range slots {
		if sr == nil {
			continue
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Skipped {
			continue
		}
		if sr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	result.Duration = time.Since(start)
	result.Latency = latency.Summary()
	return result, nil
}

// runParallel runs the selected scenarios with bounded concurrency and
// stores each result in its document slot. With Bail set, scenarios not yet
// started when one fails are not run.
func (r *Runner) runParallel(ctx context.Context, feature *parser.Feature, selected []int, slots []*ScenarioResult, vars map[string]string, latency *Metrics) {
	concurrency := r.config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var (
		wg     sync.WaitGroup
		bailed atomic.Bool
	)
	sem := make(chan struct{}, concurrency)

	for _, i := range selected {
		sem <- struct{}{} // acquire semaphore
		if bailed.Load() {
			<-sem
			break
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }() // release semaphore

			sr := r.runScenario(ctx, feature, feature.Scenarios[idx], vars, latency)
			slots[idx] = sr
			if !sr.Passed && r.config.Bail {
				bailed.Store(true)
			}
		}(i)
	}

	wg.Wait()
}

// runScenario runs the Background steps followed by the scenario's own.
// After the first failure the remaining steps are reported as skipped.
func (r *Runner) runScenario(ctx context.Context, feature *parser.Feature, sc *parser.Scenario, vars map[string]string, latency *Metrics) (result *ScenarioResult) {
	start := time.Now()
	result = &ScenarioResult{
		Name: sc.Name,
		Line: sc.Line,
		Tags: sc.AllTags(feature),
	}

	world := r.newWorld(vars, feature, sc)
	defer func() {
		if err := r.finishScenario(ctx, sc, world); err != nil && result.Error == nil {
			result.Error = err
			result.Passed = false
		}
		result.Duration = time.Since(start)
	}()

	var all []*parser.Step
	if feature.Background != nil {
		all = append(all, feature.Background.Steps...)
	}
	all = append(all, sc.Steps...)

	failed := false
	if err := r.startScenario(ctx, sc, world); err != nil {
		failed = true
		result.Error = err
	}

	for _, step := range all {
		sr := &StepResult{
			Keyword: step.Keyword,
			Text:    step.Text,
			Line:    step.Line,
		}
		result.Steps = append(result.Steps, sr)

		if failed {
			sr.Status = StatusSkipped
			continue
		}
		if err := ctx.Err(); err != nil {
			failed = true
			sr.Status = StatusSkipped
			result.Error = err
			continue
		}

		prev := world.Response
		stepStart := time.Now()
		err := r.registry.Run(ctx, world, step)
		sr.Duration = time.Since(stepStart)

		if world.Response != nil && world.Response != prev && world.Request != nil {
			latency.Record(world.Request.Method+" "+world.Request.Endpoint, world.Response.Duration)
		}

		if err != nil {
			failed = true
			sr.Error = err
			sr.Status = StatusFailed
			if errors.Is(err, steps.ErrUndefinedStep) {
				sr.Status = StatusUndefined
			}
			result.Error = err
			r.logger.Debug("step failed", "scenario", sc.Name, "line", step.Line, "error", err)
			continue
		}
		sr.Status = StatusPassed
	}

	result.Passed = !failed
	result.Response = world.Response
	return result
}

func (r *Runner) skipReason(feature *parser.Feature, sc *parser.Scenario) (string, bool) {
	if sc.HasTag(feature, SkipTag) {
		return "tagged @" + SkipTag, true
	}
	if r.config.NameFilter != "" && !matchesPattern(sc.Name, r.config.NameFilter) {
		return "filtered out", true
	}
	if len(r.config.TagsFilter) > 0 && !hasAnyTag(sc.AllTags(feature), r.config.TagsFilter) {
		return "filtered out", true
	}
	return "", false
}

// variables collects the values seeded into every scenario: the selected
// config environment, the .env file (explicit or next to the feature) and
// HITSTEP_VAR_* OS variables, later sources winning.
func (r *Runner) variables(featurePath string) (map[string]string, error) {
	dotEnv := r.config.EnvFile
	if dotEnv == "" && featurePath != "" {
		candidate := filepath.Join(filepath.Dir(featurePath), ".env")
		if _, err := os.Stat(candidate); err == nil {
			dotEnv = candidate
		}
	}

	environment, err := env.LoadEnvironment(r.config.Environment, r.config.Environments, dotEnv)
	if err != nil {
		return nil, err
	}

	return env.MergeVariables(environment.Variables, env.LoadSystemEnv(VariablePrefix), r.config.Variables), nil
}

// Check reports every step in feature that no definition matches.
func (r *Runner) Check(feature *parser.Feature) error {
	var errs []error
	check := func(list []*parser.Step) {
		for _, step := range list {
			if _, _, err := r.registry.Match(step.Text); err != nil {
				errs = append(errs, &steps.StepError{Step: step.String(), Line: step.Line, Err: err})
			}
		}
	}
	if feature.Background != nil {
		check(feature.Background.Steps)
	}
	for _, sc := range feature.Scenarios {
		check(sc.Steps)
	}
	return errors.Join(errs...)
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if pattern[0] == '*' && pattern[len(pattern)-1] == '*' && len(pattern) > 1 {
		return strings.Contains(name, pattern[1:len(pattern)-1])
	}

	if pattern[0] == '*' {
		return strings.HasSuffix(name, pattern[1:])
	}

	if pattern[len(pattern)-1] == '*' {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}

	return name == pattern
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		filter = strings.TrimPrefix(strings.TrimSpace(filter), "@")
		for _, tag := range tags {
			if strings.EqualFold(tag, filter) {
				return true
			}
		}
	}
	return false
}
