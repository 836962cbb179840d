package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hitstep/packages/core/config"
	"github.com/abdul-hamid-achik/hitstep/packages/core/parser"
	"github.com/abdul-hamid-achik/hitstep/packages/core/runner"
	"github.com/abdul-hamid-achik/hitstep/packages/coverage"
	"github.com/abdul-hamid-achik/hitstep/packages/logging"
	"github.com/abdul-hamid-achik/hitstep/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>",
	Short: "Run feature files against an API",
	Long: `Run the scenarios defined in .feature files.

Examples:
  hitstep run features/users.feature
  hitstep run features/ --env staging
  hitstep run features/ --tags smoke,regression
  hitstep run features/ --name "Create*"
  hitstep run features/ --var token=abc --output junit --output-file report.xml
  hitstep run features/ --wait-for http://localhost:8080/health`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	envFlag          string
	envFileFlag      string
	configFlag       string
	nameFlag         string
	tagsFlag         string
	varFlags         []string
	verboseFlag      int // 0=off, 1=-v, 2=-vv
	quietFlag        bool
	noColorFlag      bool
	outputFlag       string
	outputFileFlag   string
	logFormatFlag    string
	bailFlag         bool
	timeoutFlag      string
	dryRunFlag       bool
	parallelFlag     bool
	concurrencyFlag  int
	watchFlag        bool
	proxyFlag        string
	insecureFlag     bool
	rateFlag         float64
	preserveCaseFlag bool
	updateSnapsFlag  bool
	schemaDirFlag    string
	waitForFlag      string
	waitTimeoutFlag  string
	coverageFlag     string
)

func init() {
	// Core flags
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("HITSTEP_ENV", ""), "Environment to use (default: config defaultEnvironment) (env: HITSTEP_ENV)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("HITSTEP_ENV_FILE", ""), "Path to .env file (default: .env next to each feature) (env: HITSTEP_ENV_FILE)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("HITSTEP_CONFIG", ""), "Path to config file (env: HITSTEP_CONFIG)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only scenarios matching name pattern (supports * prefix/suffix)")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("HITSTEP_TAGS", ""), "Run only scenarios with any of these tags (comma-separated) (env: HITSTEP_TAGS)")
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Set a variable for every scenario (key=value, repeatable)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v lists steps, -vv adds debug logs)")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("HITSTEP_QUIET", false), "Suppress all output except errors (env: HITSTEP_QUIET)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITSTEP_NO_COLOR", false), "Disable colored output (env: HITSTEP_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITSTEP_OUTPUT", ""), "Output format: "+strings.Join(output.Formats(), ", ")+" (env: HITSTEP_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("HITSTEP_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: HITSTEP_OUTPUT_FILE)")
	runCmd.Flags().StringVar(&coverageFlag, "coverage", getEnvString("HITSTEP_COVERAGE", ""), "Report which operations of this OpenAPI document were exercised (env: HITSTEP_COVERAGE)")
	runCmd.Flags().StringVar(&logFormatFlag, "log-format", getEnvString("HITSTEP_LOG_FORMAT", ""), "Log format on stderr: text, json (env: HITSTEP_LOG_FORMAT)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("HITSTEP_BAIL", false), "Stop on first failure (env: HITSTEP_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HITSTEP_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m) (env: HITSTEP_TIMEOUT)")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Parse and show what would run without executing")
	runCmd.Flags().BoolVarP(&parallelFlag, "parallel", "p", getEnvBool("HITSTEP_PARALLEL", false), "Run the scenarios of a feature in parallel (env: HITSTEP_PARALLEL)")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("HITSTEP_CONCURRENCY", 0), "Number of concurrent scenarios when running in parallel (env: HITSTEP_CONCURRENCY)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch files for changes and re-run")
	runCmd.Flags().BoolVar(&preserveCaseFlag, "preserve-case", getEnvBool("HITSTEP_PRESERVE_CASE", false), "Keep the case of data table keys and values (env: HITSTEP_PRESERVE_CASE)")
	runCmd.Flags().BoolVarP(&updateSnapsFlag, "update-snapshots", "u", false, "Record missing or changed response snapshots instead of failing")
	runCmd.Flags().StringVar(&schemaDirFlag, "schema-dir", getEnvString("HITSTEP_SCHEMA_DIR", ""), "Directory holding JSON schemas (env: HITSTEP_SCHEMA_DIR)")
	runCmd.Flags().StringVar(&waitForFlag, "wait-for", getEnvString("HITSTEP_WAIT_FOR", ""), "URL that must return 200 before the run starts (env: HITSTEP_WAIT_FOR)")
	runCmd.Flags().StringVar(&waitTimeoutFlag, "wait-timeout", getEnvString("HITSTEP_WAIT_TIMEOUT", "30s"), "How long to wait for --wait-for (env: HITSTEP_WAIT_TIMEOUT)")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITSTEP_PROXY", ""), "Proxy URL for HTTP requests (env: HITSTEP_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITSTEP_INSECURE", false), "Disable SSL certificate validation (env: HITSTEP_INSECURE)")
	runCmd.Flags().Float64Var(&rateFlag, "rate", getEnvFloat("HITSTEP_RATE", 0), "Maximum requests per second, 0 for unlimited (env: HITSTEP_RATE)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// flagConfig turns the flags that were set, on the command line or through
// their HITSTEP_* variable, into a config layered over the config file.
func flagConfig(cmd *cobra.Command) (*config.Config, error) {
	set := func(name, envKey string) bool {
		return cmd.Flags().Changed(name) || os.Getenv(envKey) != ""
	}

	cfg := &config.Config{
		DefaultEnvironment: envFlag,
		Proxy:              proxyFlag,
		SchemaDir:          schemaDirFlag,
		LogFormat:          logFormatFlag,
		Concurrency:        concurrencyFlag,
		RateLimit:          rateFlag,
	}
	if outputFlag != "" {
		cfg.Reporters = []string{strings.ToLower(outputFlag)}
	}
	if timeoutFlag != "" {
		timeout, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		cfg.Timeout = int(timeout.Milliseconds())
	}
	if set("insecure", "HITSTEP_INSECURE") {
		cfg.ValidateSSL = config.BoolPtr(!insecureFlag)
	}
	if set("bail", "HITSTEP_BAIL") {
		cfg.Bail = config.BoolPtr(bailFlag)
	}
	if set("parallel", "HITSTEP_PARALLEL") {
		cfg.Parallel = config.BoolPtr(parallelFlag)
	}
	if set("preserve-case", "HITSTEP_PRESERVE_CASE") {
		cfg.PreserveCase = config.BoolPtr(preserveCaseFlag)
	}
	if set("no-color", "HITSTEP_NO_COLOR") {
		cfg.NoColor = config.BoolPtr(noColorFlag)
	}
	if verboseFlag > 0 {
		cfg.Verbose = config.BoolPtr(true)
	}
	return cfg, nil
}

func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --var %q: expected key=value", pair)
		}
		vars[strings.TrimSpace(key)] = val
	}
	return vars, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runnerConfig(cfg *config.Config, vars map[string]string, logger *slog.Logger) *runner.Config {
	environment := envFlag
	if environment == "" {
		environment = cfg.DefaultEnvironment
	}
	return &runner.Config{
		Environment:     environment,
		EnvFile:         envFileFlag,
		Environments:    cfg.Environments,
		Variables:       vars,
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.TimeoutDuration(),
		FollowRedirect:  cfg.GetFollowRedirects(),
		MaxRedirects:    cfg.MaxRedirects,
		Insecure:        !cfg.GetValidateSSL(),
		Proxy:           cfg.Proxy,
		Headers:         cfg.Headers,
		RateLimit:       cfg.RateLimit,
		SchemaDir:       cfg.SchemaDir,
		PreserveCase:    cfg.GetPreserveCase(),
		UpdateSnapshots: updateSnapsFlag,
		Bail:            cfg.GetBail(),
		NameFilter:      nameFlag,
		TagsFilter:      splitList(tagsFlag),
		Parallel:        cfg.GetParallel(),
		Concurrency:     cfg.Concurrency,
		Logger:          logger,
	}
}

type runTotals struct {
	passed, failed, skipped, errors int
	duration                        time.Duration
}

func runCommand(cmd *cobra.Command, args []string) error {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	overrides, err := flagConfig(cmd)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}
	cfg := fileConfig.Merge(overrides)

	vars, err := parseVars(varFlags)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogFormat, logging.Level(verboseFlag > 1, quietFlag))
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	// Setup output writer
	var outWriter io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		outWriter = f
	}

	format := output.FormatConsole
	if len(cfg.Reporters) > 0 {
		format = cfg.Reporters[0]
	}
	newFormatter := func() (output.Formatter, error) {
		return output.New(format, outWriter,
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(cfg.GetNoColor() || quietFlag),
		)
	}
	formatter, err := newFormatter()
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	if !quietFlag {
		formatter.FormatHeader(version)
	}

	files, err := collectFiles(args)
	if err != nil {
		formatter.FormatError(err)
		return &ExitError{Code: ExitUsageError, Err: err}
	}
	if len(files) == 0 {
		return exitErrorf(ExitUsageError, "no .feature files found")
	}

	var analyzer *coverage.Analyzer
	if coverageFlag != "" {
		if analyzer, err = coverage.Load(coverageFlag); err != nil {
			return &ExitError{Code: ExitConfigError, Err: err}
		}
	}

	r := runner.NewRunner(runnerConfig(cfg, vars, logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if waitForFlag != "" {
		waitTimeout, err := time.ParseDuration(waitTimeoutFlag)
		if err != nil {
			return exitErrorf(ExitUsageError, "invalid wait timeout %q: %w", waitTimeoutFlag, err)
		}
		if err := r.WaitForService(ctx, &runner.WaitFor{URL: waitForFlag, Timeout: waitTimeout}); err != nil {
			return &ExitError{Code: ExitNetworkError, Err: err}
		}
	}

	runTests := func(formatter output.Formatter) runTotals {
		var totals runTotals
		startTime := time.Now()

		for _, file := range files {
			if ctx.Err() != nil {
				break
			}

			if dryRunFlag {
				dryRun(cmd.OutOrStdout(), file)
				continue
			}

			result, err := r.RunFile(ctx, file)
			if err != nil {
				formatter.FormatError(fmt.Errorf("%s: %w", file, err))
				totals.errors++
				if cfg.GetBail() {
					break
				}
				continue
			}

			formatter.FormatResult(result)
			totals.passed += result.Passed
			totals.failed += result.Failed
			totals.skipped += result.Skipped

			if cfg.GetBail() && result.Failed > 0 {
				break
			}
		}

		totals.duration = time.Since(startTime)

		if console, ok := formatter.(*output.ConsoleFormatter); ok && cfg.GetVerbose() && !dryRunFlag {
			console.FormatLatency(r.Metrics().Endpoints())
		}
		if analyzer != nil && !dryRunFlag {
			report := analyzer.Analyze(coverageRequests(r.Metrics().Endpoints()))
			w := cmd.ErrOrStderr()
			if _, ok := formatter.(*output.ConsoleFormatter); ok && outputFileFlag == "" {
				w = cmd.OutOrStdout()
			}
			report.WriteConsole(w, cfg.GetNoColor())
		}
		return totals
	}

	totals := runTests(formatter)

	// Flush output for formatters that accumulate results
	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(totals.duration); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	if !watchFlag {
		return exitStatus(totals)
	}

	return watch(ctx, cmd, args, files, func() {
		formatter, err := newFormatter()
		if err != nil {
			return
		}
		totals := runTests(formatter)
		if flushable, ok := formatter.(output.Flushable); ok {
			_ = flushable.Flush(totals.duration)
		}
	})
}

// coverageRequests turns the "METHOD endpoint" latency keys into requests.
func coverageRequests(endpoints []runner.EndpointSummary) []coverage.Request {
	reqs := make([]coverage.Request, 0, len(endpoints))
	for _, e := range endpoints {
		method, path, ok := strings.Cut(e.Name, " ")
		if !ok {
			continue
		}
		reqs = append(reqs, coverage.Request{Method: method, Path: path, Count: int(e.Count)})
	}
	return reqs
}

func exitStatus(t runTotals) error {
	switch {
	case t.failed > 0:
		return exitErrorf(ExitTestFailure, "%d scenario(s) failed", t.failed)
	case t.errors > 0:
		return exitErrorf(ExitParseError, "%d file(s) could not be run", t.errors)
	}
	return nil
}

func dryRun(w io.Writer, file string) {
	f, err := parser.ParseFile(file)
	if err != nil {
		fmt.Fprintf(w, "Would run: %s (parse error: %v)\n", file, err)
		return
	}
	fmt.Fprintf(w, "Would run: %s (%d scenarios)\n", file, len(f.Scenarios))
}

// watch re-runs on every write to a feature file until ctx is cancelled.
func watch(ctx context.Context, cmd *cobra.Command, args, files []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	for _, file := range files {
		dir := filepath.Dir(file)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to watch %s: %v\n", dir, err)
			}
			watchedDirs[dir] = true
		}
	}

	// Also watch the original args if they're directories
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() && !watchedDirs[path] {
					_ = watcher.Add(path)
					watchedDirs[path] = true
				}
				return nil
			})
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Write) && isFeatureFile(event.Name) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				name := event.Name
				debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running...\n\n", name)
					rerun()
					fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if !errors.Is(err, context.Canceled) {
				fmt.Fprintf(cmd.ErrOrStderr(), "watcher error: %v\n", err)
			}
		}
	}
}
