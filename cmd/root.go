// Package cmd provides the stixpat command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stixpattern/cache"
	"stixpattern/config"
	"stixpattern/metrics"
	"stixpattern/pattern"
	"stixpattern/semantic"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

const defaultTimeout = 5 * time.Minute // Default context timeout for CLI operations

// Output formats accepted by --output.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	configFile  string
	output      string
	noColor     bool
	quiet       bool
	metricsFile string
	logLevel    string
}

// app is the state built once per invocation in PersistentPreRunE.
type app struct {
	flags   globalFlags
	cfg     *config.Config
	logger  *zap.SugaredLogger
	cache   *cache.PatternCache
	checker *semantic.Checker
}

// NewRootCmd creates the stixpat command with all subcommands.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "stixpat",
		Short: "Parse and inspect STIX 2.1 patterns",
		Long: `stixpat parses STIX Patterning Language expressions, reports located
syntax errors, runs semantic checks and extracts indicators of compromise.

It reads single patterns from the command line, pattern lists from files
and whole STIX bundles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.finish()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.configFile, "config", "", "Config file path (default ./stixpat.yaml)")
	flags.StringVarP(&a.flags.output, "output", "o", "", "Output format: text, json or yaml")
	flags.BoolVar(&a.flags.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&a.flags.quiet, "quiet", "q", false, "Suppress non-essential output")
	flags.StringVar(&a.flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	flags.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(newParseCmd(a))
	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newIOCsCmd(a))
	root.AddCommand(newMatchCmd(a))
	root.AddCommand(newBundleCmd(a))

	return root
}

// init loads configuration and builds the shared services.
func (a *app) init(cmd *cobra.Command) error {
	overrides := map[string]interface{}{}
	flags := cmd.Flags()
	if flags.Changed("output") {
		overrides["output.format"] = a.flags.output
	}
	if flags.Changed("log-level") {
		overrides["log.level"] = a.flags.logLevel
	}
	if flags.Changed("no-color") && a.flags.noColor {
		overrides["output.color"] = false
	}

	cfg, err := config.LoadConfig(a.flags.configFile, overrides)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.flags.output = cfg.Output.Format
	if !cfg.Output.Color {
		color.NoColor = true
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	a.logger = logger.Sugar()

	a.cache, err = cache.New(cfg.Cache.Size, a.logger)
	if err != nil {
		return err
	}

	opts := []semantic.Option{semantic.WithRegexTimeout(cfg.Semantic.RegexTimeout)}
	if cfg.Semantic.KnownTypesOnly {
		opts = append(opts, semantic.WithKnownTypesOnly())
	}
	a.checker = semantic.NewChecker(opts...)

	a.logger.Debugw("Configuration loaded",
		"output", cfg.Output.Format,
		"cache_size", cfg.Cache.Size,
		"bundle_workers", cfg.Bundle.Workers)
	return nil
}

func (a *app) finish() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.flags.metricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(a.flags.metricsFile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// parse runs text through the shared cache and tags failures with the
// source so the error renderer can point at them.
func (a *app) parse(ctx context.Context, text string) (pattern.PatternExpression, error) {
	expr, err := a.cache.Parse(ctx, text)
	if err != nil {
		var perr pattern.Error
		if errors.As(err, &perr) {
			return nil, &sourceError{src: text, err: err}
		}
		return nil, err
	}
	return expr, nil
}

// sourceError carries the pattern text a parse error refers to.
type sourceError struct {
	src string
	err error
}

func (e *sourceError) Error() string { return e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

// Execute runs the root command and renders any error to stderr. It
// returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		renderError(stderr, err)
		return 1
	}
	return 0
}

// renderError prints err, with a caret under the failing column for
// pattern errors.
func renderError(w io.Writer, err error) {
	var srcErr *sourceError
	if errors.As(err, &srcErr) {
		errorColor.Fprint(w, "✗ ")
		fmt.Fprint(w, pattern.FormatError(srcErr.src, srcErr.err))
		return
	}
	errorColor.Fprint(w, "Error: ")
	fmt.Fprintln(w, err)
}

// withTimeout derives the per-command context.
func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, defaultTimeout)
}

// stdinIsPipe reports whether stdin is redirected.
func stdinIsPipe() bool {
	info, err := os.Stdin.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice == 0
}
