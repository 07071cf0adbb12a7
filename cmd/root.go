// Package cmd provides the lectern command line.
//
// Running lectern with no subcommand performs one build pass of the project
// in --root (default the current directory) using <root>/config.toml or the
// file named by --config. With --watch the pass is followed by a loop that
// rebuilds whenever a file below the templates or data directory settles
// after a change.
//
// Values in the [site] and [build] tables can be overridden with
// LECTERN_<TABLE>_<KEY> environment variables, for example
// LECTERN_BUILD_OUTPUT_DIR=dist. A .env file in the project root is loaded
// first when present.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/lectern/internal/build"
	"github.com/conneroisu/lectern/internal/errors"
	"github.com/conneroisu/lectern/internal/logging"
	"github.com/conneroisu/lectern/internal/metrics"
	"github.com/conneroisu/lectern/internal/watcher"
)

var (
	rootDir    string
	configFile string
	watchMode  bool
	logLevel   = newEnumValue("info", "debug", "info", "warn", "error")
	logFormat  = newEnumValue("text", "text", "json")
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Build a static site from html templates and flat-file data",
	Long: `lectern renders a static site from html/template files and a directory of
Markdown, YAML, TOML and JSON records.

config.toml names data queries, whose results are bound into every template,
and pages, each rendered once or once per record of a collection.

Quick Start:
  lectern init my-site            Create a starter project
  lectern --root my-site          Build it into my-site/public
  lectern --root my-site --watch  Rebuild on every change`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", errors.FormatErrorWithSuggestions(err))
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootDir, "root", "r", ".", "project root")
	pf.StringVar(&configFile, "config", "", "configuration file (default <root>/config.toml)")
	pf.Var(logLevel, "log-level", "log level (debug, info, warn, error)")
	pf.Var(logFormat, "log-format", "log format (text, json)")

	rootCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "rebuild whenever a template or data file changes")
}

func newLogger(w io.Writer) logging.Logger {
	level, err := logging.ParseLevel(logLevel.String())
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: logFormat.String(),
		Output: w,
	})
}

// runOptions carries the root command's flags.
type runOptions struct {
	Root   string
	Config string
	Watch  bool
}

// watcherFactory creates the watcher of the watch loop.
type watcherFactory func(ctx context.Context, delay time.Duration, logger logging.Logger, paths []string) (build.Watcher, error)

func newFileWatcher(ctx context.Context, delay time.Duration, logger logging.Logger, paths []string) (build.Watcher, error) {
	w, err := watcher.New(ctx, delay, logger, paths...)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := runOptions{Root: rootDir, Config: configFile, Watch: watchMode}
	return run(ctx, newLogger(cmd.ErrOrStderr()), opts, newFileWatcher)
}

// run performs the initial pass and, in watch mode, the watch loop. A failed
// initial pass does not prevent watching; its error is returned once the loop
// ends.
func run(ctx context.Context, logger logging.Logger, opts runOptions, newWatcher watcherFactory) error {
	b, err := build.FromFile(opts.Root, opts.Config,
		build.WithLogger(logger),
		build.WithMetrics(metrics.NewPrometheusRecorder(nil)),
	)
	if err != nil {
		return err
	}

	_, buildErr := b.Build(ctx)
	if !opts.Watch {
		return buildErr
	}
	if buildErr != nil {
		errors.NewErrorHandler(logger).Handle(ctx, buildErr)
	}

	w, err := newWatcher(ctx, b.Config().Build.Debounce, logger, b.WatchPaths())
	if err != nil {
		return err
	}
	if err := b.Watch(ctx, w); err != nil {
		return err
	}
	return buildErr
}
