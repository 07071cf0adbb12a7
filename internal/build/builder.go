// Package build runs lectern build passes.
//
// A pass parses the templates, clears the output directory, evaluates the
// configured data queries into a render context and emits every page. Each
// pass starts from scratch: nothing is cached between passes, so edits to
// templates, data files or the configuration are picked up by the next one.
// Every stage fails fast.
package build

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/lectern/internal/config"
	"github.com/conneroisu/lectern/internal/errors"
	"github.com/conneroisu/lectern/internal/logging"
	"github.com/conneroisu/lectern/internal/metrics"
	"github.com/conneroisu/lectern/internal/query"
	"github.com/conneroisu/lectern/internal/render"
	"github.com/conneroisu/lectern/internal/store"
)

// SiteBinding is the context name of the site information every template
// receives.
const SiteBinding = "site"

// Result describes a successful pass.
type Result struct {
	ID       string
	Pages    []string
	Duration time.Duration
}

// RendererLoader parses the templates of a directory.
type RendererLoader func(dir string) (render.Renderer, error)

// TextfileWriter writes collected metrics to a file.
type TextfileWriter interface {
	WriteTextfile(path string) error
}

// Builder runs build passes for one project.
type Builder struct {
	cfg      *config.Config
	reload   func() (*config.Config, error)
	store    *store.Store
	loader   RendererLoader
	logger   logging.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger.WithComponent("build")
		}
	}
}

// WithMetrics sets the metrics recorder. When the recorder can also write a
// textfile and build.metrics_file is set, metrics are written after every
// pass.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(b *Builder) {
		if recorder != nil {
			b.recorder = recorder
		}
	}
}

// WithStore makes every pass read records from s instead of the data
// directory.
func WithStore(s *store.Store) Option {
	return func(b *Builder) {
		b.store = s
	}
}

// WithRendererLoader replaces the html/template engine.
func WithRendererLoader(loader RendererLoader) Option {
	return func(b *Builder) {
		if loader != nil {
			b.loader = loader
		}
	}
}

// WithReload makes every pass start by reloading the configuration.
func WithReload(reload func() (*config.Config, error)) Option {
	return func(b *Builder) {
		b.reload = reload
	}
}

// New creates a builder for cfg.
func New(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg,
		loader:   loadEngine,
		logger:   logging.NewNop(),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromFile loads the configuration at file under root and returns a builder
// that re-reads it at the start of every pass.
func FromFile(root, file string, opts ...Option) (*Builder, error) {
	cfg, err := config.Load(root, file)
	if err != nil {
		return nil, err
	}
	reload := func() (*config.Config, error) { return config.Load(root, cfg.File) }
	return New(cfg, append([]Option{WithReload(reload)}, opts...)...), nil
}

func loadEngine(dir string) (render.Renderer, error) {
	return render.Load(dir)
}

// Config returns the configuration of the most recent pass.
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// Build runs one pass.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	id := uuid.NewString()
	logger := b.logger.With("build_id", id)
	perf := logging.StartOperation(logger, "build")

	pages, err := b.run(ctx, id, logger)
	duration := perf.Elapsed()

	b.recorder.ObserveBuild(duration, err == nil)
	b.recorder.AddPages(len(pages))
	b.writeMetrics(ctx, logger)

	if err != nil {
		perf.EndWithError(ctx, err, "pages", len(pages))
		return nil, err
	}

	perf.End(ctx, "pages", len(pages))
	return &Result{ID: id, Pages: pages, Duration: duration}, nil
}

func (b *Builder) run(ctx context.Context, id string, logger logging.Logger) ([]string, error) {
	if b.reload != nil {
		var cfg *config.Config
		if err := b.stage(metrics.StageLoad, func() (err error) {
			cfg, err = b.reload()
			return err
		}); err != nil {
			return nil, err
		}
		b.cfg = cfg
	}
	cfg := b.cfg

	// Templates are parsed before the output is cleared, so a syntax error
	// leaves the previous site in place.
	renderer, err := b.loader(cfg.TemplatesPath())
	if err != nil {
		return nil, err
	}

	if err := b.stage(metrics.StageClear, func() error {
		return ClearOutput(cfg.OutputPath())
	}); err != nil {
		return nil, err
	}

	s := b.store
	if s == nil {
		s = store.New(
			store.NewLocalProvider(cfg.DataPath()),
			store.WithLogger(logger),
			store.WithReadHook(b.recorder.IncRecordsRead),
		)
	}

	base := render.NewContext().With(SiteBinding, b.site(cfg, id))
	var composed *render.Context
	if err := b.stage(metrics.StageCompose, func() (err error) {
		composed, err = query.Compose(s, cfg.Data, base)
		return err
	}); err != nil {
		return nil, err
	}

	emitter := &Emitter{
		Store:     s,
		Renderer:  renderer,
		OutputDir: cfg.OutputPath(),
		Logger:    logger.WithComponent("emit"),
	}
	var written []string
	err = b.stage(metrics.StageEmit, func() (err error) {
		written, err = emitter.EmitAll(ctx, cfg.Pages, composed)
		return err
	})
	return written, err
}

func (b *Builder) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	b.recorder.ObserveStage(name, time.Since(start))
	return err
}

func (b *Builder) site(cfg *config.Config, id string) map[string]any {
	return map[string]any{
		"title":      cfg.Site.Title,
		"base_url":   cfg.Site.BaseURL,
		"build_id":   id,
		"build_time": b.now().UTC().Format(time.RFC3339),
	}
}

func (b *Builder) writeMetrics(ctx context.Context, logger logging.Logger) {
	w, ok := b.recorder.(TextfileWriter)
	if !ok || b.cfg == nil || b.cfg.MetricsPath() == "" {
		return
	}
	if err := w.WriteTextfile(b.cfg.MetricsPath()); err != nil {
		logger.Warn(ctx, err, "Failed to write metrics file", "path", b.cfg.MetricsPath())
	}
}

// ClearOutput deletes dir and everything below it, then recreates it empty.
// A missing directory is not an error.
func ClearOutput(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return errors.WrapFilesystem(err, errors.ErrCodeClearOutput, "remove output directory", dir)
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return errors.WrapFilesystem(err, errors.ErrCodeClearOutput, "create output directory", dir)
	}
	return nil
}
