package build

import (
	"context"
	"os"

	"github.com/conneroisu/lectern/internal/errors"
	"github.com/conneroisu/lectern/internal/watcher"
)

// Watcher delivers settled change batches.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
	Batches() <-chan []watcher.ChangeEvent
	Errors() <-chan error
}

// DirAdder is implemented by watchers that can watch further directories
// after they have started.
type DirAdder interface {
	AddRecursive(root string) error
}

// WatchPaths returns the directories whose changes trigger a rebuild.
func (b *Builder) WatchPaths() []string {
	return []string{b.cfg.TemplatesPath(), b.cfg.DataPath()}
}

// Watch runs a pass for every batch w delivers until ctx is cancelled or the
// watcher fails. A failed pass is logged and the loop keeps going; the next
// batch retries. Cancellation returns nil.
//
// When a pass reloads a configuration that moves the template or data
// directory, the new directory is added to w if it implements DirAdder.
// Previously watched directories stay watched.
func (b *Builder) Watch(ctx context.Context, w Watcher) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	handler := errors.NewErrorHandler(b.logger)
	watched := make(map[string]bool)
	for _, p := range b.WatchPaths() {
		watched[p] = true
	}
	b.logger.Info(ctx, "Watching for changes", "paths", b.WatchPaths())

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			b.logger.Error(ctx, err, "File watcher stopped")
			return err
		case batch := <-w.Batches():
			b.logger.Info(ctx, "Changes detected", "files", len(batch))
			if _, err := b.Build(ctx); err != nil {
				handler.Handle(ctx, err)
			}
			b.rearm(ctx, w, watched)
		}
	}
}

// rearm adds the current watch paths that are not yet in watched.
func (b *Builder) rearm(ctx context.Context, w Watcher, watched map[string]bool) {
	for _, p := range b.WatchPaths() {
		if watched[p] {
			continue
		}
		adder, ok := w.(DirAdder)
		if !ok {
			b.logger.Warn(ctx, nil, "Watch paths changed; restart to watch them", "path", p)
			watched[p] = true
			continue
		}
		if _, err := os.Stat(p); err != nil {
			// Retried after the next pass.
			continue
		}
		if err := adder.AddRecursive(p); err != nil {
			b.logger.Warn(ctx, err, "Failed to watch directory", "path", p)
			continue
		}
		watched[p] = true
		b.logger.Info(ctx, "Watching directory", "path", p)
	}
}
