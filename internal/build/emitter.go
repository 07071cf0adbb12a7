package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/lectern/internal/config"
	"github.com/conneroisu/lectern/internal/errors"
	"github.com/conneroisu/lectern/internal/logging"
	"github.com/conneroisu/lectern/internal/pathtmpl"
	"github.com/conneroisu/lectern/internal/render"
	"github.com/conneroisu/lectern/internal/store"
	"github.com/conneroisu/lectern/internal/validation"
)

// RecordBinding is the context name the current record is bound under on
// collection pages.
const RecordBinding = "record"

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Emitter renders page specifications and writes them below OutputDir.
type Emitter struct {
	Store     *store.Store
	Renderer  render.Renderer
	OutputDir string
	Logger    logging.Logger
}

// EmitAll emits every page in order and returns the written paths. The
// first failure stops emission.
func (e *Emitter) EmitAll(ctx context.Context, pages []config.Page, base *render.Context) ([]string, error) {
	var written []string
	for _, page := range pages {
		paths, err := e.Emit(ctx, page, base)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Emit renders one page specification. A singleton page is rendered once
// against base at its literal path. A collection page is rendered once per
// record of the collection, in store order, with the record bound as
// "record" and the path expanded from the record's fields.
func (e *Emitter) Emit(ctx context.Context, page config.Page, base *render.Context) ([]string, error) {
	if !page.IsCollection() {
		path, err := e.render(ctx, page.Template, page.Page.Path, base)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	records, err := e.Store.Collection(page.Collection).All()
	if err != nil {
		return nil, err
	}

	written := make([]string, 0, len(records))
	for _, rec := range records {
		rel := pathtmpl.Expand(page.Page.Path, rec)
		if missing := pathtmpl.Unresolved(page.Page.Path, rec); len(missing) > 0 {
			e.logger().Debug(ctx, "Placeholders left unresolved",
				"record", rec.ID, "collection", rec.Collection, "placeholders", strings.Join(missing, ","))
		}

		path, err := e.render(ctx, page.Template, rel, base.With(RecordBinding, rec))
		if err != nil {
			return written, fmt.Errorf("record %q of %q: %w", rec.ID, page.Collection, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func (e *Emitter) render(ctx context.Context, template, rel string, data *render.Context) (string, error) {
	target, err := e.target(rel)
	if err != nil {
		return "", err
	}

	content, err := e.Renderer.Render(template, data)
	if err != nil {
		return "", err
	}

	if err := e.write(ctx, target, content); err != nil {
		return "", err
	}
	return target, nil
}

// target resolves rel below OutputDir and rejects paths that leave it.
func (e *Emitter) target(rel string) (string, error) {
	target := filepath.Join(e.OutputDir, filepath.FromSlash(rel))
	if !validation.Within(e.OutputDir, target) {
		return "", errors.NewFilesystemError(
			errors.ErrCodePathTraversal,
			fmt.Sprintf("output path %q is not inside the output directory", rel),
			nil,
		).WithPath(target)
	}
	return target, nil
}

func (e *Emitter) write(ctx context.Context, target string, content []byte) error {
	e.logger().Info(ctx, "Compiling", "path", target)

	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return errors.WrapFilesystem(err, errors.ErrCodeWriteOutput, "create output directory", filepath.Dir(target))
	}
	// #nosec G306 -- generated site files are meant to be world readable.
	if err := os.WriteFile(target, content, filePerm); err != nil {
		return errors.WrapFilesystem(err, errors.ErrCodeWriteOutput, "write output file", target)
	}
	return nil
}

func (e *Emitter) logger() logging.Logger {
	if e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}
