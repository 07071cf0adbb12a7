// Package scaffolding writes starter lectern projects.
package scaffolding

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/lectern/internal/errors"
)

// DefaultTemplate is the project template used when none is named.
const DefaultTemplate = "blog"

// Generator handles project scaffolding
type Generator struct {
	templates map[string]ProjectTemplate
	now       func() time.Time
}

// GenerateOptions holds options for project generation
type GenerateOptions struct {
	// Dir is the project root. It is created when missing.
	Dir      string
	Template string
	Title    string
	BaseURL  string
	// Force overwrites existing files.
	Force bool
}

// NewGenerator creates a generator with the built-in templates.
func NewGenerator() *Generator {
	return &Generator{
		templates: GetBuiltinTemplates(),
		now:       time.Now,
	}
}

// AddCustomTemplate adds a custom template
func (g *Generator) AddCustomTemplate(tmpl ProjectTemplate) {
	g.templates[tmpl.Name] = tmpl
}

// ListTemplates returns the available templates sorted by name.
func (g *Generator) ListTemplates() []ProjectTemplate {
	out := make([]ProjectTemplate, 0, len(g.templates))
	for _, t := range g.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Generate writes the files of the selected template below opts.Dir and
// returns their paths. Without Force nothing is written if any of the files
// already exists.
func (g *Generator) Generate(opts GenerateOptions) ([]string, error) {
	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}
	if opts.Title == "" {
		opts.Title = titleFromDir(opts.Dir)
	}

	tmpl, exists := g.templates[opts.Template]
	if !exists {
		return nil, errors.NewConfigError(
			errors.ErrCodeConfigInvalid,
			fmt.Sprintf("template '%s' not found", opts.Template),
			nil,
		)
	}

	ctx := TemplateContext{
		Title:   opts.Title,
		BaseURL: opts.BaseURL,
		Date:    g.now().Format("2006-01-02"),
	}

	rendered := make([][]byte, len(tmpl.Files))
	targets := make([]string, len(tmpl.Files))
	for i, file := range tmpl.Files {
		content, err := renderFile(file, ctx)
		if err != nil {
			return nil, err
		}
		rendered[i] = content
		targets[i] = filepath.Join(opts.Dir, filepath.FromSlash(file.Path))

		if _, err := os.Stat(targets[i]); err == nil && !opts.Force {
			return nil, errors.NewFilesystemError(
				errors.ErrCodeFileExists,
				"file already exists (use --force to overwrite)",
				nil,
			).WithPath(targets[i])
		}
	}

	for i, target := range targets {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, errors.WrapFilesystem(err, errors.ErrCodeWriteOutput, "create directory", filepath.Dir(target))
		}
		// #nosec G306 -- project sources are meant to be world readable.
		if err := os.WriteFile(target, rendered[i], 0o644); err != nil {
			return nil, errors.WrapFilesystem(err, errors.ErrCodeWriteOutput, "write file", target)
		}
	}

	return targets, nil
}

// renderFile executes the content of a starter file.
func renderFile(file FileTemplate, ctx TemplateContext) ([]byte, error) {
	tmpl, err := template.New(file.Path).Delims("<%", "%>").Parse(file.Content)
	if err != nil {
		return nil, errors.WrapTemplate(err, errors.ErrCodeTemplateParse, "parse starter file", file.Path)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return nil, errors.WrapTemplate(err, errors.ErrCodeTemplateRender, "render starter file", file.Path)
	}
	return buf.Bytes(), nil
}

func titleFromDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "My site"
	}
	name := strings.NewReplacer("-", " ", "_", " ").Replace(filepath.Base(abs))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "My site"
	}
	return cases.Title(language.Und).String(name)
}
