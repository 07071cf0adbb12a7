// Package render renders named templates against a Context.
//
// An Engine parses every file under a template directory. A template is
// named by its slash-separated path relative to that directory, so a page
// can include a partial with {{ template "partials/nav.html" . }}.
//
// Templates named *.html or *.htm execute with html/template and its
// contextual escaping. Every other file (feeds, sitemaps, JSON, CSS)
// executes with text/template, so its literal text is written unchanged.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	texttemplate "text/template"

	"github.com/conneroisu/lectern/internal/errors"
)

// Renderer renders a named template with a context.
type Renderer interface {
	Render(name string, data *Context) ([]byte, error)
}

// Engine is a Renderer over a parsed template directory.
type Engine struct {
	dir   string
	html  *template.Template
	text  *texttemplate.Template
	names []string
}

// escapesHTML reports whether the template name executes with html/template.
func escapesHTML(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}

// Load parses every template file under dir. Dotfiles and dot-directories
// are skipped. A missing directory yields an engine with no templates.
func Load(dir string) (*Engine, error) {
	e := &Engine{
		dir:  dir,
		html: template.New("").Funcs(Funcs()).Option("missingkey=zero"),
		text: texttemplate.New("").Funcs(texttemplate.FuncMap(Funcs())).Option("missingkey=zero"),
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return e, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return errors.WrapFilesystem(walkErr, errors.ErrCodeTemplateParse, "walk template directory", path)
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return errors.WrapTemplate(err, errors.ErrCodeTemplateParse, "resolve template name", path)
		}
		name := filepath.ToSlash(rel)

		// #nosec G304 -- path comes from walking the template directory.
		src, err := os.ReadFile(path)
		if err != nil {
			return errors.WrapFilesystem(err, errors.ErrCodeTemplateParse, "read template", path)
		}
		// Both sets hold every file so any page can include any partial.
		if _, err := e.html.New(name).Parse(string(src)); err != nil {
			return errors.WrapTemplate(err, errors.ErrCodeTemplateParse, "parse template", name)
		}
		if _, err := e.text.New(name).Parse(string(src)); err != nil {
			return errors.WrapTemplate(err, errors.ErrCodeTemplateParse, "parse template", name)
		}
		e.names = append(e.names, name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(e.names)
	return e, nil
}

// Dir returns the template directory.
func (e *Engine) Dir() string {
	return e.dir
}

// Names returns the loaded template names in lexical order.
func (e *Engine) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// executor is the part of html/template and text/template Render needs.
type executor interface {
	Execute(w io.Writer, data any) error
}

// Render executes the named template with the flattened context. For HTML
// templates the rendered Markdown content of records is passed as trusted
// HTML.
func (e *Engine) Render(name string, data *Context) ([]byte, error) {
	var (
		tmpl  executor
		found bool
		vars  = data.Map()
	)
	if escapesHTML(name) {
		if t := e.html.Lookup(name); t != nil {
			tmpl, found = t, true
		}
		vars = trustContent(vars)
	} else if t := e.text.Lookup(name); t != nil {
		tmpl, found = t, true
	}

	if !found || name == "" {
		return nil, errors.NewTemplateError(
			errors.ErrCodeTemplateNotFound,
			fmt.Sprintf("template %q not found in %s", name, e.dir),
			nil,
		).WithPath(name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, errors.WrapTemplate(err, errors.ErrCodeTemplateRender, "render template", name)
	}
	return buf.Bytes(), nil
}
