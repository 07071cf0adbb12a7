package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/lectern/internal/errors"
	"github.com/conneroisu/lectern/internal/validation"
)

// Validate checks the configuration for missing required fields and
// contradictory settings. Every problem is collected; the returned error is
// a *errors.ValidationErrorCollection, or nil when the configuration is
// valid.
func (c *Config) Validate() error {
	vec := &errors.ValidationErrorCollection{}

	if c.Site.BaseURL != "" {
		if err := validation.ValidateURL(c.Site.BaseURL); err != nil {
			vec.AddField("site.base_url", c.Site.BaseURL, err.Error(),
				"Use an absolute URL such as \"https://example.com\"")
		}
	}
	c.validateBuild(vec)
	for i := range c.Data {
		validateDataQuery(fmt.Sprintf("data[%d]", i), &c.Data[i], vec)
	}
	for i := range c.Pages {
		validatePage(fmt.Sprintf("pages[%d]", i), &c.Pages[i], vec)
	}

	if vec.HasErrors() {
		return vec
	}
	return nil
}

func (c *Config) validateBuild(vec *errors.ValidationErrorCollection) {
	required := []struct {
		field string
		value string
	}{
		{"build.output_dir", c.Build.OutputDir},
		{"build.templates_dir", c.Build.TemplatesDir},
		{"build.data_dir", c.Build.DataDir},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			vec.AddField(r.field, r.value, "must not be empty")
		}
	}

	if c.Build.OutputDir != "" {
		out, root := absPath(c.OutputPath()), absPath(c.resolve("."))
		// The output directory is deleted on every pass.
		switch {
		case out == root || validation.Within(out, root):
			vec.AddField("build.output_dir", c.Build.OutputDir,
				"must not be or contain the project root",
				"Use a dedicated directory such as \"public\"")
		case c.Build.TemplatesDir != "" && validation.Overlaps(out, absPath(c.TemplatesPath())):
			vec.AddField("build.output_dir", c.Build.OutputDir,
				"must not overlap build.templates_dir")
		case c.Build.DataDir != "" && validation.Overlaps(out, absPath(c.DataPath())):
			vec.AddField("build.output_dir", c.Build.OutputDir,
				"must not overlap build.data_dir")
		}
	}

	if c.Build.Debounce <= 0 {
		vec.AddField("build.debounce", c.Build.Debounce.String(), "must be a positive duration",
			"Use a Go duration string such as \"1s\" or \"500ms\"")
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func validateDataQuery(prefix string, q *DataQuery, vec *errors.ValidationErrorCollection) {
	if q.Name == "" {
		vec.AddField(prefix+".name", q.Name, "is required",
			"The name is the template binding, e.g. name = \"posts\" exposes {{ .posts }}")
	}
	if q.Collection == "" {
		vec.AddField(prefix+".collection", q.Collection, "is required",
			"Use the name of a directory under the data directory")
	} else {
		validateCollection(prefix, q.Collection, vec)
	}

	if q.WhenIs != nil && q.WhenIs.Key == "" {
		vec.AddField(prefix+".when_is.key", "", "is required")
	}
	if q.WhenIsNot != nil && q.WhenIsNot.Key == "" {
		vec.AddField(prefix+".when_is_not.key", "", "is required")
	}
	if q.WhenHas != nil && q.WhenHas.Key == "" {
		vec.AddField(prefix+".when_has.key", "", "is required")
	}
	if q.WhenHasNot != nil && q.WhenHasNot.Key == "" {
		vec.AddField(prefix+".when_has_not.key", "", "is required")
	}
	if q.WhenMatches != nil {
		if q.WhenMatches.Key == "" {
			vec.AddField(prefix+".when_matches.key", "", "is required")
		}
		if q.WhenMatches.Regex == "" {
			vec.AddField(prefix+".when_matches.regex", "", "is required")
		}
	}
	if q.WhenExpr != nil && strings.TrimSpace(q.WhenExpr.Expression) == "" {
		vec.AddField(prefix+".when_expr.expression", "", "is required")
	}
	if q.Sort != nil && q.Sort.Key == "" {
		vec.AddField(prefix+".sort.key", "", "is required")
	}
	if q.Limit != nil && *q.Limit < 0 {
		vec.AddField(prefix+".limit", *q.Limit, "must not be negative")
	}
	if q.First && q.Last {
		vec.AddField(prefix+".first", true, "first and last are mutually exclusive",
			"Set only one of first or last, or neither to bind the full list")
	}
}

// validateCollection requires a collection to name a directory below the
// data directory.
func validateCollection(prefix, collection string, vec *errors.ValidationErrorCollection) {
	if err := validation.ValidateRelPath(collection); err != nil {
		vec.AddField(prefix+".collection", collection, err.Error(),
			"Use the name of a directory under the data directory")
	}
}

func validatePage(prefix string, p *Page, vec *errors.ValidationErrorCollection) {
	if p.Collection != "" {
		validateCollection(prefix, p.Collection, vec)
	}
	if p.Template == "" {
		vec.AddField(prefix+".template", p.Template, "is required",
			"Use a path relative to the templates directory, e.g. \"post.html\"")
	} else if err := validation.ValidateRelPath(p.Template); err != nil {
		vec.AddField(prefix+".template", p.Template, err.Error())
	}
	if p.Page.Path == "" {
		vec.AddField(prefix+".page.path", p.Page.Path, "is required",
			"Use an output path relative to the output directory, e.g. \"index.html\"")
	} else if err := validation.ValidateRelPath(p.Page.Path); err != nil {
		vec.AddField(prefix+".page.path", p.Page.Path, err.Error())
	}
}
