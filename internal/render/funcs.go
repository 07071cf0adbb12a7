package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/lectern/internal/store"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Funcs returns the functions available to every template.
//
//	safe      marks a value as trusted HTML, e.g. {{ .record.Data.content | safe }}
//	markdown  renders Markdown text to HTML
//	title     title-cases a string
//	excerpt   plain text of an HTML fragment cut to n runes: {{ excerpt 120 .x }}
//	field     a record field by name, nil when absent
//	date      reformats an RFC 3339 or YYYY-MM-DD value with a Go layout
func Funcs() template.FuncMap {
	return template.FuncMap{
		"safe":     safe,
		"markdown": renderMarkdown,
		"title":    titleCase,
		"excerpt":  excerpt,
		"field":    field,
		"date":     formatDate,
	}
}

func text(v any) string {
	if s, ok := store.Text(v); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// #nosec G203 -- record content is produced by the site author.
func safe(v any) template.HTML {
	return template.HTML(text(v))
}

func renderMarkdown(v any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text(v)), &buf); err != nil {
		return "", err
	}
	// #nosec G203 -- output of the Markdown renderer.
	return template.HTML(buf.String()), nil
}

func titleCase(v any) string {
	return cases.Title(language.Und).String(text(v))
}

func excerpt(n int, v any) string {
	plain := plainText(text(v))
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(plain) <= n {
		return plain
	}

	runes := []rune(plain)
	cut := runes[:n]
	// Prefer a word boundary when one exists in the kept prefix.
	if !unicode.IsSpace(runes[n]) {
		for i := len(cut) - 1; i > 0; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + "…"
}

// plainText extracts the text nodes of an HTML fragment with runs of white
// space collapsed.
func plainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

func field(rec any, key string) any {
	switch r := rec.(type) {
	case store.Record:
		return r.Field(key)
	case *store.Record:
		if r == nil {
			return nil
		}
		return r.Field(key)
	case map[string]any:
		return r[key]
	default:
		return nil
	}
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func formatDate(layout string, v any) string {
	s := text(v)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.Format(layout)
		}
	}
	return s
}
