// Package pathtmpl expands {field} placeholders in output paths.
//
// A placeholder is an identifier of word characters between braces. It is
// replaced by the named field of a record when that field holds a string
// (verbatim) or a number (shortest decimal form). Every other case leaves
// the placeholder text in place: absent fields, booleans, nulls, lists and
// maps.
package pathtmpl

import (
	"regexp"

	"github.com/conneroisu/lectern/internal/store"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Expand substitutes the placeholders of pattern with fields of rec.
func Expand(pattern string, rec store.Record) string {
	return placeholder.ReplaceAllStringFunc(pattern, func(token string) string {
		v, ok := rec.Get(token[1 : len(token)-1])
		if !ok {
			return token
		}
		switch store.KindOf(v) {
		case store.KindString, store.KindNumber:
			s, _ := store.Text(v)
			return s
		default:
			return token
		}
	})
}

// Placeholders returns the distinct placeholder names of pattern in order of
// first appearance.
func Placeholders(pattern string) []string {
	matches := placeholder.FindAllStringSubmatch(pattern, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Unresolved returns the placeholder names of pattern that Expand leaves in
// place for rec.
func Unresolved(pattern string, rec store.Record) []string {
	var out []string
	for _, name := range Placeholders(pattern) {
		switch store.KindOf(rec.Field(name)) {
		case store.KindString, store.KindNumber:
		default:
			out = append(out, name)
		}
	}
	return out
}
