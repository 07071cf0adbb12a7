package render

import (
	"html/template"

	"github.com/conneroisu/lectern/internal/store"
)

// trustContent returns vars with the rendered Markdown body of every bound
// record marked as trusted HTML. Records are copied; the store's values are
// not modified.
func trustContent(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for name, v := range vars {
		out[name] = trustValue(v)
	}
	return out
}

func trustValue(v any) any {
	switch t := v.(type) {
	case store.Record:
		return trustRecord(t)
	case []store.Record:
		recs := make([]store.Record, len(t))
		for i, rec := range t {
			recs[i] = trustRecord(rec)
		}
		return recs
	default:
		return v
	}
}

func trustRecord(rec store.Record) store.Record {
	content, ok := rec.Data[store.FieldContent].(string)
	if !ok {
		return rec
	}
	data := make(map[string]any, len(rec.Data))
	for k, v := range rec.Data {
		data[k] = v
	}
	// #nosec G203 -- content is the Markdown renderer's output for a record
	// file written by the site author.
	data[store.FieldContent] = template.HTML(content)
	rec.Data = data
	return rec
}
