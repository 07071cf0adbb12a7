package pathtmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/lectern/internal/store"
)

func rec(data map[string]any) store.Record {
	return store.Record{ID: "r", Data: data}
}

func TestExpand(t *testing.T) {
	r := rec(map[string]any{
		"slug":    "hello",
		"year":    int64(2024),
		"score":   4.5,
		"draft":   true,
		"nothing": nil,
		"tags":    []any{"a"},
		"meta":    map[string]any{"k": "v"},
	})

	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{"literal", "index.html", "index.html"},
		{"string", "blog/{slug}/index.html", "blog/hello/index.html"},
		{"integer", "{year}/{slug}.html", "2024/hello.html"},
		{"float", "s-{score}.html", "s-4.5.html"},
		{"duplicates", "{slug}/{slug}.html", "hello/hello.html"},
		{"absent", "{missing}/{slug}.html", "{missing}/hello.html"},
		{"bool skipped", "{draft}.html", "{draft}.html"},
		{"null skipped", "{nothing}.html", "{nothing}.html"},
		{"list skipped", "{tags}.html", "{tags}.html"},
		{"map skipped", "{meta}.html", "{meta}.html"},
		{"not an identifier", "{a-b}/{}.html", "{a-b}/{}.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.pattern, r))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Placeholders("{a}/{b}/{a}.html"))
	assert.Empty(t, Placeholders("plain.html"))
}

func TestUnresolved(t *testing.T) {
	r := rec(map[string]any{"slug": "x", "draft": false})
	assert.Equal(t, []string{"draft", "missing"}, Unresolved("{slug}/{draft}/{missing}", r))
	assert.Empty(t, Unresolved("{slug}.html", r))
}
