package validation

import (
	"path/filepath"
	"testing"
)

func TestValidateRelPath(t *testing.T) {
	tests := []struct {
		path      string
		expectErr bool
	}{
		{"index.html", false},
		{"blog/{slug}/index.html", false},
		{"partials/../post.html", false},
		{"./feed.xml", false},
		{"", true},
		{"   ", true},
		{".", true},
		{"blog/..", true},
		{"..", true},
		{"../escape.html", true},
		{"blog/../../escape.html", true},
		{"/etc/passwd", true},
		{"a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := ValidateRelPath(tt.path)
			if tt.expectErr && err == nil {
				t.Errorf("ValidateRelPath(%q) expected error, got nil", tt.path)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("ValidateRelPath(%q) unexpected error: %v", tt.path, err)
			}
		})
	}
}

func TestWithin(t *testing.T) {
	root := filepath.Join("/", "site", "public")
	tests := []struct {
		target string
		want   bool
	}{
		{filepath.Join(root, "index.html"), true},
		{filepath.Join(root, "blog", "a", "index.html"), true},
		{filepath.Join(root, "..", "public", "x.html"), true},
		{root, false},
		{filepath.Join(root, ".."), false},
		{filepath.Join(root, "..", "secret"), false},
		{filepath.Join("/", "site", "publicity"), false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := Within(root, tt.target); got != tt.want {
				t.Errorf("Within(%q, %q) = %v, want %v", root, tt.target, got, tt.want)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	a := filepath.Join("/", "site", "public")
	tests := []struct {
		b    string
		want bool
	}{
		{a, true},
		{filepath.Join(a, "data"), true},
		{filepath.Join("/", "site"), true},
		{filepath.Join("/", "site", "data"), false},
		{filepath.Join("/", "site", "public2"), false},
	}

	for _, tt := range tests {
		if got := Overlaps(a, tt.b); got != tt.want {
			t.Errorf("Overlaps(%q, %q) = %v, want %v", a, tt.b, got, tt.want)
		}
	}
}
