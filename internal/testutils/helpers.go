// Package testutils holds fixtures shared by the lectern package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/lectern/internal/config"
)

// BlogConfig is a configuration with a sorted posts query, an index page and
// one page per post.
const BlogConfig = `
[site]
title = "Field notes"

[[data]]
name = "posts"
collection = "posts"
sort = { key = "title", order = "asc" }

[[pages]]
template = "index.html"
page = { path = "index.html" }

[[pages]]
template = "post.html"
collection = "posts"
page = { path = "blog/{slug}/index.html" }
`

// BlogFiles is the project BlogConfig describes: two posts, a and b.
func BlogFiles() map[string]string {
	return map[string]string{
		config.DefaultFileName: BlogConfig,
		"templates/index.html": `{{.site.title}}:{{range .posts}}[{{.Data.title}}]{{end}}`,
		"templates/post.html":  `{{.site.title}}/{{.record.Data.title}}:{{.record.Data.content}}`,
		"data/posts/a.md":      "---\ntitle: A\nslug: a\n---\nFirst *post*\n",
		"data/posts/b.md":      "---\ntitle: B\nslug: b\n---\nSecond\n",
	}
}

// WriteProject creates a project root holding files, keyed by slash
// separated paths relative to the root.
func WriteProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, files)
	return root
}

// WriteFiles writes files below root, creating parent directories.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// ReadFile returns the content of path, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

// AssertFilePermissions checks the permission bits of a file.
func AssertFilePermissions(t *testing.T, path string, expectedMode os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)

	actualMode := info.Mode()
	require.Equal(t, expectedMode, actualMode&os.FileMode(0o777),
		"File %s has incorrect permissions: got %o, want %o",
		path, actualMode&os.FileMode(0o777), expectedMode)
}

// AssertDirectoryPermissions checks the permission bits of a directory.
func AssertDirectoryPermissions(t *testing.T, path string, expectedMode os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.IsDir(), "Path %s is not a directory", path)

	actualMode := info.Mode()
	require.Equal(t, expectedMode, actualMode&os.FileMode(0o777),
		"Directory %s has incorrect permissions: got %o, want %o",
		path, actualMode&os.FileMode(0o777), expectedMode)
}

// WaitForFileChange waits for a file to be modified after originalModTime
// (useful for testing the watch loop).
func WaitForFileChange(
	t *testing.T,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}

// WaitForFile waits for path to exist.
func WaitForFile(t *testing.T, path string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s did not appear within %v", path, timeout)
}
