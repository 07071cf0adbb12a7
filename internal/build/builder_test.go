package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/lectern/internal/config"
	"github.com/conneroisu/lectern/internal/errors"
	"github.com/conneroisu/lectern/internal/metrics"
	"github.com/conneroisu/lectern/internal/render"
	"github.com/conneroisu/lectern/internal/store"
	"github.com/conneroisu/lectern/internal/testutils"
	"github.com/conneroisu/lectern/internal/watcher"
)

func blogProject(t *testing.T) string {
	return testutils.WriteProject(t, testutils.BlogFiles())
}

func TestBuildBlog(t *testing.T) {
	root := blogProject(t)

	b, err := FromFile(root, "")
	require.NoError(t, err)

	result, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)

	out := filepath.Join(root, "public")
	assert.Equal(t, []string{
		filepath.Join(out, "index.html"),
		filepath.Join(out, "blog", "a", "index.html"),
		filepath.Join(out, "blog", "b", "index.html"),
	}, result.Pages)

	assert.Equal(t, "Field notes:[A][B]", testutils.ReadFile(t, filepath.Join(out, "index.html")))
	post := testutils.ReadFile(t, filepath.Join(out, "blog", "a", "index.html"))
	assert.True(t, strings.HasPrefix(post, "Field notes/A:"), post)
	assert.Contains(t, post, "<em>post</em>")

	testutils.AssertFilePermissions(t, filepath.Join(out, "blog", "a", "index.html"), 0o644)
	testutils.AssertDirectoryPermissions(t, filepath.Join(out, "blog", "a"), 0o755)
}

func TestBuildFeedIsNotHTMLEscaped(t *testing.T) {
	files := testutils.BlogFiles()
	files["config.toml"] += "\n[[pages]]\ntemplate = \"feed.xml\"\npage = { path = \"feed.xml\" }\n"
	files["templates/feed.xml"] = `<?xml version="1.0" encoding="utf-8"?>
<feed>{{ range .posts }}<entry><title>{{ .Data.title }}</title><content type="html">{{ .Data.content }}</content></entry>{{ end }}</feed>`
	files["data/posts/a.md"] = "---\ntitle: A & B\nslug: a\n---\nFirst\n"
	root := testutils.WriteProject(t, files)

	b, err := FromFile(root, "")
	require.NoError(t, err)
	_, err = b.Build(context.Background())
	require.NoError(t, err)

	feed := testutils.ReadFile(t, filepath.Join(root, "public", "feed.xml"))
	assert.True(t, strings.HasPrefix(feed, `<?xml version="1.0" encoding="utf-8"?>`), feed)
	assert.Contains(t, feed, "<title>A & B</title>")
	assert.Contains(t, feed, "<content type=\"html\"><p>First</p>\n</content>")
}

func TestBuildClearsStaleOutput(t *testing.T) {
	root := blogProject(t)
	stale := filepath.Join(root, "public", "old.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	b, err := FromFile(root, "")
	require.NoError(t, err)
	_, err = b.Build(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildPicksUpEdits(t *testing.T) {
	root := blogProject(t)
	b, err := FromFile(root, "")
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "posts", "c.md"),
		[]byte("---\ntitle: C\nslug: c\n---\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "templates", "index.html"),
		[]byte(`{{len .posts}}`), 0o644))
	cfgText := strings.Replace(testutils.ReadFile(t, filepath.Join(root, "config.toml")), "Field notes", "Renamed", 1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.toml"), []byte(cfgText), 0o644))

	result, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Pages, 4)
	assert.Equal(t, "3", testutils.ReadFile(t, filepath.Join(root, "public", "index.html")))
	assert.Equal(t, "Renamed", b.Config().Site.Title)
}

func TestBuildFailures(t *testing.T) {
	testCases := []struct {
		name     string
		edit     map[string]string
		expected errors.ErrorType
	}{
		{
			name:     "template parse error",
			edit:     map[string]string{"templates/index.html": `{{ if }}`},
			expected: errors.ErrorTypeTemplate,
		},
		{
			name:     "missing template",
			edit:     map[string]string{"config.toml": strings.Replace(testutils.BlogConfig, `"post.html"`, `"missing.html"`, 1)},
			expected: errors.ErrorTypeTemplate,
		},
		{
			name: "invalid pattern",
			edit: map[string]string{"config.toml": strings.Replace(testutils.BlogConfig,
				`sort = { key = "title", order = "asc" }`, `when_matches = { key = "slug", regex = "(" }`, 1)},
			expected: errors.ErrorTypePattern,
		},
		{
			name:     "malformed record",
			edit:     map[string]string{"data/posts/c.json": `{"title": `},
			expected: errors.ErrorTypeFilesystem,
		},
		{
			name:     "invalid configuration",
			edit:     map[string]string{"config.toml": testutils.BlogConfig + "\n[[pages]]\ntemplate = \"x.html\"\n"},
			expected: errors.ErrorTypeConfig,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root := blogProject(t)
			b, err := FromFile(root, "")
			require.NoError(t, err)

			for name, content := range tc.edit {
				require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(name)), []byte(content), 0o644))
			}

			result, err := b.Build(context.Background())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tc.expected, errors.TypeOf(err), err.Error())
		})
	}
}

func TestBuildBindsSiteAndQueries(t *testing.T) {
	provider := store.NewMemoryProvider().
		Add("posts", "a", map[string]any{"slug": "a"})
	var seen map[string]any
	loader := func(string) (render.Renderer, error) {
		return rendererFunc(func(name string, data *render.Context) ([]byte, error) {
			seen = data.Map()
			return []byte(name), nil
		}), nil
	}

	cfg := &config.Config{
		Root:  t.TempDir(),
		Site:  config.SiteConfig{Title: "T", BaseURL: "https://example.com"},
		Build: config.BuildConfig{OutputDir: "public", TemplatesDir: "templates", DataDir: "data"},
		Data:  []config.DataQuery{{Name: "latest", Collection: "posts", Last: true}},
		Pages: []config.Page{{Template: "index.html", Page: config.PageTarget{Path: "index.html"}}},
	}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b := New(cfg, WithStore(store.New(provider)), WithRendererLoader(loader))
	b.now = func() time.Time { return fixed }

	result, err := b.Build(context.Background())
	require.NoError(t, err)

	site, ok := seen[SiteBinding].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "T", site["title"])
	assert.Equal(t, "https://example.com", site["base_url"])
	assert.Equal(t, result.ID, site["build_id"])
	assert.Equal(t, "2024-03-01T12:00:00Z", site["build_time"])

	latest, ok := seen["latest"].(store.Record)
	require.True(t, ok)
	assert.Equal(t, "a", latest.ID)
}

type rendererFunc func(name string, data *render.Context) ([]byte, error)

func (f rendererFunc) Render(name string, data *render.Context) ([]byte, error) {
	return f(name, data)
}

func TestBuildWritesMetricsTextfile(t *testing.T) {
	root := blogProject(t)
	cfgText := strings.Replace(testutils.BlogConfig, "[[data]]", "[build]\nmetrics_file = \"metrics/lectern.prom\"\n\n[[data]]", 1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.toml"), []byte(cfgText), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "metrics"), 0o755))

	recorder := metrics.NewPrometheusRecorder(nil)
	b, err := FromFile(root, "", WithMetrics(recorder))
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	require.NoError(t, err)

	content := testutils.ReadFile(t, filepath.Join(root, "metrics", "lectern.prom"))
	assert.Contains(t, content, "lectern_pages_written_total 3")
	assert.Contains(t, content, `lectern_build_outcomes_total{outcome="success"} 1`)
	assert.Contains(t, content, `lectern_records_read_total{collection="posts"}`)
}

func TestClearOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public")
	require.NoError(t, ClearOutput(dir), "missing directory")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "x.html"), []byte("x"), 0o644))
	require.NoError(t, ClearOutput(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type fakeWatcher struct {
	batches chan []watcher.ChangeEvent
	errs    chan error
	started bool
	stopped bool
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{
		batches: make(chan []watcher.ChangeEvent),
		errs:    make(chan error, 1),
	}
}

func (w *fakeWatcher) Start(context.Context) error { w.started = true; return nil }
func (w *fakeWatcher) Stop() error                 { w.stopped = true; return nil }

func (w *fakeWatcher) Batches() <-chan []watcher.ChangeEvent { return w.batches }
func (w *fakeWatcher) Errors() <-chan error                  { return w.errs }

func waitWatch(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}

func TestWatchRebuildsOnBatch(t *testing.T) {
	root := blogProject(t)
	b, err := FromFile(root, "")
	require.NoError(t, err)

	w := newFakeWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Watch(ctx, w) }()

	w.batches <- []watcher.ChangeEvent{{Path: filepath.Join(root, "data", "posts", "a.md")}}
	// A second send only succeeds once the first pass has finished.
	w.batches <- []watcher.ChangeEvent{{Path: filepath.Join(root, "templates", "index.html")}}
	waitWatch(t, cancel, done)

	assert.FileExists(t, filepath.Join(root, "public", "index.html"))
	assert.True(t, w.started)
	assert.True(t, w.stopped)
}

func TestWatchSurvivesFailedPass(t *testing.T) {
	root := blogProject(t)
	b, err := FromFile(root, "")
	require.NoError(t, err)

	w := newFakeWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Watch(ctx, w) }()

	indexTemplate := filepath.Join(root, "templates", "index.html")
	require.NoError(t, os.WriteFile(indexTemplate, []byte(`{{ if }}`), 0o644))
	w.batches <- []watcher.ChangeEvent{{Path: indexTemplate}}

	require.NoError(t, os.WriteFile(indexTemplate, []byte(`fixed`), 0o644))
	// Received only after the failed pass has finished; its pass runs to
	// completion before the loop sees the cancellation.
	w.batches <- []watcher.ChangeEvent{{Path: indexTemplate}}
	waitWatch(t, cancel, done)

	assert.Equal(t, "fixed", testutils.ReadFile(t, filepath.Join(root, "public", "index.html")))
}

func TestBuildKeepsOutputOnTemplateError(t *testing.T) {
	root := blogProject(t)
	b, err := FromFile(root, "")
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	require.NoError(t, err)
	index := filepath.Join(root, "public", "index.html")
	before := testutils.ReadFile(t, index)

	require.NoError(t, os.WriteFile(filepath.Join(root, "templates", "post.html"), []byte(`{{ if }}`), 0o644))
	_, err = b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTemplate))

	assert.Equal(t, before, testutils.ReadFile(t, index), "previous site is left in place")
	assert.FileExists(t, filepath.Join(root, "public", "blog", "a", "index.html"))
}

type addingWatcher struct {
	*fakeWatcher
	added []string
}

func (w *addingWatcher) AddRecursive(root string) error {
	w.added = append(w.added, root)
	return nil
}

func TestWatchAddsMovedTemplateDir(t *testing.T) {
	root := blogProject(t)
	b, err := FromFile(root, "")
	require.NoError(t, err)

	w := &addingWatcher{fakeWatcher: newFakeWatcher()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Watch(ctx, w) }()

	for _, name := range []string{"index.html", "post.html"} {
		content := testutils.ReadFile(t, filepath.Join(root, "templates", name))
		require.NoError(t, os.MkdirAll(filepath.Join(root, "layouts"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "layouts", name), []byte(content), 0o644))
	}
	cfgText := "[build]\ntemplates_dir = \"layouts\"\n\n" + testutils.BlogConfig
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.toml"), []byte(cfgText), 0o644))

	w.batches <- []watcher.ChangeEvent{{Path: filepath.Join(root, "config.toml")}}
	w.batches <- []watcher.ChangeEvent{{Path: filepath.Join(root, "layouts", "index.html")}}
	waitWatch(t, cancel, done)

	assert.Equal(t, []string{filepath.Join(root, "layouts")}, w.added)
	assert.FileExists(t, filepath.Join(root, "public", "index.html"))
}

func TestWatchReturnsWatcherFailure(t *testing.T) {
	root := blogProject(t)
	b, err := FromFile(root, "")
	require.NoError(t, err)

	w := newFakeWatcher()
	failure := errors.NewWatchError(errors.ErrCodeWatchFailed, "file watcher failed", nil)
	w.errs <- failure

	err = b.Watch(context.Background(), w)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeWatch))
	assert.True(t, w.stopped)
}

func TestWatchPaths(t *testing.T) {
	root := blogProject(t)
	b, err := FromFile(root, "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "templates"),
		filepath.Join(root, "data"),
	}, b.WatchPaths())
}
