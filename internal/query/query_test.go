package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/lectern/internal/config"
	"github.com/conneroisu/lectern/internal/errors"
	"github.com/conneroisu/lectern/internal/render"
	"github.com/conneroisu/lectern/internal/store"
)

func intPtr(n int) *int { return &n }

func testStore() *store.Store {
	p := store.NewMemoryProvider().
		Add("posts", "a", map[string]any{"slug": "a", "date": "2024-01-01", "status": "published"}).
		Add("posts", "b", map[string]any{"slug": "b", "date": "2024-02-01", "status": "draft"}).
		Add("posts", "c", map[string]any{"slug": "c", "date": "2024-03-01", "status": "pub-review"})
	return store.New(p)
}

func ids(records []store.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestPredicatesOrder(t *testing.T) {
	dq := config.DataQuery{
		WhenExpr:    &config.Expression{Expression: "true"},
		WhenMatches: &config.KeyRegex{Key: "m", Regex: "^x"},
		WhenHasNot:  &config.KeyOnly{Key: "hn"},
		WhenHas:     &config.KeyOnly{Key: "h"},
		WhenIsNot:   &config.KeyEquals{Key: "n", Equals: "1"},
		WhenIs:      &config.KeyEquals{Key: "e", Equals: "2"},
	}

	got := Predicates(dq)
	require.Len(t, got, 6)

	kinds := make([]Kind, len(got))
	for i, p := range got {
		kinds[i] = p.Kind
	}
	assert.Equal(t, []Kind{Equals, NotEquals, Has, NotHas, Matches, Expr}, kinds)
	assert.Equal(t, Predicate{Kind: Equals, Key: "e", Value: "2"}, got[0])
	assert.Equal(t, Predicate{Kind: Matches, Key: "m", Value: "^x"}, got[4])
	assert.Equal(t, "when_matches", Matches.String())
}

func TestPredicatesEmpty(t *testing.T) {
	assert.Empty(t, Predicates(config.DataQuery{Name: "x", Collection: "y"}))
}

func TestEvaluateSortDesc(t *testing.T) {
	p := store.NewMemoryProvider().
		Add("posts", "a", map[string]any{"slug": "a", "date": "2024-01-01"}).
		Add("posts", "b", map[string]any{"slug": "b", "date": "2024-02-01"})

	res, err := Evaluate(store.New(p), config.DataQuery{
		Name:       "posts",
		Collection: "posts",
		Sort:       &config.SortSpec{Key: "date", Order: "desc"},
	})
	require.NoError(t, err)
	assert.Equal(t, All, res.Reduction)
	assert.Equal(t, []string{"b", "a"}, ids(res.Records))
}

func TestEvaluateUnknownOrderIsAsc(t *testing.T) {
	res, err := Evaluate(testStore(), config.DataQuery{
		Collection: "posts",
		Sort:       &config.SortSpec{Key: "date", Order: "upwards"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(res.Records))
}

func TestEvaluateMatches(t *testing.T) {
	res, err := Evaluate(testStore(), config.DataQuery{
		Collection:  "posts",
		WhenMatches: &config.KeyRegex{Key: "status", Regex: "^pub"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(res.Records))
}

func TestEvaluateInvalidPattern(t *testing.T) {
	_, err := Evaluate(testStore(), config.DataQuery{
		Collection:  "posts",
		WhenMatches: &config.KeyRegex{Key: "status", Regex: "[unclosed"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypePattern))
}

func TestEvaluateLimit(t *testing.T) {
	res, err := Evaluate(testStore(), config.DataQuery{Collection: "posts", Limit: intPtr(0)})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, []store.Record{}, res.Value())

	res, err = Evaluate(testStore(), config.DataQuery{
		Collection: "posts",
		Sort:       &config.SortSpec{Key: "date", Order: "desc"},
		Limit:      intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids(res.Records))
}

func TestEvaluateReductions(t *testing.T) {
	sorted := config.DataQuery{Collection: "posts", Sort: &config.SortSpec{Key: "date", Order: "desc"}}

	first := sorted
	first.First = true
	res, err := Evaluate(testStore(), first)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, "c", res.Record.ID)
	assert.Equal(t, res.Record, res.Value())
	assert.Equal(t, 1, res.Len())

	last := sorted
	last.Last = true
	res, err = Evaluate(testStore(), last)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, "a", res.Record.ID)
}

func TestEvaluateReductionOnEmpty(t *testing.T) {
	for _, dq := range []config.DataQuery{
		{Collection: "posts", WhenIs: &config.KeyEquals{Key: "status", Equals: "gone"}, First: true},
		{Collection: "posts", WhenIs: &config.KeyEquals{Key: "status", Equals: "gone"}, Last: true},
		{Collection: "missing", First: true},
	} {
		res, err := Evaluate(testStore(), dq)
		require.NoError(t, err)
		assert.False(t, res.Found)
		assert.Nil(t, res.Value())
		assert.Equal(t, 0, res.Len())
	}
}

func TestEvaluateAllPredicates(t *testing.T) {
	p := store.NewMemoryProvider().
		Add("c", "keep", map[string]any{"kind": "post", "date": "x", "slug": "abc", "views": 20}).
		Add("c", "draft", map[string]any{"kind": "post", "draft": true, "date": "x", "slug": "abd", "views": 20}).
		Add("c", "nodate", map[string]any{"kind": "post", "slug": "abe", "views": 20}).
		Add("c", "hidden", map[string]any{"kind": "post", "date": "x", "hidden": 1, "slug": "abf", "views": 20}).
		Add("c", "slug", map[string]any{"kind": "post", "date": "x", "slug": "zzz", "views": 20}).
		Add("c", "few", map[string]any{"kind": "post", "date": "x", "slug": "abg", "views": 1}).
		Add("c", "page", map[string]any{"kind": "page", "date": "x", "slug": "abh", "views": 20})

	res, err := Evaluate(store.New(p), config.DataQuery{
		Collection:  "c",
		WhenIs:      &config.KeyEquals{Key: "kind", Equals: "post"},
		WhenIsNot:   &config.KeyEquals{Key: "draft", Equals: "true"},
		WhenHas:     &config.KeyOnly{Key: "date"},
		WhenHasNot:  &config.KeyOnly{Key: "hidden"},
		WhenMatches: &config.KeyRegex{Key: "slug", Regex: "^ab"},
		WhenExpr:    &config.Expression{Expression: "views > 10"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, ids(res.Records))
}

func TestCompose(t *testing.T) {
	base := render.NewContext().With("site", map[string]any{"title": "T"})

	ctx, err := Compose(testStore(), []config.DataQuery{
		{Name: "posts", Collection: "posts"},
		{Name: "latest", Collection: "posts", Sort: &config.SortSpec{Key: "date", Order: "desc"}, First: true},
		{Name: "none", Collection: "posts", WhenHas: &config.KeyOnly{Key: "nope"}, Last: true},
	}, base)
	require.NoError(t, err)

	m := ctx.Map()
	assert.Equal(t, map[string]any{"title": "T"}, m["site"])
	assert.Equal(t, []string{"a", "b", "c"}, ids(m["posts"].([]store.Record)))
	assert.Equal(t, "c", m["latest"].(store.Record).ID)
	v, ok := ctx.Lookup("none")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = base.Lookup("posts")
	assert.False(t, ok, "base context is not modified")
}

func TestComposeShadowing(t *testing.T) {
	ctx, err := Compose(testStore(), []config.DataQuery{
		{Name: "x", Collection: "posts"},
		{Name: "x", Collection: "posts", Last: true},
	}, nil)
	require.NoError(t, err)

	v, _ := ctx.Lookup("x")
	assert.Equal(t, "c", v.(store.Record).ID)
}

func TestComposeAbortsOnError(t *testing.T) {
	ctx, err := Compose(testStore(), []config.DataQuery{
		{Name: "ok", Collection: "posts"},
		{Name: "bad", Collection: "posts", WhenMatches: &config.KeyRegex{Key: "slug", Regex: "("}},
	}, nil)
	require.Error(t, err)
	assert.Nil(t, ctx)
	assert.Contains(t, err.Error(), `query "bad"`)
	assert.True(t, errors.IsType(err, errors.ErrorTypePattern))
}
