package query

import (
	"fmt"

	"github.com/conneroisu/lectern/internal/config"
	"github.com/conneroisu/lectern/internal/render"
	"github.com/conneroisu/lectern/internal/store"
)

// Compose evaluates every query in declaration order and binds each result
// under its name on top of base. A later query shadows an earlier one with
// the same name. The first failing query aborts composition.
func Compose(s *store.Store, queries []config.DataQuery, base *render.Context) (*render.Context, error) {
	ctx := base
	if ctx == nil {
		ctx = render.NewContext()
	}

	for _, dq := range queries {
		res, err := Evaluate(s, dq)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", dq.Name, err)
		}
		ctx = ctx.With(dq.Name, res.Value())
	}

	return ctx, nil
}
