// Package query evaluates the [[data]] queries of a configuration against a
// store and composes their results into a render context.
//
// The predicates of a query run in a fixed order: equals, not-equals, has,
// not-has, matches, expr. Sort, limit and the first/last reduction follow.
// Filters commute, so the order only matters for what sort sees as store
// order.
package query

import (
	"fmt"

	"github.com/conneroisu/lectern/internal/config"
	"github.com/conneroisu/lectern/internal/store"
)

// Kind identifies a predicate variant.
type Kind int

const (
	Equals Kind = iota
	NotEquals
	Has
	NotHas
	Matches
	Expr
)

// String returns the configuration key of the variant.
func (k Kind) String() string {
	switch k {
	case Equals:
		return "when_is"
	case NotEquals:
		return "when_is_not"
	case Has:
		return "when_has"
	case NotHas:
		return "when_has_not"
	case Matches:
		return "when_matches"
	case Expr:
		return "when_expr"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Predicate is one filter condition. Value holds the compared text for
// Equals and NotEquals, the pattern for Matches and the expression for Expr.
type Predicate struct {
	Kind  Kind
	Key   string
	Value string
}

// Apply narrows q by the predicate.
func (p Predicate) Apply(q store.Query) store.Query {
	switch p.Kind {
	case Equals:
		return q.WhenIs(p.Key, p.Value)
	case NotEquals:
		return q.WhenIsNot(p.Key, p.Value)
	case Has:
		return q.WhenHas(p.Key)
	case NotHas:
		return q.WhenHasNot(p.Key)
	case Matches:
		return q.WhenMatches(p.Key, p.Value)
	case Expr:
		return q.WhenExpr(p.Value)
	default:
		return q
	}
}

// Predicates lists the predicates present in dq in evaluation order.
func Predicates(dq config.DataQuery) []Predicate {
	var ps []Predicate
	if dq.WhenIs != nil {
		ps = append(ps, Predicate{Kind: Equals, Key: dq.WhenIs.Key, Value: dq.WhenIs.Equals})
	}
	if dq.WhenIsNot != nil {
		ps = append(ps, Predicate{Kind: NotEquals, Key: dq.WhenIsNot.Key, Value: dq.WhenIsNot.Equals})
	}
	if dq.WhenHas != nil {
		ps = append(ps, Predicate{Kind: Has, Key: dq.WhenHas.Key})
	}
	if dq.WhenHasNot != nil {
		ps = append(ps, Predicate{Kind: NotHas, Key: dq.WhenHasNot.Key})
	}
	if dq.WhenMatches != nil {
		ps = append(ps, Predicate{Kind: Matches, Key: dq.WhenMatches.Key, Value: dq.WhenMatches.Regex})
	}
	if dq.WhenExpr != nil {
		ps = append(ps, Predicate{Kind: Expr, Value: dq.WhenExpr.Expression})
	}
	return ps
}

// Reduction selects what of the final sequence gets bound.
type Reduction int

const (
	All Reduction = iota
	First
	Last
)

// String returns the string representation of the Reduction
func (r Reduction) String() string {
	switch r {
	case First:
		return "first"
	case Last:
		return "last"
	default:
		return "all"
	}
}

// ReductionOf returns the reduction configured for dq. Validation rejects
// queries setting both first and last; First wins if one slips through.
func ReductionOf(dq config.DataQuery) Reduction {
	switch {
	case dq.First:
		return First
	case dq.Last:
		return Last
	default:
		return All
	}
}

// Result is the outcome of one query.
type Result struct {
	Reduction Reduction
	// Records is the full sequence for All.
	Records []store.Record
	// Record and Found hold the selected record for First and Last.
	Record store.Record
	Found  bool
}

// Value returns what is bound in the render context: the record slice for
// All, the record for First/Last, or nil when the selection was empty.
func (r Result) Value() any {
	if r.Reduction == All {
		if r.Records == nil {
			return []store.Record{}
		}
		return r.Records
	}
	if !r.Found {
		return nil
	}
	return r.Record
}

// Len reports how many records the result holds.
func (r Result) Len() int {
	if r.Reduction == All {
		return len(r.Records)
	}
	if r.Found {
		return 1
	}
	return 0
}

// Build folds the query specification into a store query without running it.
func Build(s *store.Store, dq config.DataQuery) store.Query {
	q := s.Collection(dq.Collection)
	for _, p := range Predicates(dq) {
		q = p.Apply(q)
	}
	if dq.Sort != nil {
		q = q.Sort(dq.Sort.Key, store.ParseSortOrder(dq.Sort.Order))
	}
	if dq.Limit != nil {
		q = q.Limit(*dq.Limit)
	}
	return q
}

// Evaluate runs dq against s.
func Evaluate(s *store.Store, dq config.DataQuery) (Result, error) {
	q := Build(s, dq)
	res := Result{Reduction: ReductionOf(dq)}

	var err error
	switch res.Reduction {
	case First:
		res.Record, res.Found, err = q.First()
	case Last:
		res.Record, res.Found, err = q.Last()
	default:
		res.Records, err = q.All()
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}
