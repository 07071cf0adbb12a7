package store

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/conneroisu/lectern/internal/errors"
)

// SortOrder is the direction of a Sort.
type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

// String returns the string representation of the SortOrder
func (o SortOrder) String() string {
	if o == Desc {
		return "desc"
	}
	return "asc"
}

// ParseSortOrder maps "asc"/"desc" (any case) to a SortOrder. Anything else
// is Asc.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Desc
	}
	return Asc
}

// step narrows or reorders a candidate set.
type step func([]Record) ([]Record, error)

// Query is a chainable selection over one collection. Every method returns a
// new Query; the receiver is never modified, so a partially built Query can
// be shared and extended independently.
//
// Steps run in the order they were added when a terminal method (All, First,
// Last) is called. Errors from building a step, such as an invalid regular
// expression, are reported by the terminal call.
type Query struct {
	store      *Store
	collection string
	steps      []step
}

// Collection returns the name of the collection the query reads.
func (q Query) Collection() string {
	return q.collection
}

func (q Query) then(s step) Query {
	steps := make([]step, len(q.steps), len(q.steps)+1)
	copy(steps, q.steps)
	return Query{store: q.store, collection: q.collection, steps: append(steps, s)}
}

func (q Query) filter(keep func(Record) bool) Query {
	return q.then(func(records []Record) ([]Record, error) {
		out := make([]Record, 0, len(records))
		for _, r := range records {
			if keep(r) {
				out = append(out, r)
			}
		}
		return out, nil
	})
}

func (q Query) fail(err error) Query {
	return q.then(func([]Record) ([]Record, error) {
		return nil, err
	})
}

// WhenIs keeps records whose field key has the canonical text form equals.
func (q Query) WhenIs(key, equals string) Query {
	return q.filter(func(r Record) bool {
		return fieldEquals(r, key, equals)
	})
}

// WhenIsNot keeps records for which WhenIs would not match, including
// records without the field.
func (q Query) WhenIsNot(key, equals string) Query {
	return q.filter(func(r Record) bool {
		return !fieldEquals(r, key, equals)
	})
}

// WhenHas keeps records that have the field, even when its value is null.
func (q Query) WhenHas(key string) Query {
	return q.filter(func(r Record) bool {
		_, ok := r.Get(key)
		return ok
	})
}

// WhenHasNot keeps records that lack the field.
func (q Query) WhenHasNot(key string) Query {
	return q.filter(func(r Record) bool {
		_, ok := r.Get(key)
		return !ok
	})
}

// WhenMatches keeps records whose string field key matches the regular
// expression pattern. Non-string values never match.
func (q Query) WhenMatches(key, pattern string) Query {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return q.fail(errors.NewPatternError(
			errors.ErrCodeInvalidPattern,
			fmt.Sprintf("invalid regular expression %q for field %q", pattern, key),
			err,
		))
	}
	return q.filter(func(r Record) bool {
		s, ok := r.Field(key).(string)
		return ok && re.MatchString(s)
	})
}

// WhenExpr keeps records for which the boolean expression evaluates to true.
// The expression sees every record field by name plus id, collection and
// file_name. Records for which evaluation fails do not match.
func (q Query) WhenExpr(expression string) Query {
	prog, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return q.fail(errors.NewPatternError(
			errors.ErrCodeInvalidExpression,
			fmt.Sprintf("invalid expression %q", expression),
			err,
		))
	}
	return q.filter(func(r Record) bool {
		return evalBool(prog, r)
	})
}

func evalBool(prog *vm.Program, r Record) bool {
	env := make(map[string]any, len(r.Data)+3)
	for k, v := range r.Data {
		env[k] = v
	}
	env["id"] = r.ID
	env["collection"] = r.Collection
	env["file_name"] = r.FileName

	out, err := expr.Run(prog, env)
	if err != nil {
		return false
	}
	matched, ok := out.(bool)
	return ok && matched
}

// Sort orders records by field key. The sort is stable. The kind of the
// first record holding a string, number or bool at key decides how values
// compare; records whose value is missing or of another kind keep their
// relative order after all ordered records, in both directions.
func (q Query) Sort(key string, order SortOrder) Query {
	return q.then(func(records []Record) ([]Record, error) {
		return sortRecords(records, key, order), nil
	})
}

// Limit keeps at most n records from the front. Negative n is treated as 0.
func (q Query) Limit(n int) Query {
	if n < 0 {
		n = 0
	}
	return q.then(func(records []Record) ([]Record, error) {
		if n < len(records) {
			return records[:n], nil
		}
		return records, nil
	})
}

// All runs the query and returns every selected record.
func (q Query) All() ([]Record, error) {
	records, err := q.store.records(q.collection)
	if err != nil {
		return nil, err
	}
	for _, s := range q.steps {
		if records, err = s(records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// First runs the query and returns the head record. ok is false when the
// selection is empty.
func (q Query) First() (rec Record, ok bool, err error) {
	records, err := q.All()
	if err != nil || len(records) == 0 {
		return Record{}, false, err
	}
	return records[0], true, nil
}

// Last runs the query and returns the tail record. ok is false when the
// selection is empty.
func (q Query) Last() (rec Record, ok bool, err error) {
	records, err := q.All()
	if err != nil || len(records) == 0 {
		return Record{}, false, err
	}
	return records[len(records)-1], true, nil
}

func fieldEquals(r Record, key, equals string) bool {
	v, ok := r.Get(key)
	if !ok {
		return false
	}
	text, ok := Text(v)
	return ok && text == equals
}

func sortRecords(records []Record, key string, order SortOrder) []Record {
	ref := KindNull
	for _, r := range records {
		switch k := KindOf(r.Field(key)); k {
		case KindString, KindNumber, KindBool:
			ref = k
		}
		if ref != KindNull {
			break
		}
	}

	ordered := make([]Record, 0, len(records))
	rest := make([]Record, 0)
	for _, r := range records {
		if ref != KindNull && KindOf(r.Field(key)) == ref {
			ordered = append(ordered, r)
		} else {
			rest = append(rest, r)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Field(key), ordered[j].Field(key)
		if order == Desc {
			return less(b, a)
		}
		return less(a, b)
	})

	return append(ordered, rest...)
}

// less compares two values of the same kind.
func less(a, b any) bool {
	switch av := a.(type) {
	case string:
		return av < b.(string)
	case bool:
		return !av && b.(bool)
	default:
		an, _ := Number(a)
		bn, _ := Number(b)
		return an < bn
	}
}
