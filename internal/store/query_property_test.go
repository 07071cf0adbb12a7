//go:build property

package store

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func storeOf(values []int) *Store {
	p := NewMemoryProvider()
	for i, v := range values {
		data := map[string]any{"rank": v % 4, "status": fmt.Sprintf("s%d", v%3)}
		if v%5 == 0 {
			data["flag"] = true
		}
		p.Add("c", fmt.Sprintf("r%03d", i), data)
	}
	return New(p)
}

// TestQueryProperties validates ordering-independent properties of queries
func TestQueryProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("predicates commute", prop.ForAll(
		func(values []int) bool {
			s := storeOf(values)
			ab, errA := s.Collection("c").WhenIs("status", "s1").WhenHasNot("flag").WhenMatches("status", "^s").All()
			ba, errB := s.Collection("c").WhenMatches("status", "^s").WhenHasNot("flag").WhenIs("status", "s1").All()
			if errA != nil || errB != nil {
				return false
			}
			return fmt.Sprint(ids(ab)) == fmt.Sprint(ids(ba))
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.Property("sort is stable for equal keys", prop.ForAll(
		func(values []int, desc bool) bool {
			order := Asc
			if desc {
				order = Desc
			}
			got, err := storeOf(values).Collection("c").Sort("rank", order).All()
			if err != nil {
				return false
			}
			for i := 1; i < len(got); i++ {
				prev, cur := got[i-1], got[i]
				if prev.Field("rank") == cur.Field("rank") && prev.ID > cur.ID {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.Bool(),
	))

	properties.Property("limit returns a prefix", prop.ForAll(
		func(values []int, n int) bool {
			q := storeOf(values).Collection("c").Sort("rank", Asc)
			all, err := q.All()
			if err != nil {
				return false
			}
			limited, err := q.Limit(n).All()
			if err != nil {
				return false
			}
			want := n
			if len(all) < want {
				want = len(all)
			}
			return len(limited) == want && fmt.Sprint(ids(limited)) == fmt.Sprint(ids(all[:want]))
		},
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
