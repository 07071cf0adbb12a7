package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Record is one stored item: a named mapping of fields read from a single
// file of a collection. The pipeline never mutates records.
type Record struct {
	ID         string
	Collection string
	FileName   string
	Data       map[string]any
}

// Get returns the field value and whether the field is present.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.Data[key]
	return v, ok
}

// Field returns the field value, or nil when absent.
func (r Record) Field(key string) any {
	return r.Data[key]
}

// Kind classifies a normalized field value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// KindOf classifies v. Values are expected to be normalized; anything
// unrecognized is reported as KindNull.
func KindOf(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case int64, float64:
		return KindNumber
	case bool:
		return KindBool
	case []any:
		return KindList
	case map[string]any:
		return KindMap
	default:
		return KindNull
	}
}

// Text returns the canonical text form of a scalar value: strings verbatim,
// numbers in shortest decimal form, booleans as true/false. Null, lists and
// maps have no text form.
func Text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// Number returns v as a float64 when it is numeric.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// Normalize converts decoder output (yaml, toml, json) into the value set
// understood by KindOf: string, int64, float64, bool, nil, []any and
// map[string]any.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool, int64, float64:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return normalizeUint(uint64(t))
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return normalizeUint(t)
	case float32:
		return float64(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case time.Time:
		return t.Format(time.RFC3339)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Normalize(item)
		}
		return out
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = Normalize(item)
		}
		return out
	case fmt.Stringer:
		// toml.LocalDate, toml.LocalDateTime and friends.
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}
