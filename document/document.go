// Package document models decoded JSON documents for validation.
//
// The standard map[string]any decoding loses two properties validation
// depends on: object member order (violation reports visit map entries in
// document order) and the integer/decimal distinction (2 and 2.5 are
// different kinds). Value is a closed sum that keeps both: objects are
// ordered member slices, and numbers decode as Integer when the literal is
// an integer in int64 range, Decimal otherwise.
package document

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind identifies the runtime type of a decoded JSON value.
type Kind string

// Value kinds.
const (
	KindNull    Kind = "Null"
	KindBool    Kind = "Bool"
	KindInteger Kind = "Integer"
	KindDecimal Kind = "Decimal"
	KindString  Kind = "String"
	KindList    Kind = "List"
	KindObject  Kind = "Object"
)

// Value is one vertex of a decoded document. The concrete types are Null,
// Bool, Integer, Decimal, String, List, and Object; the set is closed.
type Value interface {
	Kind() Kind
}

// Null is the JSON null value.
type Null struct{}

// Kind implements Value.
func (Null) Kind() Kind { return KindNull }

// Bool is a JSON boolean.
type Bool bool

// Kind implements Value.
func (Bool) Kind() Kind { return KindBool }

// Integer is a JSON number written as an integer literal within int64 range.
type Integer int64

// Kind implements Value.
func (Integer) Kind() Kind { return KindInteger }

// Decimal is any other JSON number: fractional, exponent form, or beyond
// int64 range.
type Decimal float64

// Kind implements Value.
func (Decimal) Kind() Kind { return KindDecimal }

// String is a JSON string.
type String string

// Kind implements Value.
func (String) Kind() Kind { return KindString }

// List is a JSON array.
type List []Value

// Kind implements Value.
func (List) Kind() Kind { return KindList }

// Member is one key/value entry of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object is a JSON object with member order preserved.
type Object []Member

// Kind implements Value.
func (Object) Kind() Kind { return KindObject }

// Get returns the value of the first member with the given key.
func (o Object) Get(key string) (Value, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Has reports whether a member with the given key exists.
func (o Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Keys returns the member keys in document order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, m := range o {
		keys[i] = m.Key
	}
	return keys
}

// FromAny converts a value produced by encoding/json (or assembled by hand)
// into a Value. Maps have no inherent order, so their keys are sorted to keep
// results deterministic; decode JSON with Decode to preserve document order.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return fromNumber(t)
	case int:
		return Integer(t), nil
	case int32:
		return Integer(t), nil
	case int64:
		return Integer(t), nil
	case float32:
		return Decimal(t), nil
	case float64:
		return Decimal(t), nil
	case []any:
		list := make(List, 0, len(t))
		for _, item := range t {
			val, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		obj := make(Object, 0, len(t))
		for _, k := range keys {
			val, err := FromAny(t[k])
			if err != nil {
				return nil, err
			}
			obj = append(obj, Member{Key: k, Value: val})
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
