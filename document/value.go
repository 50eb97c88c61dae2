// Package document models the per-application data shape exposed to embedding
// applications and converts it to and from the tagged-value wire format used by
// the backing document database.
package document

import (
	"fmt"
	"math"
)

// Kind names the variant held by a Value.
type Kind string

const (
	KindNull    Kind = "null"
	KindBool    Kind = "bool"
	KindInteger Kind = "integer"
	KindFloat   Kind = "float"
	KindString  Kind = "string"
	KindList    Kind = "list"
	KindMap     Kind = "map"
)

// Value is a generic document value without interface{} leakage.
// The zero Value is null.
type Value struct {
	kind        Kind
	boolValue   bool
	intValue    int64
	floatValue  float64
	stringValue string
	listValue   []Value
	mapValue    *Map
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.Kind() == KindNull }

func Null() Value {
	return Value{kind: KindNull}
}

func Bool(val bool) Value {
	return Value{kind: KindBool, boolValue: val}
}

func Integer(val int64) Value {
	return Value{kind: KindInteger, intValue: val}
}

func Float(val float64) Value {
	return Value{kind: KindFloat, floatValue: val}
}

func String(val string) Value {
	return Value{kind: KindString, stringValue: val}
}

// List copies items into a new list value.
func List(items ...Value) Value {
	return Value{kind: KindList, listValue: append([]Value(nil), items...)}
}

// Object wraps m as a map value. A nil map becomes an empty one.
func Object(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, mapValue: m}
}

func (v Value) BoolValue() (bool, error) {
	if v.kind == KindBool {
		return v.boolValue, nil
	}
	return false, TypeError{Want: KindBool, Got: v.Kind()}
}

func (v Value) IntegerValue() (int64, error) {
	if v.kind == KindInteger {
		return v.intValue, nil
	}
	return 0, TypeError{Want: KindInteger, Got: v.Kind()}
}

func (v Value) FloatValue() (float64, error) {
	if v.kind == KindFloat {
		return v.floatValue, nil
	}
	return 0, TypeError{Want: KindFloat, Got: v.Kind()}
}

// NumberValue returns integer and float values as float64.
func (v Value) NumberValue() (float64, error) {
	switch v.kind {
	case KindInteger:
		return float64(v.intValue), nil
	case KindFloat:
		return v.floatValue, nil
	default:
		return 0, TypeError{Want: KindFloat, Got: v.Kind()}
	}
}

func (v Value) StringValue() (string, error) {
	if v.kind == KindString {
		return v.stringValue, nil
	}
	return "", TypeError{Want: KindString, Got: v.Kind()}
}

// ListValue returns a copy of the list items.
func (v Value) ListValue() ([]Value, error) {
	if v.kind == KindList {
		return append([]Value(nil), v.listValue...), nil
	}
	return nil, TypeError{Want: KindList, Got: v.Kind()}
}

func (v Value) MapValue() (*Map, error) {
	if v.kind == KindMap {
		return v.mapValue, nil
	}
	return nil, TypeError{Want: KindMap, Got: v.Kind()}
}

// Any converts v back into plain Go values: nil, bool, int64, float64,
// string, []any and map[string]any. Map key order is not retained.
func (v Value) Any() any {
	switch v.Kind() {
	case KindBool:
		return v.boolValue
	case KindInteger:
		return v.intValue
	case KindFloat:
		return v.floatValue
	case KindString:
		return v.stringValue
	case KindList:
		out := make([]any, len(v.listValue))
		for i, item := range v.listValue {
			out[i] = item.Any()
		}
		return out
	case KindMap:
		return v.mapValue.Any()
	default:
		return nil
	}
}

// Equal reports deep equality, including map key order. NaN equals NaN.
func (v Value) Equal(other Value) bool {
	if v.Kind() != other.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindBool:
		return v.boolValue == other.boolValue
	case KindInteger:
		return v.intValue == other.intValue
	case KindFloat:
		if math.IsNaN(v.floatValue) && math.IsNaN(other.floatValue) {
			return true
		}
		return v.floatValue == other.floatValue
	case KindString:
		return v.stringValue == other.stringValue
	case KindList:
		if len(v.listValue) != len(other.listValue) {
			return false
		}
		for i := range v.listValue {
			if !v.listValue[i].Equal(other.listValue[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.mapValue.Equal(other.mapValue)
	default:
		return false
	}
}

// String renders v for debugging.
func (v Value) String() string {
	switch v.Kind() {
	case KindString:
		return fmt.Sprintf("%q", v.stringValue)
	case KindNull:
		return "null"
	default:
		data, err := v.MarshalJSON()
		if err != nil {
			return fmt.Sprintf("<%s>", v.Kind())
		}
		return string(data)
	}
}

// TypeError is returned by the typed accessors when the variant does not match.
type TypeError struct {
	Path string
	Want Kind
	Got  Kind
}

func (e TypeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: value is %s, not %s", e.Path, e.Got, e.Want)
	}
	return fmt.Sprintf("value is %s, not %s", e.Got, e.Want)
}
