package document

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// FromAny converts a dynamically typed Go value into a Value.
//
// Floats go through the integrality test, so float64(3) becomes an integer.
// Values with no defined mapping degrade to their string form instead of
// failing: time.Time renders as RFC 3339, fmt.Stringer and error use their
// text, anything else uses fmt.Sprint. Unsigned values above MaxInt64 keep
// their exact decimal text as a string.
func FromAny(value any) Value {
	switch v := value.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case *Value:
		if v == nil {
			return Null()
		}
		return *v
	case *Map:
		if v == nil {
			return Null()
		}
		return Object(v)
	case []Value:
		return List(v...)
	case bool:
		return Bool(v)
	case string:
		return String(v)
	case int:
		return Integer(int64(v))
	case int8:
		return Integer(int64(v))
	case int16:
		return Integer(int64(v))
	case int32:
		return Integer(int64(v))
	case int64:
		return Integer(v)
	case uint:
		return fromUint(uint64(v))
	case uint8:
		return Integer(int64(v))
	case uint16:
		return Integer(int64(v))
	case uint32:
		return Integer(int64(v))
	case uint64:
		return fromUint(v)
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case json.Number:
		n, err := numberValue(v)
		if err != nil {
			return String(v.String())
		}
		return n
	case []byte:
		return String(string(v))
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = FromAny(item)
		}
		return Value{kind: KindList, listValue: items}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.Set(k, FromAny(v[k]))
		}
		return Object(m)
	case time.Time:
		return String(v.Format(time.RFC3339Nano))
	case fmt.Stringer:
		return String(v.String())
	case error:
		return String(v.Error())
	}
	return fromReflect(reflect.ValueOf(value))
}

func fromUint(v uint64) Value {
	if v > math.MaxInt64 {
		return String(strconv.FormatUint(v, 10))
	}
	return Integer(int64(v))
}

// fromReflect covers typed slices, string-keyed maps and pointers; anything
// else falls back to fmt.Sprint.
func fromReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		return FromAny(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null()
		}
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = FromAny(rv.Index(i).Interface())
		}
		return Value{kind: KindList, listValue: items}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if rv.IsNil() {
			return Null()
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		m := NewMap()
		for _, k := range keys {
			m.Set(k.String(), FromAny(rv.MapIndex(k).Interface()))
		}
		return Object(m)
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Integer(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fromUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return fromFloat(rv.Float())
	}
	return String(fmt.Sprint(rv.Interface()))
}

// MapFromAny converts a map[string]any (or any string-keyed map) into a Map.
// Keys are ordered lexically since Go maps carry no order.
func MapFromAny(values any) (*Map, error) {
	v := FromAny(values)
	if v.Kind() == KindNull {
		return NewMap(), nil
	}
	return v.MapValue()
}
