package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Encode converts v into its tagged wire form. It never fails; the zero
// Value encodes as null.
func Encode(v Value) Field {
	switch v.Kind() {
	case KindBool:
		b := v.boolValue
		return Field{BooleanValue: &b}
	case KindInteger:
		s := strconv.FormatInt(v.intValue, 10)
		return Field{IntegerValue: &s}
	case KindFloat:
		d := v.floatValue
		return Field{DoubleValue: &d}
	case KindString:
		s := v.stringValue
		return Field{StringValue: &s}
	case KindList:
		values := make([]Field, len(v.listValue))
		for i, item := range v.listValue {
			values[i] = Encode(item)
		}
		return Field{ArrayValue: &ArrayValue{Values: values}}
	case KindMap:
		return Field{MapValue: &MapValue{Fields: EncodeMap(v.mapValue)}}
	default:
		return Field{NullValue: true}
	}
}

// EncodeMap converts a top-level document map into wire fields, in order.
func EncodeMap(m *Map) Fields {
	var fields Fields
	m.Range(func(key string, value Value) bool {
		fields.Set(key, Encode(value))
		return true
	})
	return fields
}

// EncodeAny converts a dynamically typed value, degrading unsupported types
// to their string form (see FromAny).
func EncodeAny(value any) Field {
	return Encode(FromAny(value))
}

// Decode converts wire fields back into a map, in order. It has no depth
// limit of its own.
func Decode(fields Fields) (*Map, error) {
	return decodeFields(fields)
}

// DecodeField converts a single wire field back into a Value.
func DecodeField(f Field) (Value, error) {
	return decodeField(f)
}

func decodeFields(fields Fields) (*Map, error) {
	m := NewMap()
	for _, name := range fields.names {
		v, err := decodeField(fields.fields[name])
		if err != nil {
			return nil, under(err, name)
		}
		m.Set(name, v)
	}
	return m, nil
}

func decodeField(f Field) (Value, error) {
	tags := f.Tags()
	switch {
	case len(f.unknown) > 0:
		return Value{}, &MalformedFieldError{Reason: fmt.Sprintf("unrecognized tag %s", strings.Join(f.unknown, ", "))}
	case len(tags) == 0:
		return Value{}, &MalformedFieldError{Reason: "no value tag"}
	case len(tags) > 1:
		return Value{}, &MalformedFieldError{Reason: fmt.Sprintf("multiple value tags %s", strings.Join(tags, ", "))}
	}

	switch {
	case f.StringValue != nil:
		return String(*f.StringValue), nil
	case f.IntegerValue != nil:
		i, err := strconv.ParseInt(*f.IntegerValue, 10, 64)
		if err != nil {
			return Value{}, &MalformedFieldError{Reason: fmt.Sprintf("integer %q is not a 64-bit decimal", *f.IntegerValue)}
		}
		return Integer(i), nil
	case f.DoubleValue != nil:
		return Float(*f.DoubleValue), nil
	case f.BooleanValue != nil:
		return Bool(*f.BooleanValue), nil
	case f.NullValue:
		return Null(), nil
	case f.MapValue != nil:
		m, err := decodeFields(f.MapValue.Fields)
		if err != nil {
			return Value{}, err
		}
		return Object(m), nil
	default:
		items := make([]Value, len(f.ArrayValue.Values))
		for i, item := range f.ArrayValue.Values {
			v, err := decodeField(item)
			if err != nil {
				return Value{}, under(err, "["+strconv.Itoa(i)+"]")
			}
			items[i] = v
		}
		return Value{kind: KindList, listValue: items}, nil
	}
}

// under prefixes the path of a MalformedFieldError with segment as the
// error travels out of a nested value.
func under(err error, segment string) error {
	var malformed *MalformedFieldError
	if !errors.As(err, &malformed) {
		return err
	}
	switch {
	case malformed.Path == "":
		malformed.Path = segment
	case strings.HasPrefix(malformed.Path, "["):
		malformed.Path = segment + malformed.Path
	default:
		malformed.Path = segment + "." + malformed.Path
	}
	return malformed
}

// MaxDepth is how many map or array values may enclose a value in wire
// JSON. Marshaling a deeper Field or Fields fails. encoding/json stops at
// 10000 nested JSON levels and every wire value level takes three, so
// json.Unmarshal refuses wire input not far past this depth either.
const MaxDepth = 3000

var errTooDeep = fmt.Errorf("document: value nested deeper than %d levels", MaxDepth)

// MalformedFieldError reports a wire value that is not a valid single-tag
// union.
type MalformedFieldError struct {
	Path   string
	Reason string
}

func (e *MalformedFieldError) Error() string {
	if e.Path == "" {
		return "document: malformed field: " + e.Reason
	}
	return fmt.Sprintf("document: malformed field %s: %s", e.Path, e.Reason)
}
