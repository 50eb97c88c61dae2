package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// MarshalJSON renders v as plain JSON. Non-finite floats cannot be rendered.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.boolValue), nil
	case KindInteger:
		return strconv.AppendInt(nil, v.intValue, 10), nil
	case KindFloat:
		if math.IsNaN(v.floatValue) || math.IsInf(v.floatValue, 0) {
			return nil, fmt.Errorf("document: %v has no JSON form", v.floatValue)
		}
		return json.Marshal(v.floatValue)
	case KindString:
		return json.Marshal(v.stringValue)
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.listValue {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindMap:
		return v.mapValue.MarshalJSON()
	default:
		return nil, fmt.Errorf("document: unknown value kind %q", v.kind)
	}
}

// UnmarshalJSON parses any JSON value, keeping object key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON renders the map as a JSON object in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	var err error
	i := 0
	m.Range(func(key string, value Value) bool {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		keyData, _ := json.Marshal(key)
		buf.Write(keyData)
		buf.WriteByte(':')
		var data []byte
		data, err = value.MarshalJSON()
		if err != nil {
			err = fmt.Errorf("%s: %w", key, err)
			return false
		}
		buf.Write(data)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object, keeping key order. null yields an
// empty map.
func (m *Map) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = *NewMap()
		return nil
	}
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	obj, err := parsed.MapValue()
	if err != nil {
		return fmt.Errorf("document: expected JSON object: %w", err)
	}
	*m = *obj
	return nil
}

// ParseJSON parses a single JSON value. Numbers without a fractional part
// that fit in int64 become integers, everything else becomes a float.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("document: unexpected data after JSON value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return numberValue(t)
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("document: unexpected object key %v", keyTok)
				}
				item, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				m.Set(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Object(m), nil
		case '[':
			var items []Value
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindList, listValue: items}, nil
		}
	}
	return Value{}, fmt.Errorf("document: unexpected JSON token %v", tok)
}

func numberValue(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Integer(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("document: invalid number %q: %w", n.String(), err)
	}
	return fromFloat(f), nil
}

// twoTo63 is the first float64 outside the int64 range.
const twoTo63 = 9223372036854775808.0

func isIntegral(f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return f == math.Trunc(f) && f >= -twoTo63 && f < twoTo63
}

func fromFloat(f float64) Value {
	if isIntegral(f) {
		return Integer(int64(f))
	}
	return Float(f)
}
