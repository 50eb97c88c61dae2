package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Wire tag names of the document database value union.
const (
	TagString  = "stringValue"
	TagInteger = "integerValue"
	TagDouble  = "doubleValue"
	TagBoolean = "booleanValue"
	TagNull    = "nullValue"
	TagMap     = "mapValue"
	TagArray   = "arrayValue"
)

// Field is one tagged value on the wire. Exactly one tag is expected to be
// set; Field keeps whatever it was given so that DecodeField can report
// malformed unions with their path.
type Field struct {
	StringValue  *string
	IntegerValue *string
	DoubleValue  *float64
	BooleanValue *bool
	NullValue    bool
	MapValue     *MapValue
	ArrayValue   *ArrayValue

	// unknown holds keys that are not one of the seven tags.
	unknown []string
}

// MapValue is the payload of a mapValue tag.
type MapValue struct {
	Fields Fields `json:"fields"`
}

// ArrayValue is the payload of an arrayValue tag.
type ArrayValue struct {
	Values []Field `json:"values,omitempty"`
}

// Document is the database's envelope around a field set.
type Document struct {
	Name       string `json:"name,omitempty"`
	Fields     Fields `json:"fields"`
	CreateTime string `json:"createTime,omitempty"`
	UpdateTime string `json:"updateTime,omitempty"`
}

// Tags lists the tag keys present on f, unknown keys included.
func (f Field) Tags() []string {
	var tags []string
	if f.StringValue != nil {
		tags = append(tags, TagString)
	}
	if f.IntegerValue != nil {
		tags = append(tags, TagInteger)
	}
	if f.DoubleValue != nil {
		tags = append(tags, TagDouble)
	}
	if f.BooleanValue != nil {
		tags = append(tags, TagBoolean)
	}
	if f.NullValue {
		tags = append(tags, TagNull)
	}
	if f.MapValue != nil {
		tags = append(tags, TagMap)
	}
	if f.ArrayValue != nil {
		tags = append(tags, TagArray)
	}
	return append(tags, f.unknown...)
}

// MarshalJSON writes the first tag set on f. A field with no tag is written
// as null so that encoding never produces an empty union.
func (f Field) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := appendField(&buf, f, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// appendField writes f and everything under it into one buffer.
func appendField(buf *bytes.Buffer, f Field, depth int) error {
	if depth > MaxDepth {
		return errTooDeep
	}
	switch {
	case f.StringValue != nil:
		return appendTag(buf, TagString, *f.StringValue)
	case f.IntegerValue != nil:
		return appendTag(buf, TagInteger, *f.IntegerValue)
	case f.DoubleValue != nil:
		d := *f.DoubleValue
		switch {
		case math.IsNaN(d):
			return appendTag(buf, TagDouble, "NaN")
		case math.IsInf(d, 1):
			return appendTag(buf, TagDouble, "Infinity")
		case math.IsInf(d, -1):
			return appendTag(buf, TagDouble, "-Infinity")
		}
		return appendTag(buf, TagDouble, d)
	case f.BooleanValue != nil:
		return appendTag(buf, TagBoolean, *f.BooleanValue)
	case f.MapValue != nil:
		buf.WriteString(`{"` + TagMap + `":{"fields":`)
		if err := appendFields(buf, f.MapValue.Fields, depth+1); err != nil {
			return err
		}
		buf.WriteString("}}")
	case f.ArrayValue != nil:
		buf.WriteString(`{"` + TagArray + `":{`)
		if len(f.ArrayValue.Values) > 0 {
			buf.WriteString(`"values":[`)
			for i, item := range f.ArrayValue.Values {
				if i > 0 {
					buf.WriteByte(',')
				}
				if err := appendField(buf, item, depth+1); err != nil {
					return err
				}
			}
			buf.WriteByte(']')
		}
		buf.WriteString("}}")
	default:
		buf.WriteString(`{"` + TagNull + `":null}`)
	}
	return nil
}

func appendTag(buf *bytes.Buffer, tag string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	buf.WriteString(`{"` + tag + `":`)
	buf.Write(data)
	buf.WriteByte('}')
	return nil
}

func appendFields(buf *bytes.Buffer, fs Fields, depth int) error {
	buf.WriteByte('{')
	for i, name := range fs.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := appendField(buf, fs.fields[name], depth); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON accepts any JSON object and records every key it carries.
// Union validity is checked by DecodeField.
func (f *Field) UnmarshalJSON(data []byte) error {
	field, err := readField(json.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return err
	}
	*f = field
	return nil
}

// readField reads one field from dec. Nested values are read from the same
// stream so that each byte is scanned once.
func readField(dec *json.Decoder) (Field, error) {
	var f Field
	ok, err := openObject(dec)
	if err != nil {
		return f, fmt.Errorf("document: field must be a JSON object: %w", err)
	}
	if !ok {
		return f, nil
	}
	for dec.More() {
		tag, err := readKey(dec)
		if err != nil {
			return f, err
		}
		switch tag {
		case TagMap:
			mv, err := readMapValue(dec)
			if err != nil {
				return f, err
			}
			f.MapValue = mv
		case TagArray:
			av, err := readArrayValue(dec)
			if err != nil {
				return f, err
			}
			f.ArrayValue = av
		default:
			var payload json.RawMessage
			if err := dec.Decode(&payload); err != nil {
				return f, fmt.Errorf("document: %s: %w", tag, err)
			}
			if err := f.setScalar(tag, payload); err != nil {
				return f, fmt.Errorf("document: %s: %w", tag, err)
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return f, err
	}
	sort.Strings(f.unknown)
	return f, nil
}

func (f *Field) setScalar(tag string, payload json.RawMessage) error {
	switch tag {
	case TagString:
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return err
		}
		f.StringValue = &s
	case TagInteger:
		s, err := integerText(payload)
		if err != nil {
			return err
		}
		f.IntegerValue = &s
	case TagDouble:
		d, err := doubleFromJSON(payload)
		if err != nil {
			return err
		}
		f.DoubleValue = &d
	case TagBoolean:
		var b bool
		if err := json.Unmarshal(payload, &b); err != nil {
			return err
		}
		f.BooleanValue = &b
	case TagNull:
		f.NullValue = true
	default:
		for _, seen := range f.unknown {
			if seen == tag {
				return nil
			}
		}
		f.unknown = append(f.unknown, tag)
	}
	return nil
}

func readMapValue(dec *json.Decoder) (*MapValue, error) {
	mv := &MapValue{}
	ok, err := openObject(dec)
	if err != nil || !ok {
		return mv, wrapTag(TagMap, err)
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != "fields" {
			if err := skipValue(dec); err != nil {
				return nil, wrapTag(TagMap, err)
			}
			continue
		}
		if mv.Fields, err = readFields(dec); err != nil {
			return nil, err
		}
	}
	_, err = dec.Token()
	return mv, err
}

func readArrayValue(dec *json.Decoder) (*ArrayValue, error) {
	av := &ArrayValue{}
	ok, err := openObject(dec)
	if err != nil || !ok {
		return av, wrapTag(TagArray, err)
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != "values" {
			if err := skipValue(dec); err != nil {
				return nil, wrapTag(TagArray, err)
			}
			continue
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			continue
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			return nil, wrapTag(TagArray, fmt.Errorf("values must be an array, got %v", tok))
		}
		for dec.More() {
			item, err := readField(dec)
			if err != nil {
				return nil, err
			}
			av.Values = append(av.Values, item)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
	}
	_, err = dec.Token()
	return av, err
}

func readFields(dec *json.Decoder) (Fields, error) {
	var fs Fields
	ok, err := openObject(dec)
	if err != nil {
		return fs, errors.New("document: fields must be a JSON object")
	}
	if !ok {
		return fs, nil
	}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return fs, err
		}
		f, err := readField(dec)
		if err != nil {
			return fs, err
		}
		fs.Set(name, f)
	}
	_, err = dec.Token()
	return fs, err
}

// openObject consumes the next token. It reports false for null and fails
// for anything that is not the start of an object.
func openObject(dec *json.Decoder) (bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return false, err
	}
	if tok == nil {
		return false, nil
	}
	if delim, ok := tok.(json.Delim); ok && delim == '{' {
		return true, nil
	}
	return false, fmt.Errorf("unexpected %v", tok)
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("document: unexpected key %v", tok)
	}
	return key, nil
}

func skipValue(dec *json.Decoder) error {
	var raw json.RawMessage
	return dec.Decode(&raw)
}

func wrapTag(tag string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("document: %s: %w", tag, err)
}

// integerText accepts the canonical decimal string and, leniently, a bare
// JSON integer.
func integerText(payload json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(payload, &n); err != nil {
		return "", errors.New("expected decimal string")
	}
	return n.String(), nil
}

func doubleFromJSON(payload json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return strconv.ParseFloat(s, 64)
	}
	var d float64
	if err := json.Unmarshal(payload, &d); err != nil {
		return 0, err
	}
	return d, nil
}

// Fields is an ordered, string-keyed set of wire fields.
type Fields struct {
	names  []string
	fields map[string]Field
}

// Set stores f under name, keeping the original position on overwrite.
func (fs *Fields) Set(name string, f Field) {
	if fs.fields == nil {
		fs.fields = make(map[string]Field)
	}
	if _, ok := fs.fields[name]; !ok {
		fs.names = append(fs.names, name)
	}
	fs.fields[name] = f
}

// Get retrieves a field by name.
func (fs Fields) Get(name string) (Field, bool) {
	f, ok := fs.fields[name]
	return f, ok
}

// Delete removes name, reporting whether it was present.
func (fs *Fields) Delete(name string) bool {
	if _, ok := fs.fields[name]; !ok {
		return false
	}
	delete(fs.fields, name)
	for i, n := range fs.names {
		if n == name {
			fs.names = append(fs.names[:i], fs.names[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of fields.
func (fs Fields) Len() int { return len(fs.names) }

// Names returns field names in order.
func (fs Fields) Names() []string { return append([]string(nil), fs.names...) }

// MarshalJSON writes the fields as a JSON object in order.
func (fs Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := appendFields(&buf, fs, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of fields, keeping key order.
func (fs *Fields) UnmarshalJSON(data []byte) error {
	fields, err := readFields(json.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return err
	}
	*fs = fields
	return nil
}
