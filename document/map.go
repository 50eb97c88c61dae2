package document

// Entry is a single key/value pair used to build maps in order.
type Entry struct {
	Key   string
	Value Value
}

// Pair is shorthand for an Entry literal.
func Pair(key string, value Value) Entry {
	return Entry{Key: key, Value: value}
}

// Map is a string-keyed map that remembers insertion order.
// Methods on a nil *Map behave like an empty map for reads.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// MapOf builds a map from entries. A repeated key keeps its first position
// and its last value.
func MapOf(entries ...Entry) *Map {
	m := &Map{values: make(map[string]Value, len(entries))}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

// Set stores value under key. Overwriting keeps the key's original position.
func (m *Map) Set(key string, value Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get retrieves a value by key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Delete removes key, reporting whether it was present.
func (m *Map) Delete(key string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Range calls fn for each entry in order until fn returns false.
func (m *Map) Range(fn func(key string, value Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	out := NewMap()
	m.Range(func(key string, value Value) bool {
		out.Set(key, cloneValue(value))
		return true
	})
	return out
}

// Equal reports whether both maps hold equal values under the same keys in
// the same order.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	otherKeys := other.Keys()
	for i, k := range m.Keys() {
		if otherKeys[i] != k {
			return false
		}
		a, _ := m.Get(k)
		b, _ := other.Get(k)
		if !a.Equal(b) {
			return false
		}
	}
	return true
}

// Any converts the map into a map[string]any.
func (m *Map) Any() map[string]any {
	out := make(map[string]any, m.Len())
	m.Range(func(key string, value Value) bool {
		out[key] = value.Any()
		return true
	})
	return out
}

func cloneValue(v Value) Value {
	switch v.Kind() {
	case KindList:
		items := make([]Value, len(v.listValue))
		for i, item := range v.listValue {
			items[i] = cloneValue(item)
		}
		return Value{kind: KindList, listValue: items}
	case KindMap:
		return Object(v.mapValue.Clone())
	default:
		return v
	}
}
