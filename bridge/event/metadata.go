package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies the scalar type held by a metadata Value.
type Kind int

const (
	// KindString is a UTF-8 string value.
	KindString Kind = iota

	// KindNumber is a numeric value, stored as float64.
	KindNumber

	// KindBool is a boolean value.
	KindBool
)

// String returns the kind name for logging and error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is one metadata entry: a scalar restricted to a closed set of kinds
// (string, number, bool) so every value serializes losslessly to JSON and
// back. Producers cannot smuggle arbitrary structures into the event stream.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// String constructs a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number constructs a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int constructs a numeric Value from an integer.
func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i)} }

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports which scalar kind this value holds.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload. Meaningful only when Kind() == KindString.
func (v Value) Str() string { return v.str }

// Num returns the numeric payload. Meaningful only when Kind() == KindNumber.
func (v Value) Num() float64 { return v.num }

// Boolean returns the bool payload. Meaningful only when Kind() == KindBool.
func (v Value) Boolean() bool { return v.b }

// MarshalJSON serializes the value as its bare scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return nil, fmt.Errorf("metadata value has unknown kind %d", v.kind)
	}
}

// Metadata is an ordered mapping from string keys to scalar Values.
//
// Unlike a plain map, Metadata remembers insertion order and emits keys in
// that order when marshalled, so serialized events are byte-stable for a
// given construction sequence. Setting an existing key overwrites the value
// in place without changing its position.
//
// The zero value is an empty, usable Metadata. Once an event is emitted its
// metadata must not be modified; build it fully, then attach it.
type Metadata struct {
	keys   []string
	values map[string]Value
}

// Set stores a value under key, preserving first-insertion order.
func (m *Metadata) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value for key and whether it exists.
func (m Metadata) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of entries.
func (m Metadata) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order. The returned slice is a copy.
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// MarshalJSON serializes the metadata as a JSON object with keys in
// insertion order. An empty Metadata marshals to {}.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := m.values[key].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("metadata key %q: %w", key, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object into Metadata, preserving the key
// order of the document. Values must be scalars: strings, numbers, or
// booleans. Null values, arrays, and nested objects are rejected. A
// literal null document leaves the metadata untouched, per the usual
// json.Unmarshaler convention.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata must be a JSON object, got %v", tok)
	}

	*m = Metadata{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("metadata key must be a string, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		switch v := valTok.(type) {
		case string:
			m.Set(key, String(v))
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return fmt.Errorf("metadata key %q: %w", key, err)
			}
			m.Set(key, Number(f))
		case bool:
			m.Set(key, Bool(v))
		default:
			return fmt.Errorf("metadata key %q: unsupported value %v (must be string, number, or bool)", key, valTok)
		}
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
