package signing

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one key/value pair of an ordered JSON object.
type Field struct {
	Key   string
	Value any
}

// Fields is a JSON object whose keys are emitted in insertion order.
// Go maps are always marshalled with sorted keys, so bodies whose key
// order matters to a signature should use Fields or a struct.
type Fields []Field

// Set appends a key, or replaces the value of an existing key in place.
func (f Fields) Set(key string, value any) Fields {
	for i := range f {
		if f[i].Key == key {
			f[i].Value = value
			return f
		}
	}
	return append(f, Field{Key: key, Value: value})
}

// MarshalJSON implements json.Marshaler.
func (f Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encodeCompact(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := encodeCompact(field.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Key, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CanonicalBody serialises body to the exact string covered by an L2 signature:
// compact JSON with "," and ":" separators, keys in insertion order and no HTML
// escaping. A nil body yields the empty string. json.RawMessage bodies are compacted.
func CanonicalBody(body any) (string, error) {
	if body == nil {
		return "", nil
	}
	b, err := encodeCompact(body)
	if err != nil {
		return "", fmt.Errorf("canonical body: %w", err)
	}
	return string(b), nil
}

func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
