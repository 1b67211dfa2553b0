package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ErrMalformedPage is returned for payloads that are neither an object nor
// an array of objects.
var ErrMalformedPage = errors.New("malformed page: expected object or array of objects")

// Decode parses a payload into a table. Numbers are kept as json.Number and
// top-level key order is preserved.
func Decode(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	t := New()
	switch tok {
	case json.Delim('{'):
		if err := decodeObjectInto(dec, t); err != nil {
			return nil, err
		}
	case json.Delim('['):
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
			}
			if tok != json.Delim('{') {
				return nil, fmt.Errorf("%w: array element %v", ErrMalformedPage, tok)
			}
			if err := decodeObjectInto(dec, t); err != nil {
				return nil, err
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
		}
	default:
		return nil, fmt.Errorf("%w: got %v", ErrMalformedPage, tok)
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedPage)
	}
	return t, nil
}

// decodeObjectInto reads the remainder of an object whose '{' was consumed.
func decodeObjectInto(dec *json.Decoder, t *Table) error {
	r := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPage, err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: object key %v", ErrMalformedPage, tok)
		}

		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPage, err)
		}
		r[key] = v
		t.addColumn(key)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	t.Records = append(t.Records, r)
	return nil
}

// DecodeObject parses a single JSON object into a Record.
func DecodeObject(data []byte) (Record, error) {
	t, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if t.Len() != 1 || bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		return nil, fmt.Errorf("%w: expected a single object", ErrMalformedPage)
	}
	return t.Records[0], nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
