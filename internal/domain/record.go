package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EntityRecord is one entity as returned by the search backend. Field order
// is the order the backend produced it in; the set of fields varies per
// entity type and is only known at runtime.
type EntityRecord struct {
	keys   []string
	values map[string]any
}

// NewEntityRecord builds a record from alternating key/value pairs.
func NewEntityRecord(pairs ...any) EntityRecord {
	var r EntityRecord
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		r.Set(key, pairs[i+1])
	}
	return r
}

// Set adds or replaces a field. Replacing keeps the original position.
func (r *EntityRecord) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r EntityRecord) Get(key string) (any, bool) {
	value, ok := r.values[key]
	return value, ok
}

// Keys returns the field names in order.
func (r EntityRecord) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

func (r EntityRecord) Len() int {
	return len(r.keys)
}

// ID returns the "id" field when it is a string.
func (r EntityRecord) ID() string {
	if id, ok := r.values["id"].(string); ok {
		return id
	}
	return ""
}

func (r EntityRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		encodedValue, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %s: %w", key, err)
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *EntityRecord) UnmarshalJSON(data []byte) error {
	r.keys = nil
	r.values = nil
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
		return errors.New("entity record must be a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in entity record", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode field %s: %w", key, err)
		}
		r.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	if r.values == nil {
		r.values = make(map[string]any)
	}
	return nil
}
