package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Normalize converts an arbitrary JSON-compatible value (structs included)
// into the generic tree form: map[string]any for objects, json.Number for
// numbers. Null members and empty objects are dropped; a value that
// normalizes to nothing returns nil.
func Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case string, bool, json.Number:
		return v, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return prune(out), nil
}

func prune(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		child = prune(child)
		if child == nil {
			delete(m, k)
			continue
		}
		m[k] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Decode converts a tree value into out, which must be a pointer.
func Decode(value any, out any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode tree value: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode tree value: %w", err)
	}
	return nil
}

// SortedKeys returns the keys of a tree object in ascending order, which for
// generated keys is creation order. Non-object values have no keys.
func SortedKeys(value any) []string {
	m, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DecodeChildren decodes every child of a tree object in key order.
func DecodeChildren[T any](value any) ([]T, error) {
	if value == nil {
		return []T{}, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode children: expected object, got %T", value)
	}
	out := make([]T, 0, len(m))
	for _, k := range SortedKeys(m) {
		var child T
		if err := Decode(m[k], &child); err != nil {
			return nil, fmt.Errorf("child %s: %w", k, err)
		}
		out = append(out, child)
	}
	return out, nil
}
