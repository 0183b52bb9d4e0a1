package domain

import (
	"fmt"
	"strings"
)

// Top-level buckets of the persisted tree.
const (
	BucketItems     = "items"
	BucketMovements = "movements"
	BucketRooms     = "rooms"
)

// Buckets lists the top-level children persisted by durable backends.
var Buckets = []string{BucketItems, BucketMovements, BucketRooms}

// ValidateKey checks that key is usable as a single path segment, such as an
// item or movement id. Keys that are blank or contain a slash would otherwise
// address a parent or a nested field.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidPath)
	}
	if strings.Contains(key, "/") {
		return fmt.Errorf("%w: key %q contains a slash", ErrInvalidPath, key)
	}
	if err := validateSegment(key); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return nil
}

// ItemPath returns /items/{id}. Callers validate external ids with
// ValidateKey first.
func ItemPath(id string) string { return JoinPath(BucketItems, id) }

// MovementPath returns /movements/{id}.
func MovementPath(id string) string { return JoinPath(BucketMovements, id) }

// RoomIndexPath returns /rooms/{roomKey}/items.
func RoomIndexPath(l Location) string { return JoinPath(BucketRooms, l.Key(), "items") }

// RoomMemberPath returns /rooms/{roomKey}/items/{id}.
func RoomMemberPath(l Location, id string) string {
	return JoinPath(BucketRooms, l.Key(), "items", id)
}

// JoinPath joins segments into a rooted slash path, dropping empty parts.
func JoinPath(parts ...string) string {
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, s := range strings.Split(p, "/") {
			if s != "" {
				segs = append(segs, s)
			}
		}
	}
	return "/" + strings.Join(segs, "/")
}

// SplitPath validates path and returns its segments. The root ("/" or "")
// has no segments.
func SplitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	segs := strings.Split(trimmed, "/")
	for _, s := range segs {
		if err := validateSegment(s); err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPath, path, err)
		}
	}
	return segs, nil
}

func validateSegment(s string) error {
	if s == "" {
		return fmt.Errorf("empty segment")
	}
	if strings.ContainsAny(s, ".#$[]") {
		return fmt.Errorf("segment %q contains a forbidden character", s)
	}
	return nil
}

// IsRelated reports whether a change at changed is visible to a watcher of
// watched: either path contains the other.
func IsRelated(watched, changed []string) bool {
	n := len(watched)
	if len(changed) < n {
		n = len(changed)
	}
	for i := 0; i < n; i++ {
		if watched[i] != changed[i] {
			return false
		}
	}
	return true
}
