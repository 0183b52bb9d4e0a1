package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestPathBuilders(t *testing.T) {
	tests := []struct{ got, want string }{
		{ItemPath("a"), "/items/a"},
		{MovementPath("m"), "/movements/m"},
		{RoomIndexPath(RoomB), "/rooms/roomB/items"},
		{RoomMemberPath(RoomA, "x"), "/rooms/roomA/items/x"},
		{JoinPath("/items/", "", "a"), "/items/a"},
		{JoinPath(), "/"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, tt.got)
		}
	}
}

func TestSplitPath(t *testing.T) {
	segs, err := SplitPath("/rooms/roomA/items/")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if !reflect.DeepEqual(segs, []string{"rooms", "roomA", "items"}) {
		t.Fatalf("unexpected segments %v", segs)
	}
	if segs, err := SplitPath("/"); err != nil || segs != nil {
		t.Fatalf("expected root to have no segments, got %v %v", segs, err)
	}
	for _, p := range []string{"/items//a", "/items/a.b", "/a#b", "/$x", "/x[0]"} {
		if _, err := SplitPath(p); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("SplitPath(%q): expected ErrInvalidPath, got %v", p, err)
		}
	}
}

func TestIsRelated(t *testing.T) {
	watched := []string{"rooms", "roomA", "items"}
	tests := []struct {
		changed []string
		want    bool
	}{
		{[]string{"rooms", "roomA", "items", "x"}, true},
		{[]string{"rooms"}, true},
		{nil, true},
		{[]string{"rooms", "roomB", "items", "x"}, false},
		{[]string{"items", "x"}, false},
	}
	for _, tt := range tests {
		if got := IsRelated(watched, tt.changed); got != tt.want {
			t.Errorf("IsRelated(%v) = %v, want %v", tt.changed, got, tt.want)
		}
	}
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"a", "01927f3e-8c1a-7b2d-9e4f-0123456789ab", "item 1"} {
		if err := ValidateKey(key); err != nil {
			t.Errorf("ValidateKey(%q): unexpected error %v", key, err)
		}
	}
	for _, key := range []string{"", "  ", "/", "a/b", "a/", "a.b", "a#b", "$a", "a[0]"} {
		if err := ValidateKey(key); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ValidateKey(%q): expected ErrInvalidPath, got %v", key, err)
		}
	}
}
