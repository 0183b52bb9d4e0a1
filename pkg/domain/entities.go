// Package domain defines the inventory entities, the keyed tree layout they are
// stored under, and the persistence contracts implemented by infra packages.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Location names one of the two rooms an item can reside in.
type Location string

const (
	RoomA Location = "Room A"
	RoomB Location = "Room B"
)

// Locations lists every supported room in display order.
var Locations = []Location{RoomA, RoomB}

// Key returns the tree segment used for the room index.
func (l Location) Key() string {
	switch l {
	case RoomA:
		return "roomA"
	case RoomB:
		return "roomB"
	default:
		return ""
	}
}

// Valid reports whether l is one of the supported rooms.
func (l Location) Valid() bool {
	return l.Key() != ""
}

func (l Location) String() string { return string(l) }

// ParseLocation accepts the display form ("Room A"), the compact form
// ("RoomA"), the tree segment ("roomA") or the bare letter, case-insensitively.
// An empty string yields RoomA, the default for new items.
func ParseLocation(raw string) (Location, error) {
	s := strings.ToLower(strings.Join(strings.Fields(raw), ""))
	switch s {
	case "", "rooma", "a":
		return RoomA, nil
	case "roomb", "b":
		return RoomB, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLocation, raw)
}

// Other returns the opposite room.
func (l Location) Other() Location {
	if l == RoomA {
		return RoomB
	}
	return RoomA
}

// Item is the canonical record stored under /items/{id}.
type Item struct {
	ID              string   `json:"id"`
	RFIDTag         string   `json:"rfidTag"`
	Name            string   `json:"name"`
	CurrentLocation Location `json:"currentLocation"`
	LastUpdated     int64    `json:"lastUpdated"`
}

// LastUpdatedTime converts the millisecond timestamp to a time.Time.
func (i Item) LastUpdatedTime() time.Time {
	return time.UnixMilli(i.LastUpdated).UTC()
}

// Movement is an append-only log entry stored under /movements/{id}. ItemName
// and RFIDTag are copied at write time and are not kept in sync with the item.
type Movement struct {
	ID           string   `json:"id"`
	ItemID       string   `json:"itemId"`
	ItemName     string   `json:"itemName"`
	RFIDTag      string   `json:"rfidTag"`
	FromLocation Location `json:"fromLocation"`
	ToLocation   Location `json:"toLocation"`
	Timestamp    int64    `json:"timestamp"`
}

// Time converts the millisecond timestamp to a time.Time.
func (m Movement) Time() time.Time {
	return time.UnixMilli(m.Timestamp).UTC()
}

// Millis converts t to milliseconds since the epoch, the unit used for every
// persisted timestamp.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
