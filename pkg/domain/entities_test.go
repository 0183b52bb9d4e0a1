package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestItemJSONFieldNames(t *testing.T) {
	item := Item{ID: "i1", RFIDTag: "RFID001", Name: "Laptop", CurrentLocation: RoomB, LastUpdated: 1727771400000}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"i1","rfidTag":"RFID001","name":"Laptop","currentLocation":"Room B","lastUpdated":1727771400000}`
	if string(data) != want {
		t.Fatalf("unexpected item json\nwant %s\ngot  %s", want, data)
	}
	if got := item.LastUpdatedTime(); !got.Equal(time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestMovementJSONFieldNames(t *testing.T) {
	mv := Movement{ID: "m1", ItemID: "i1", ItemName: "Laptop", RFIDTag: "RFID001", FromLocation: RoomA, ToLocation: RoomB, Timestamp: 5}
	data, err := json.Marshal(mv)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"id", "itemId", "itemName", "rfidTag", "fromLocation", "toLocation", "timestamp"} {
		if _, ok := fields[k]; !ok {
			t.Errorf("missing field %q in %s", k, data)
		}
	}
	if len(fields) != 7 {
		t.Fatalf("expected 7 fields, got %d", len(fields))
	}
	if mv.Time().UnixMilli() != 5 {
		t.Fatalf("unexpected movement time %v", mv.Time())
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw  string
		want Location
	}{
		{"", RoomA},
		{"Room A", RoomA},
		{"RoomA", RoomA},
		{"roomA", RoomA},
		{" a ", RoomA},
		{"ROOM  B", RoomB},
		{"roomB", RoomB},
		{"b", RoomB},
	}
	for _, tt := range tests {
		got, err := ParseLocation(tt.raw)
		if err != nil || got != tt.want {
			t.Errorf("ParseLocation(%q) = %q, %v; want %q", tt.raw, got, err, tt.want)
		}
	}
	if _, err := ParseLocation("cellar"); !errors.Is(err, ErrUnknownLocation) {
		t.Fatalf("expected ErrUnknownLocation, got %v", err)
	}
}

func TestLocationHelpers(t *testing.T) {
	if RoomA.Key() != "roomA" || RoomB.Key() != "roomB" {
		t.Fatalf("unexpected keys %q %q", RoomA.Key(), RoomB.Key())
	}
	if Location("Room C").Valid() || !RoomB.Valid() {
		t.Fatalf("unexpected validity")
	}
	if RoomA.Other() != RoomB || RoomB.Other() != RoomA {
		t.Fatalf("unexpected Other")
	}
	if len(Locations) != 2 || Locations[0] != RoomA {
		t.Fatalf("unexpected locations %v", Locations)
	}
}
