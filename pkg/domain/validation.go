package domain

import (
	"errors"
	"strings"
)

// ValidateNewItem checks add-item input and returns the normalized location.
func ValidateNewItem(rfidTag, name, location string) (Location, error) {
	if strings.TrimSpace(name) == "" {
		return "", ValidationError{Field: "name", Err: ErrEmptyName}
	}
	if strings.TrimSpace(rfidTag) == "" {
		return "", ValidationError{Field: "rfidTag", Err: ErrEmptyRFIDTag}
	}
	loc, err := ParseLocation(location)
	if err != nil {
		return "", ValidationError{Field: "location", Err: err}
	}
	return loc, nil
}

// ValidateMove rejects moves without a selected item and no-op moves whose
// destination equals the item's current room.
func ValidateMove(item *Item, to string) (Location, error) {
	if item == nil || item.ID == "" {
		return "", ValidationError{Field: "itemId", Err: ErrNoItem}
	}
	if strings.TrimSpace(to) == "" {
		return "", ValidationError{Field: "toLocation", Err: ErrUnknownLocation}
	}
	dest, err := ParseLocation(to)
	if err != nil {
		return "", ValidationError{Field: "toLocation", Err: err}
	}
	if dest == item.CurrentLocation {
		return "", ValidationError{Field: "toLocation", Err: ErrSameLocation}
	}
	return dest, nil
}

// IsUnknownLocation reports whether err stems from an unparseable room name.
func IsUnknownLocation(err error) bool {
	return errors.Is(err, ErrUnknownLocation)
}
