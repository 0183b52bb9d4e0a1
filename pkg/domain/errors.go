package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidPath is returned for paths with empty or malformed segments.
var ErrInvalidPath = errors.New("invalid path")

// ErrNotFound is returned when a lookup finds nothing at the requested path.
type ErrNotFound struct {
	Path string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.Path)
}

// IsNotFound reports whether err wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// Validation failures, raised at the input boundary before any write.
var (
	ErrEmptyRFIDTag    = errors.New("rfid tag is required")
	ErrEmptyName       = errors.New("item name is required")
	ErrUnknownLocation = errors.New("unknown location")
	ErrNoItem          = errors.New("no item selected")
	ErrSameLocation    = errors.New("item is already in the destination room")
)

// ValidationError groups one or more validation failures for a single input.
type ValidationError struct {
	Field string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
