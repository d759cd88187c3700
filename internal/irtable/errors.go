package irtable

import (
	"errors"
	"fmt"
)

// Domain errors for the irtable package.
var (
	// ErrMissingOff is returned when a table has no power-off code.
	ErrMissingOff = errors.New("irtable: missing off code")

	// ErrInvalidShape is returned when a table node has the wrong kind
	// (for example a mapping where a code is required).
	ErrInvalidShape = errors.New("irtable: invalid table shape")

	// ErrInvalidTemperature is returned when a temperature key is not an integer.
	ErrInvalidTemperature = errors.New("irtable: invalid temperature key")

	// ErrDuplicateKey is returned when two keys collide after lower-casing.
	ErrDuplicateKey = errors.New("irtable: duplicate key")

	// ErrEmptyCode is returned when a code value is empty or null.
	ErrEmptyCode = errors.New("irtable: empty code")

	// ErrNoEntry is returned when a lookup finds no entry for a key.
	ErrNoEntry = errors.New("irtable: no entry")
)

// MissError describes where a lookup stopped.
type MissError struct {
	Level       Depth
	Operation   string
	Fan         string
	Temperature int
}

func (e *MissError) Error() string {
	switch e.Level {
	case DepthOperation:
		return fmt.Sprintf("irtable: no entry for operation %q", e.Operation)
	case DepthFan:
		return fmt.Sprintf("irtable: no entry for fan %q under operation %q", e.Fan, e.Operation)
	default:
		return fmt.Sprintf("irtable: no entry for temperature %d under %s/%s",
			e.Temperature, e.Operation, e.Fan)
	}
}

// Unwrap allows errors.Is(err, ErrNoEntry).
func (e *MissError) Unwrap() error {
	return ErrNoEntry
}
