package climate

import (
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-irclimate/internal/irtable"
)

// Domain errors for the climate package.
var (
	// ErrLookupMiss is returned when resolution finds no table entry.
	ErrLookupMiss = errors.New("climate: no command for state")

	// ErrNoIdleCode is returned when away mode is requested but the table
	// declares no idle code.
	ErrNoIdleCode = errors.New("climate: no idle code")

	// ErrSensorParse is reported when a temperature reading is not a number.
	ErrSensorParse = errors.New("climate: unparseable temperature reading")

	// ErrUnknownUnit is reported when a reading carries an unrecognised unit.
	ErrUnknownUnit = errors.New("climate: unknown temperature unit")

	// ErrPowerEvaluation is reported when the power expression fails.
	ErrPowerEvaluation = errors.New("climate: power expression failed")

	// ErrInvalidConfig is returned when a device configuration is rejected.
	ErrInvalidConfig = errors.New("climate: invalid device config")

	// ErrNotFound is returned when no persisted state exists for a device.
	ErrNotFound = errors.New("climate: state not found")
)

// LookupError names the (operation, fan, temperature) triple that missed.
type LookupError struct {
	Operation   string
	Fan         string
	Temperature int
	Level       irtable.Depth
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("climate: could not find command for %s/%s/%d (missing %s)",
		e.Operation, e.Fan, e.Temperature, e.Level)
}

// Unwrap allows errors.Is(err, ErrLookupMiss).
func (e *LookupError) Unwrap() error {
	return ErrLookupMiss
}
