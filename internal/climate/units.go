package climate

import (
	"fmt"
	"strings"
)

// Unit is a temperature unit as reported to the host.
type Unit string

// Supported temperature units.
const (
	Celsius    Unit = "°C"
	Fahrenheit Unit = "°F"
)

// ParseUnit accepts the reported symbol or a plain name.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "°c", "c", "celsius":
		return Celsius, nil
	case "°f", "f", "fahrenheit":
		return Fahrenheit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
}

// Convert converts v from one unit to another.
func Convert(v float64, from, to Unit) float64 {
	if from == to {
		return v
	}
	if from == Fahrenheit {
		return (v - 32) * 5 / 9
	}
	return v*9/5 + 32
}
