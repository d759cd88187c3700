package irtable

import (
	"slices"
	"strings"
)

// Code is an opaque pre-recorded infrared code. The table never interprets it.
type Code string

// Well-known top-level keys.
const (
	KeyOff  = "off"
	KeyIdle = "idle"
)

// Depth is the table level at which a lookup matched.
type Depth int

// Lookup depths, from the shallowest match to the deepest.
const (
	DepthOperation Depth = iota + 1
	DepthFan
	DepthTemperature
)

func (d Depth) String() string {
	switch d {
	case DepthOperation:
		return "operation"
	case DepthFan:
		return "fan"
	case DepthTemperature:
		return "temperature"
	default:
		return "unknown"
	}
}

// Match is the result of a successful lookup.
type Match struct {
	Code  Code
	Depth Depth
}

// Fan is a fan-level entry: a leaf code or a branch keyed by integer temperature.
type Fan struct {
	code  Code
	temps map[int]Code
}

// IsLeaf reports whether the entry is a direct code.
func (f Fan) IsLeaf() bool { return f.temps == nil }

// Code returns the direct code of a leaf entry.
func (f Fan) Code() Code { return f.code }

// Temperature returns the code stored under temperature t.
func (f Fan) Temperature(t int) (Code, bool) {
	c, ok := f.temps[t]
	return c, ok
}

// Temperatures returns the temperature keys of a branch entry, ascending.
func (f Fan) Temperatures() []int {
	keys := make([]int, 0, len(f.temps))
	for t := range f.temps {
		keys = append(keys, t)
	}
	slices.Sort(keys)
	return keys
}

// Operation is an operation-level entry: a leaf code or a branch keyed by fan mode.
type Operation struct {
	code Code
	fans map[string]Fan
}

// IsLeaf reports whether the entry is a direct code.
func (o Operation) IsLeaf() bool { return o.fans == nil }

// Code returns the direct code of a leaf entry.
func (o Operation) Code() Code { return o.code }

// Fan returns the entry for a fan mode. The name is matched case-insensitively.
func (o Operation) Fan(name string) (Fan, bool) {
	f, ok := o.fans[strings.ToLower(name)]
	return f, ok
}

// Fans returns the fan mode names of a branch entry, sorted.
func (o Operation) Fans() []string {
	return sortedKeys(o.fans)
}

// Table is an immutable IR command table.
type Table struct {
	off        Code
	idle       Code
	operations map[string]Operation
}

// Off returns the power-off code.
func (t *Table) Off() Code { return t.off }

// Idle returns the idle code and whether the table declares one.
func (t *Table) Idle() (Code, bool) {
	return t.idle, t.idle != ""
}

// HasIdle reports whether the table declares an idle code.
func (t *Table) HasIdle() bool { return t.idle != "" }

// Operation returns the entry for an operation mode. The name is matched
// case-insensitively. The off and idle codes are reachable as leaf operations.
func (t *Table) Operation(name string) (Operation, bool) {
	o, ok := t.operations[strings.ToLower(name)]
	return o, ok
}

// Operations returns every top-level key, sorted. This includes off and idle.
func (t *Table) Operations() []string {
	return sortedKeys(t.operations)
}

// Lookup walks operation, fan, then temperature and stops at the first leaf.
// A missing key at any level returns a *MissError.
func (t *Table) Lookup(operation, fan string, temperature int) (Match, error) {
	op, ok := t.Operation(operation)
	if !ok {
		return Match{}, &MissError{Level: DepthOperation, Operation: operation, Fan: fan, Temperature: temperature}
	}
	if op.IsLeaf() {
		return Match{Code: op.code, Depth: DepthOperation}, nil
	}

	f, ok := op.Fan(fan)
	if !ok {
		return Match{}, &MissError{Level: DepthFan, Operation: operation, Fan: fan, Temperature: temperature}
	}
	if f.IsLeaf() {
		return Match{Code: f.code, Depth: DepthFan}, nil
	}

	code, ok := f.Temperature(temperature)
	if !ok {
		return Match{}, &MissError{Level: DepthTemperature, Operation: operation, Fan: fan, Temperature: temperature}
	}
	return Match{Code: code, Depth: DepthTemperature}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
