package irtable

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullTable = `
off: OFF
idle: IDLE
Dry: DRY
cool:
  Low: COOL_LOW
  auto:
    24: COOL_AUTO_24
    25: COOL_AUTO_25
heat:
  high:
    20: HEAT_HIGH_20
`

func mustParse(t *testing.T, src string) *Table {
	t.Helper()
	table, err := Parse([]byte(src))
	require.NoError(t, err)
	return table
}

func TestParse_Valid(t *testing.T) {
	table := mustParse(t, fullTable)

	assert.Equal(t, Code("OFF"), table.Off())
	idle, ok := table.Idle()
	assert.True(t, ok)
	assert.Equal(t, Code("IDLE"), idle)
	assert.True(t, table.HasIdle())

	want := []string{"cool", "dry", "heat", "idle", "off"}
	if diff := cmp.Diff(want, table.Operations()); diff != "" {
		t.Errorf("Operations() mismatch (-want +got):\n%s", diff)
	}

	cool, ok := table.Operation("COOL")
	require.True(t, ok)
	assert.False(t, cool.IsLeaf())
	assert.Equal(t, []string{"auto", "low"}, cool.Fans())

	auto, ok := cool.Fan("Auto")
	require.True(t, ok)
	assert.False(t, auto.IsLeaf())
	assert.Equal(t, []int{24, 25}, auto.Temperatures())
}

func TestParse_WithoutIdle(t *testing.T) {
	table := mustParse(t, "off: OFF\ncool: COOL\n")

	assert.False(t, table.HasIdle())
	_, ok := table.Idle()
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"empty document", "", ErrMissingOff},
		{"missing off", "cool: COOL\n", ErrMissingOff},
		{"not a mapping", "- a\n- b\n", ErrInvalidShape},
		{"off is a mapping", "off:\n  a: b\n", ErrInvalidShape},
		{"idle is a sequence", "off: OFF\nidle: [a]\n", ErrInvalidShape},
		{"null code", "off: OFF\ndry:\n", ErrEmptyCode},
		{"operation is a sequence", "off: OFF\ncool: [a, b]\n", ErrInvalidShape},
		{"mapping at temperature level", "off: OFF\ncool:\n  auto:\n    24:\n      x: y\n", ErrInvalidShape},
		{"fractional temperature key", "off: OFF\ncool:\n  auto:\n    24.5: CODE\n", ErrInvalidTemperature},
		{"named temperature key", "off: OFF\ncool:\n  auto:\n    warm: CODE\n", ErrInvalidTemperature},
		{"duplicate after lower-casing", "off: OFF\nCool: A\ncool: B\n", ErrDuplicateKey},
		{"duplicate fan after lower-casing", "off: OFF\ncool:\n  LOW: A\n  low: B\n", ErrDuplicateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestLookup(t *testing.T) {
	table := mustParse(t, fullTable)

	tests := []struct {
		name      string
		operation string
		fan       string
		temp      int
		want      Match
	}{
		{"operation leaf ignores fan and temperature", "dry", "whatever", 99, Match{Code: "DRY", Depth: DepthOperation}},
		{"operation leaf is case insensitive", "DRY", "low", 16, Match{Code: "DRY", Depth: DepthOperation}},
		{"fan leaf ignores temperature", "cool", "low", 3, Match{Code: "COOL_LOW", Depth: DepthFan}},
		{"fan name is case insensitive", "Cool", "LOW", 30, Match{Code: "COOL_LOW", Depth: DepthFan}},
		{"temperature leaf", "cool", "auto", 24, Match{Code: "COOL_AUTO_24", Depth: DepthTemperature}},
		{"next temperature", "cool", "auto", 25, Match{Code: "COOL_AUTO_25", Depth: DepthTemperature}},
		{"off reachable as operation", "off", "auto", 24, Match{Code: "OFF", Depth: DepthOperation}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Lookup(tt.operation, tt.fan, tt.temp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup_Miss(t *testing.T) {
	table := mustParse(t, fullTable)

	tests := []struct {
		name      string
		operation string
		fan       string
		temp      int
		level     Depth
	}{
		{"unknown operation", "fan_only", "auto", 24, DepthOperation},
		{"unknown fan", "cool", "high", 24, DepthFan},
		{"unknown temperature", "cool", "auto", 26, DepthTemperature},
		{"temperature under other fan", "heat", "high", 24, DepthTemperature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := table.Lookup(tt.operation, tt.fan, tt.temp)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoEntry)

			var miss *MissError
			require.True(t, errors.As(err, &miss))
			assert.Equal(t, tt.level, miss.Level)
			assert.Equal(t, tt.operation, miss.Operation)
			assert.Equal(t, tt.fan, miss.Fan)
			assert.Equal(t, tt.temp, miss.Temperature)
		})
	}
}

func TestFromMap(t *testing.T) {
	table, err := FromMap(map[string]any{
		"off": "OFF",
		"cool": map[string]any{
			"auto": map[int]string{24: "C24"},
		},
	})
	require.NoError(t, err)

	got, err := table.Lookup("cool", "auto", 24)
	require.NoError(t, err)
	assert.Equal(t, Code("C24"), got.Code)

	_, err = FromMap(map[string]any{"cool": "COOL"})
	assert.ErrorIs(t, err, ErrMissingOff)
}

func TestDepthString(t *testing.T) {
	assert.Equal(t, "operation", DepthOperation.String())
	assert.Equal(t, "fan", DepthFan.String())
	assert.Equal(t, "temperature", DepthTemperature.String())
	assert.Equal(t, "unknown", Depth(0).String())
}
