package ir

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/nerrad567/gray-logic-irclimate/internal/climate"
)

func testClimateConfig() climate.Config {
	cfg := climate.Config{
		ID:            "living-ac",
		Remote:        "remote.living_room",
		OperationList: []string{"heat", "cool", "dry"},
		FanList:       []string{"low", "auto"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestBuildAction_Valid(t *testing.T) {
	cfg := testClimateConfig()

	commands := []CommandMessage{
		{Command: CmdSetTemperature, Parameters: map[string]any{ParamTemperature: 22.5}},
		{Command: CmdSetTemperature, Parameters: map[string]any{ParamTemperature: "21"}},
		{Command: CmdSetTemperature, Parameters: map[string]any{ParamTemperature: json.Number("20")}},
		{Command: CmdSetTemperature, Parameters: map[string]any{ParamTemperature: 16}},
		{Command: CmdSetFanMode, Parameters: map[string]any{ParamFanMode: "LOW"}},
		{Command: CmdSetOperationMode, Parameters: map[string]any{ParamOperationMode: " dry "}},
		{Command: CmdTurnOn},
		{Command: CmdTurnOff},
		{Command: CmdAwayModeOn},
		{Command: CmdAwayModeOff},
	}

	for _, cmd := range commands {
		act, err := buildAction(cfg, cmd)
		if err != nil {
			t.Errorf("buildAction(%s %v) error = %v", cmd.Command, cmd.Parameters, err)
			continue
		}
		if act == nil {
			t.Errorf("buildAction(%s) returned nil action", cmd.Command)
		}
	}
}

func TestBuildAction_Invalid(t *testing.T) {
	cfg := testClimateConfig()

	tests := []struct {
		name     string
		cmd      CommandMessage
		wantErr  error
		wantCode string
	}{
		{"unknown command", CommandMessage{Command: "defrost"}, ErrInvalidCommand, ErrCodeInvalidCommand},
		{"missing temperature", CommandMessage{Command: CmdSetTemperature}, ErrInvalidParameters, ErrCodeInvalidParameters},
		{"temperature not a number",
			CommandMessage{Command: CmdSetTemperature, Parameters: map[string]any{ParamTemperature: true}},
			ErrInvalidParameters, ErrCodeInvalidParameters},
		{"temperature unparseable",
			CommandMessage{Command: CmdSetTemperature, Parameters: map[string]any{ParamTemperature: "warm"}},
			ErrInvalidParameters, ErrCodeInvalidParameters},
		{"temperature NaN",
			CommandMessage{Command: CmdSetTemperature, Parameters: map[string]any{ParamTemperature: math.NaN()}},
			ErrInvalidParameters, ErrCodeInvalidParameters},
		{"temperature above max",
			CommandMessage{Command: CmdSetTemperature, Parameters: map[string]any{ParamTemperature: 33.0}},
			ErrUnsupportedValue, ErrCodeUnsupportedValue},
		{"temperature below min",
			CommandMessage{Command: CmdSetTemperature, Parameters: map[string]any{ParamTemperature: 15.9}},
			ErrUnsupportedValue, ErrCodeUnsupportedValue},
		{"fan not in list",
			CommandMessage{Command: CmdSetFanMode, Parameters: map[string]any{ParamFanMode: "turbo"}},
			ErrUnsupportedValue, ErrCodeUnsupportedValue},
		{"fan empty",
			CommandMessage{Command: CmdSetFanMode, Parameters: map[string]any{ParamFanMode: "  "}},
			ErrInvalidParameters, ErrCodeInvalidParameters},
		{"operation not in list",
			CommandMessage{Command: CmdSetOperationMode, Parameters: map[string]any{ParamOperationMode: "auto"}},
			ErrUnsupportedValue, ErrCodeUnsupportedValue},
		{"operation not a string",
			CommandMessage{Command: CmdSetOperationMode, Parameters: map[string]any{ParamOperationMode: 3}},
			ErrInvalidParameters, ErrCodeInvalidParameters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, err := buildAction(cfg, tt.cmd)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("buildAction() error = %v, want %v", err, tt.wantErr)
			}
			if act != nil {
				t.Error("action should be nil on error")
			}
			if got := ackCode(err); got != tt.wantCode {
				t.Errorf("ackCode() = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestBuildAction_CanonicalisesModes(t *testing.T) {
	cfg := testClimateConfig()
	cfg.Table = mustParseConfig(t, testConfigYAML).Devices[0].Commands

	dev, err := climate.NewDevice(cfg, climate.DeviceOptions{})
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}

	act, err := buildAction(cfg, CommandMessage{
		Command:    CmdSetOperationMode,
		Parameters: map[string]any{ParamOperationMode: "HEAT"},
	})
	if err != nil {
		t.Fatalf("buildAction() error = %v", err)
	}
	act(dev)

	if got := dev.State().OperationMode; got != "heat" {
		t.Errorf("OperationMode = %q, want heat", got)
	}
}

func TestAckCode(t *testing.T) {
	if got := ackCode(ErrDeviceNotFound); got != ErrCodeNotConfigured {
		t.Errorf("ackCode(ErrDeviceNotFound) = %q", got)
	}
	if got := ackCode(ErrNotRunning); got != ErrCodeBridgeError {
		t.Errorf("ackCode(ErrNotRunning) = %q", got)
	}
}
