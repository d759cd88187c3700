package ir

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-irclimate/internal/climate"
)

// action is a validated command, ready to run on the event loop.
type action func(d *climate.Device)

// buildAction validates cmd against the device configuration. Device state
// is not touched.
func buildAction(cfg climate.Config, cmd CommandMessage) (action, error) {
	switch cmd.Command {
	case CmdSetTemperature:
		t, err := floatParam(cmd.Parameters, ParamTemperature)
		if err != nil {
			return nil, err
		}
		if !cfg.AllowsTemperature(t) {
			return nil, fmt.Errorf("%w: temperature %.1f outside [%.1f, %.1f]",
				ErrUnsupportedValue, t, cfg.MinTemp, cfg.MaxTemp)
		}
		return func(d *climate.Device) { d.SetTemperature(t) }, nil

	case CmdSetFanMode:
		mode, err := stringParam(cmd.Parameters, ParamFanMode)
		if err != nil {
			return nil, err
		}
		canonical, ok := lookupFold(cfg.FanList, mode)
		if !ok {
			return nil, fmt.Errorf("%w: fan mode %q not in %v", ErrUnsupportedValue, mode, cfg.FanList)
		}
		return func(d *climate.Device) { d.SetFanMode(canonical) }, nil

	case CmdSetOperationMode:
		mode, err := stringParam(cmd.Parameters, ParamOperationMode)
		if err != nil {
			return nil, err
		}
		canonical, ok := lookupFold(cfg.OperationList, mode)
		if !ok {
			return nil, fmt.Errorf("%w: operation mode %q not in %v", ErrUnsupportedValue, mode, cfg.OperationList)
		}
		return func(d *climate.Device) { d.SetOperationMode(canonical) }, nil

	case CmdTurnOn:
		return (*climate.Device).TurnOn, nil
	case CmdTurnOff:
		return (*climate.Device).TurnOff, nil
	case CmdAwayModeOn:
		return (*climate.Device).TurnAwayModeOn, nil
	case CmdAwayModeOff:
		return (*climate.Device).TurnAwayModeOff, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCommand, cmd.Command)
	}
}

func floatParam(params map[string]any, key string) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidParameters, key)
	}

	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrInvalidParameters, key, err)
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrInvalidParameters, key, err)
		}
		v = f
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidParameters, key, raw)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be finite", ErrInvalidParameters, key)
	}
	return v, nil
}

func stringParam(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidParameters, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidParameters, key, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidParameters, key)
	}
	return s, nil
}

func lookupFold(list []string, s string) (string, bool) {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return v, true
		}
	}
	return "", false
}

// ackCode maps a command error to its ack error code.
func ackCode(err error) string {
	switch {
	case errors.Is(err, ErrDeviceNotFound):
		return ErrCodeNotConfigured
	case errors.Is(err, ErrInvalidCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, ErrInvalidParameters):
		return ErrCodeInvalidParameters
	case errors.Is(err, ErrUnsupportedValue):
		return ErrCodeUnsupportedValue
	default:
		return ErrCodeBridgeError
	}
}
