package climate

import (
	"errors"

	"github.com/nerrad567/gray-logic-irclimate/internal/irtable"
)

// State is the desired and observed state of one device.
type State struct {
	On                bool
	Away              bool
	OperationMode     string
	FanMode           string
	TargetTemperature float64

	// CurrentTemperature is nil until the first good reading and after a
	// parse failure.
	CurrentTemperature *float64

	// Enabled is derived by Resolve and never set by a user action.
	Enabled Feature
}

// Resolution is the outcome of resolving a state against a table.
// An empty Code means nothing is transmitted.
type Resolution struct {
	Code    irtable.Code
	Enabled Feature
	Depth   irtable.Depth
}

// HasCode reports whether the resolution produced a code.
func (r Resolution) HasCode() bool { return r.Code != "" }

// Resolve picks the code to transmit for state and the capability set to
// report. It is a pure function.
//
// Priority: off, then away, then operation -> fan -> temperature. The enabled
// set is determined by the depth the lookup reached. On a miss no code is
// returned, Enabled is the state's previous set, and the error is a
// *LookupError (or ErrNoIdleCode for away without an idle entry).
func Resolve(table *irtable.Table, s State) (Resolution, error) {
	away := structural(table)

	if !s.On {
		return Resolution{Code: table.Off(), Enabled: FeatureOnOff | away}, nil
	}

	if s.Away {
		idle, ok := table.Idle()
		if !ok {
			return Resolution{Enabled: s.Enabled}, ErrNoIdleCode
		}
		return Resolution{Code: idle, Enabled: FeatureOnOff | FeatureAwayMode}, nil
	}

	// Truncation toward zero: 24.9 looks up key 24.
	temp := int(s.TargetTemperature)

	match, err := table.Lookup(s.OperationMode, s.FanMode, temp)
	if err != nil {
		var miss *irtable.MissError
		level := irtable.Depth(0)
		if errors.As(err, &miss) {
			level = miss.Level
		}
		return Resolution{Enabled: s.Enabled}, &LookupError{
			Operation:   s.OperationMode,
			Fan:         s.FanMode,
			Temperature: temp,
			Level:       level,
		}
	}

	return Resolution{
		Code:    match.Code,
		Enabled: enabledAt(match.Depth) | away,
		Depth:   match.Depth,
	}, nil
}

func enabledAt(d irtable.Depth) Feature {
	switch d {
	case irtable.DepthOperation:
		return FeatureOnOff | FeatureOperationMode
	case irtable.DepthFan:
		return FeatureOnOff | FeatureOperationMode | FeatureFanMode
	default:
		return BaseFeatures
	}
}
