package climate

import "slices"

// Attribute keys persisted between restarts.
const (
	AttrOperationMode     = "operation_mode"
	AttrTemperature       = "temperature"
	AttrSupportedFeatures = "supported_features"
	AttrFanMode           = "fan_mode"
	AttrPower             = "power"
	AttrAwayMode          = "away_mode"
	AttrCurrentTemp       = "current_temperature"
)

// Snapshot is the read-only state reported to the host.
type Snapshot struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Unit               Unit     `json:"temperature_unit"`
	CurrentTemperature *float64 `json:"current_temperature"`
	MinTemp            float64  `json:"min_temp"`
	MaxTemp            float64  `json:"max_temp"`
	TargetTemperature  float64  `json:"temperature"`
	TargetTempStep     float64  `json:"target_temp_step"`
	OperationMode      string   `json:"operation_mode"`
	OperationList      []string `json:"operation_list"`
	FanMode            string   `json:"fan_mode"`
	FanList            []string `json:"fan_list"`
	On                 bool     `json:"is_on"`
	Away               bool     `json:"is_away_mode_on"`
	SupportedFeatures  Feature  `json:"supported_features"`
	MaxFeatures        Feature  `json:"max_features"`
	Power              string   `json:"power"`
	AwayMode           string   `json:"away_mode"`
}

// Attributes is a flat key/value view of a snapshot, as saved and restored.
type Attributes map[string]any

// Attributes returns the persisted view of the snapshot.
func (s Snapshot) Attributes() Attributes {
	a := Attributes{
		AttrOperationMode:     s.OperationMode,
		AttrTemperature:       s.TargetTemperature,
		AttrSupportedFeatures: uint32(s.SupportedFeatures),
		AttrFanMode:           s.FanMode,
		AttrPower:             s.Power,
		AttrAwayMode:          s.AwayMode,
	}
	if s.CurrentTemperature != nil {
		a[AttrCurrentTemp] = *s.CurrentTemperature
	}
	return a
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// String returns the attribute as a string and whether it was present as one.
func (a Attributes) String(key string) (string, bool) {
	v, ok := a[key].(string)
	return v, ok
}

// Number returns a numeric attribute. JSON decoding yields float64; values
// built in memory may be any integer or float type.
func (a Attributes) Number(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case Feature:
		return float64(v), true
	default:
		return 0, false
	}
}

func (d *Device) snapshot() Snapshot {
	var current *float64
	if d.state.CurrentTemperature != nil {
		v := *d.state.CurrentTemperature
		current = &v
	}
	return Snapshot{
		ID:                 d.cfg.ID,
		Name:               d.cfg.Name,
		Unit:               d.cfg.Unit,
		CurrentTemperature: current,
		MinTemp:            d.cfg.MinTemp,
		MaxTemp:            d.cfg.MaxTemp,
		TargetTemperature:  d.state.TargetTemperature,
		TargetTempStep:     d.cfg.TargetTempStep,
		OperationMode:      d.state.OperationMode,
		OperationList:      slices.Clone(d.cfg.OperationList),
		FanMode:            d.state.FanMode,
		FanList:            slices.Clone(d.cfg.FanList),
		On:                 d.state.On,
		Away:               d.state.Away,
		SupportedFeatures:  d.state.Enabled,
		MaxFeatures:        d.max,
		Power:              onOff(d.state.On),
		AwayMode:           onOff(d.state.Away),
	}
}
