package climate

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-irclimate/internal/irtable"
)

// Reason identifies the stimulus behind a state change.
type Reason string

// Change reasons. They double as state history sources.
const (
	ReasonCommand Reason = "command"
	ReasonSensor  Reason = "sensor"
	ReasonPower   Reason = "power"
	ReasonRestore Reason = "restore"

	// ReasonCurrent marks a replayed snapshot rather than a change.
	ReasonCurrent Reason = "current"
)

// Change is delivered to observers after every externally visible change.
type Change struct {
	Snapshot Snapshot
	Reason   Reason
}

// Transmitter hands a code to the remote dispatcher. Delivery is
// fire-and-forget; the device never learns whether it succeeded.
type Transmitter interface {
	Transmit(remote string, code irtable.Code)
}

// PowerSource evaluates the power expression.
type PowerSource interface {
	Evaluate() (string, error)
}

// Logger is the logging interface used by the device.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Reading is a raw temperature sensor reading.
type Reading struct {
	State string
	// Unit is the sensor's unit of measurement. Empty means the reading is
	// already in device units.
	Unit string
}

// DeviceOptions holds collaborators for a device. All fields are optional.
type DeviceOptions struct {
	Transmitter Transmitter
	Power       PowerSource
	Logger      Logger

	// OnChange receives every state-changed notification.
	OnChange func(Change)

	// OnDiagnostic receives every recovered error: lookup misses, sensor
	// parse failures and power evaluation failures.
	OnDiagnostic func(deviceID string, err error)
}

// Device is an IR-driven climate device.
//
// Thread Safety: a Device is not safe for concurrent use. Every call must
// come from the single goroutine that owns it.
type Device struct {
	cfg   Config
	table *irtable.Table
	max   Feature
	state State
	opts  DeviceOptions
}

// NewDevice creates a device with configured defaults. It starts off, so
// Enabled is what resolving the off state reports: on-off plus away when the
// table has an idle code.
func NewDevice(cfg Config, opts DeviceOptions) (*Device, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	state := State{
		OperationMode:     cfg.OperationMode,
		FanMode:           cfg.FanMode,
		TargetTemperature: cfg.TargetTemp,
	}
	res, err := Resolve(cfg.Table, state)
	if err != nil {
		return nil, fmt.Errorf("resolving initial state: %w", err)
	}
	state.Enabled = res.Enabled

	return &Device{
		cfg:   cfg,
		table: cfg.Table,
		max:   MaxFeatures(cfg.Table),
		opts:  opts,
		state: state,
	}, nil
}

// ID returns the device identifier.
func (d *Device) ID() string { return d.cfg.ID }

// Config returns the device configuration.
func (d *Device) Config() Config { return d.cfg }

// State returns a copy of the current state.
func (d *Device) State() State {
	s := d.state
	if s.CurrentTemperature != nil {
		v := *s.CurrentTemperature
		s.CurrentTemperature = &v
	}
	return s
}

// MaxFeatures returns the structural capability set.
func (d *Device) MaxFeatures() Feature { return d.max }

// Snapshot returns the reported state.
func (d *Device) Snapshot() Snapshot { return d.snapshot() }

// SetTemperature sets the target temperature.
func (d *Device) SetTemperature(t float64) {
	d.state.TargetTemperature = t
	d.apply(ReasonCommand)
}

// SetFanMode sets the fan mode.
func (d *Device) SetFanMode(mode string) {
	d.state.FanMode = mode
	d.apply(ReasonCommand)
}

// SetOperationMode sets the operation mode.
func (d *Device) SetOperationMode(mode string) {
	d.state.OperationMode = mode
	d.apply(ReasonCommand)
}

// TurnOn switches the device on and clears away mode.
func (d *Device) TurnOn() {
	d.state.On = true
	d.state.Away = false
	d.apply(ReasonCommand)
}

// TurnOff switches the device off and clears away mode.
func (d *Device) TurnOff() {
	d.state.On = false
	d.state.Away = false
	d.apply(ReasonCommand)
}

// TurnAwayModeOn enables away mode.
func (d *Device) TurnAwayModeOn() {
	d.state.Away = true
	d.apply(ReasonCommand)
}

// TurnAwayModeOff disables away mode.
func (d *Device) TurnAwayModeOff() {
	d.state.Away = false
	d.apply(ReasonCommand)
}

// UpdateTemperature records a sensor reading. It never resolves or transmits.
// A reading that does not parse leaves the ambient temperature unknown.
func (d *Device) UpdateTemperature(r Reading) {
	value, err := d.parseReading(r)
	if err != nil {
		d.state.CurrentTemperature = nil
		d.warn("unable to update from sensor", err, "state", r.State, "unit", r.Unit)
	} else {
		d.state.CurrentTemperature = &value
	}
	d.notify(ReasonSensor)
}

func (d *Device) parseReading(r Reading) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.State), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrSensorParse, r.State)
	}
	if r.Unit == "" {
		return v, nil
	}
	unit, err := ParseUnit(r.Unit)
	if err != nil {
		return 0, err
	}
	return Convert(v, unit, d.cfg.Unit), nil
}

// UpdatePower evaluates the power expression and overwrites the on flag with
// the result: "true", "on" and "1" (any case) mean on, anything else off.
// On evaluation failure the flag is kept and nothing is resolved.
func (d *Device) UpdatePower() {
	if d.opts.Power == nil {
		return
	}

	result, err := d.opts.Power.Evaluate()
	if err != nil {
		d.warn("unable to evaluate power expression", fmt.Errorf("%w: %w", ErrPowerEvaluation, err))
		d.notify(ReasonPower)
		return
	}

	d.state.On = IsPowerOn(result)
	d.apply(ReasonPower)
}

// IsPowerOn normalises a power expression result.
func IsPowerOn(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1":
		return true
	default:
		return false
	}
}

// Restore rehydrates state from previously saved attributes. Each field is
// overridden only when present. The enabled set is then recomputed against
// the current table; if that misses, the persisted set is kept. Nothing is
// transmitted.
func (d *Device) Restore(a Attributes) {
	if len(a) == 0 {
		return
	}

	if v, ok := a.String(AttrOperationMode); ok {
		d.state.OperationMode = v
	}
	if v, ok := a.Number(AttrTemperature); ok {
		d.state.TargetTemperature = v
	}
	if v, ok := a.Number(AttrSupportedFeatures); ok && v >= 0 {
		d.state.Enabled = Feature(uint32(v))
	}
	if v, ok := a.String(AttrFanMode); ok {
		d.state.FanMode = v
	}
	if v, ok := a[AttrPower]; ok {
		s, _ := v.(string)
		d.state.On = s == "on"
	}
	if v, ok := a[AttrAwayMode]; ok {
		s, _ := v.(string)
		d.state.Away = s == "on"
	}

	res, err := Resolve(d.table, d.state)
	if err != nil {
		d.logDebug("keeping persisted features", "error", err)
	}
	d.state.Enabled = res.Enabled

	d.logInfo("state restored",
		"operation_mode", d.state.OperationMode,
		"fan_mode", d.state.FanMode,
		"temperature", d.state.TargetTemperature,
		"on", d.state.On,
		"away", d.state.Away)
	d.notify(ReasonRestore)
}

// apply resolves the current state, transmits the code if one was found and
// notifies observers.
func (d *Device) apply(reason Reason) {
	res, err := Resolve(d.table, d.state)
	if err != nil {
		var lookup *LookupError
		if errors.As(err, &lookup) {
			d.logError("could not find command",
				"device_id", d.cfg.ID,
				"operation_mode", lookup.Operation,
				"fan_mode", lookup.Fan,
				"temperature", lookup.Temperature)
		} else {
			d.logError("could not resolve command", "device_id", d.cfg.ID, "error", err)
		}
		d.diagnose(err)
	}

	d.state.Enabled = res.Enabled
	if res.HasCode() && d.opts.Transmitter != nil {
		d.opts.Transmitter.Transmit(d.cfg.Remote, res.Code)
	}
	d.notify(reason)
}

func (d *Device) notify(reason Reason) {
	if d.opts.OnChange != nil {
		d.opts.OnChange(Change{Snapshot: d.snapshot(), Reason: reason})
	}
}

func (d *Device) diagnose(err error) {
	if d.opts.OnDiagnostic != nil {
		d.opts.OnDiagnostic(d.cfg.ID, err)
	}
}

func (d *Device) warn(msg string, err error, keysAndValues ...any) {
	if d.opts.Logger != nil {
		args := append([]any{"device_id", d.cfg.ID, "error", err}, keysAndValues...)
		d.opts.Logger.Warn(msg, args...)
	}
	d.diagnose(err)
}

func (d *Device) logInfo(msg string, keysAndValues ...any) {
	if d.opts.Logger != nil {
		d.opts.Logger.Info(msg, append([]any{"device_id", d.cfg.ID}, keysAndValues...)...)
	}
}

func (d *Device) logDebug(msg string, keysAndValues ...any) {
	if d.opts.Logger != nil {
		d.opts.Logger.Debug(msg, append([]any{"device_id", d.cfg.ID}, keysAndValues...)...)
	}
}

func (d *Device) logError(msg string, keysAndValues ...any) {
	if d.opts.Logger != nil {
		d.opts.Logger.Error(msg, keysAndValues...)
	}
}
