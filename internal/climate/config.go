package climate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-irclimate/internal/irtable"
)

// Device defaults.
const (
	DefaultMinTemp        = 16.0
	DefaultMaxTemp        = 32.0
	DefaultTargetTemp     = 24.0
	DefaultTargetTempStep = 1.0
	DefaultOperationMode  = "cool"
	DefaultFanMode        = "auto"
)

// DefaultOperationList returns the default operation modes.
func DefaultOperationList() []string { return []string{"heat", "cool", "auto"} }

// DefaultFanList returns the default fan modes.
func DefaultFanList() []string { return []string{"low", "medium", "high", "auto"} }

// Config holds the static configuration of one device.
type Config struct {
	ID     string
	Name   string
	Remote string
	Unit   Unit

	MinTemp        float64
	MaxTemp        float64
	TargetTemp     float64
	TargetTempStep float64

	OperationMode string
	FanMode       string
	OperationList []string
	FanList       []string

	Table *irtable.Table
}

// ApplyDefaults fills zero fields with the device defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.Unit == "" {
		c.Unit = Celsius
	}
	if c.MinTemp == 0 {
		c.MinTemp = DefaultMinTemp
	}
	if c.MaxTemp == 0 {
		c.MaxTemp = DefaultMaxTemp
	}
	if c.TargetTemp == 0 {
		c.TargetTemp = DefaultTargetTemp
	}
	if c.TargetTempStep == 0 {
		c.TargetTempStep = DefaultTargetTempStep
	}
	if c.OperationMode == "" {
		c.OperationMode = DefaultOperationMode
	}
	if c.FanMode == "" {
		c.FanMode = DefaultFanMode
	}
	if len(c.OperationList) == 0 {
		c.OperationList = DefaultOperationList()
	}
	if len(c.FanList) == 0 {
		c.FanList = DefaultFanList()
	}
}

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var errs []error

	if c.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if c.Remote == "" {
		errs = append(errs, errors.New("remote is required"))
	}
	if c.Table == nil {
		errs = append(errs, errors.New("commands are required"))
	}
	if c.Unit != Celsius && c.Unit != Fahrenheit {
		errs = append(errs, fmt.Errorf("unit %q is not supported", c.Unit))
	}
	if c.MinTemp > c.MaxTemp {
		errs = append(errs, fmt.Errorf("min_temp %.1f exceeds max_temp %.1f", c.MinTemp, c.MaxTemp))
	}
	if c.TargetTempStep <= 0 {
		errs = append(errs, fmt.Errorf("target_temp_step must be positive, got %.2f", c.TargetTempStep))
	}
	if c.TargetTemp < c.MinTemp || c.TargetTemp > c.MaxTemp {
		errs = append(errs, fmt.Errorf("target_temp %.1f outside [%.1f, %.1f]", c.TargetTemp, c.MinTemp, c.MaxTemp))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, c.ID, errors.Join(errs...))
	}
	return nil
}

// AllowsOperationMode reports whether mode is in the operation list.
func (c Config) AllowsOperationMode(mode string) bool {
	return containsFold(c.OperationList, mode)
}

// AllowsFanMode reports whether mode is in the fan list.
func (c Config) AllowsFanMode(mode string) bool {
	return containsFold(c.FanList, mode)
}

// AllowsTemperature reports whether t is within [MinTemp, MaxTemp].
func (c Config) AllowsTemperature(t float64) bool {
	return t >= c.MinTemp && t <= c.MaxTemp
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
