package ir

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-irclimate/internal/climate"
	"github.com/nerrad567/gray-logic-irclimate/internal/expr"
	"github.com/nerrad567/gray-logic-irclimate/internal/irtable"
)

// Transmitter types.
const (
	TransmitterMQTT   = "mqtt"
	TransmitterSerial = "serial"
)

const (
	defaultHealthInterval = 30
	defaultBaudRate       = 115200
	defaultQueueSize      = 64
)

// Config is the root configuration of the IR bridge.
type Config struct {
	Bridge      BridgeConfig      `yaml:"bridge"`
	Transmitter TransmitterConfig `yaml:"transmitter"`
	Units       string            `yaml:"units"`
	Devices     []DeviceConfig    `yaml:"devices"`
}

// BridgeConfig contains bridge identity and operational settings.
type BridgeConfig struct {
	ID string `yaml:"id"`

	// HealthInterval is how often health is published (seconds).
	HealthInterval int `yaml:"health_interval"`
}

// TransmitterConfig selects how codes leave the bridge.
type TransmitterConfig struct {
	// Type is "mqtt" (publish to a remote dispatcher) or "serial" (write to
	// an IR blaster).
	Type string `yaml:"type"`

	// TopicPrefix replaces graylogic/command/ir for MQTT transmission.
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`

	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`

	// QueueSize bounds pending transmissions; extra ones are dropped.
	QueueSize int `yaml:"queue_size"`
}

// DeviceConfig defines one climate device.
type DeviceConfig struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Remote        string `yaml:"remote"`
	TempSensor    string `yaml:"temp_sensor"`
	PowerTemplate string `yaml:"power_template"`

	MinTemp        float64 `yaml:"min_temp"`
	MaxTemp        float64 `yaml:"max_temp"`
	TargetTemp     float64 `yaml:"target_temp"`
	TargetTempStep float64 `yaml:"target_temp_step"`

	OperationMode string `yaml:"operation_mode"`
	FanMode       string `yaml:"fan_mode"`

	Customize CustomizeConfig `yaml:"customize"`

	Commands *irtable.Table `yaml:"commands"`
}

// CustomizeConfig overrides the advertised mode lists.
type CustomizeConfig struct {
	OperationList []string `yaml:"operation_list"`
	FanList       []string `yaml:"fan_list"`
}

// LoadConfig reads the bridge configuration from a YAML file, applies
// IRCLIMATE_IR_* environment overrides and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig is LoadConfig for in-memory YAML.
func ParseConfig(data []byte) (*Config, error) {
	cfg := defaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:             "ir-bridge-01",
			HealthInterval: defaultHealthInterval,
		},
		Transmitter: TransmitterConfig{
			Type:      TransmitterMQTT,
			QoS:       1,
			Baud:      defaultBaudRate,
			QueueSize: defaultQueueSize,
		},
		Units: string(climate.Celsius),
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IRCLIMATE_IR_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}
	if v := os.Getenv("IRCLIMATE_IR_TRANSMITTER"); v != "" {
		cfg.Transmitter.Type = v
	}
	if v := os.Getenv("IRCLIMATE_IR_SERIAL_PORT"); v != "" {
		cfg.Transmitter.Port = v
	}
	if v := os.Getenv("IRCLIMATE_IR_SERIAL_BAUD"); v != "" {
		if baud, err := strconv.Atoi(v); err == nil {
			cfg.Transmitter.Baud = baud
		}
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Bridge.ID == "" {
		errs = append(errs, errors.New("bridge.id is required"))
	}
	if c.Bridge.HealthInterval < 0 {
		errs = append(errs, errors.New("bridge.health_interval must not be negative"))
	}

	switch c.Transmitter.Type {
	case TransmitterMQTT:
		if c.Transmitter.QoS < 0 || c.Transmitter.QoS > 2 {
			errs = append(errs, errors.New("transmitter.qos must be 0, 1, or 2"))
		}
	case TransmitterSerial:
		if c.Transmitter.Port == "" {
			errs = append(errs, errors.New("transmitter.port is required for serial"))
		}
		if c.Transmitter.Baud <= 0 {
			errs = append(errs, errors.New("transmitter.baud must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("transmitter.type %q must be mqtt or serial", c.Transmitter.Type))
	}

	unit, err := climate.ParseUnit(c.Units)
	if err != nil {
		errs = append(errs, fmt.Errorf("units: %w", err))
	} else {
		c.Units = string(unit)
	}

	if len(c.Devices) == 0 {
		errs = append(errs, errors.New("at least one device is required"))
	}

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.ID != "" && seen[d.ID] {
			errs = append(errs, fmt.Errorf("devices[%d]: duplicate id %q", i, d.ID))
		}
		seen[d.ID] = true

		cc := c.ClimateConfig(d)
		cc.ApplyDefaults()
		if err := cc.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("devices[%d]: %w", i, err))
		}

		if d.PowerTemplate != "" {
			if _, err := expr.Parse(d.PowerTemplate); err != nil {
				errs = append(errs, fmt.Errorf("devices[%d]: power_template: %w", i, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ClimateConfig converts a device entry into the climate device config.
func (c *Config) ClimateConfig(d DeviceConfig) climate.Config {
	return climate.Config{
		ID:             d.ID,
		Name:           d.Name,
		Remote:         d.Remote,
		Unit:           climate.Unit(c.Units),
		MinTemp:        d.MinTemp,
		MaxTemp:        d.MaxTemp,
		TargetTemp:     d.TargetTemp,
		TargetTempStep: d.TargetTempStep,
		OperationMode:  d.OperationMode,
		FanMode:        d.FanMode,
		OperationList:  d.Customize.OperationList,
		FanList:        d.Customize.FanList,
		Table:          d.Commands,
	}
}

// GetHealthInterval returns the health publish interval.
func (c *Config) GetHealthInterval() time.Duration {
	if c.Bridge.HealthInterval <= 0 {
		return defaultHealthInterval * time.Second
	}
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}

// QueueSize returns the transmit queue capacity.
func (c *Config) QueueSize() int {
	if c.Transmitter.QueueSize <= 0 {
		return defaultQueueSize
	}
	return c.Transmitter.QueueSize
}
