package ir

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-irclimate/internal/climate"
	"github.com/nerrad567/gray-logic-irclimate/internal/irtable"
)

const testConfigYAML = `
bridge:
  id: ir-test
  health_interval: 15
transmitter:
  type: mqtt
devices:
  - id: living-ac
    name: Living Room AC
    remote: remote.living_room
    temp_sensor: sensor.living_temp
    power_template: '{{ state "switch.ac_plug" }}'
    commands:
      off: "OFF"
      idle: "IDLE"
      cool:
        auto:
          24: "COOL_AUTO_24"
          25: "COOL_AUTO_25"
        low: "COOL_LOW"
      heat:
        auto:
          21: "HEAT_AUTO_21"
      dry: "DRY"
  - id: bedroom-ac
    remote: remote.bedroom
    min_temp: 18
    max_temp: 28
    customize:
      operation_list: [cool, dry]
      fan_list: [auto]
    commands:
      off: "B_OFF"
      cool: "B_COOL"
      dry: "B_DRY"
`

func mustParseConfig(t *testing.T, data string) *Config {
	t.Helper()
	cfg, err := ParseConfig([]byte(data))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	return cfg
}

func TestParseConfig_Valid(t *testing.T) {
	cfg := mustParseConfig(t, testConfigYAML)

	if cfg.Bridge.ID != "ir-test" {
		t.Errorf("Bridge.ID = %q, want ir-test", cfg.Bridge.ID)
	}
	if got := cfg.GetHealthInterval(); got != 15*time.Second {
		t.Errorf("GetHealthInterval() = %v, want 15s", got)
	}
	if cfg.Transmitter.Type != TransmitterMQTT {
		t.Errorf("Transmitter.Type = %q", cfg.Transmitter.Type)
	}
	if cfg.QueueSize() != defaultQueueSize {
		t.Errorf("QueueSize() = %d, want %d", cfg.QueueSize(), defaultQueueSize)
	}
	if cfg.Units != string(climate.Celsius) {
		t.Errorf("Units = %q, want %q", cfg.Units, climate.Celsius)
	}
	if len(cfg.Devices) != 2 {
		t.Fatalf("len(Devices) = %d, want 2", len(cfg.Devices))
	}

	living := cfg.Devices[0]
	if living.Commands == nil {
		t.Fatal("living-ac commands not decoded")
	}
	match, err := living.Commands.Lookup("cool", "auto", 24)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if match.Code != "COOL_AUTO_24" || match.Depth != irtable.DepthTemperature {
		t.Errorf("Lookup() = %+v", match)
	}

	cc := cfg.ClimateConfig(cfg.Devices[1])
	if cc.Remote != "remote.bedroom" || cc.MinTemp != 18 || cc.MaxTemp != 28 {
		t.Errorf("ClimateConfig() = %+v", cc)
	}
	if len(cc.OperationList) != 2 || len(cc.FanList) != 1 {
		t.Errorf("customize lists not carried: %v %v", cc.OperationList, cc.FanList)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no devices",
			yaml:    "bridge:\n  id: x\n",
			wantErr: "at least one device",
		},
		{
			name: "duplicate ids",
			yaml: `
devices:
  - {id: a, remote: r, commands: {off: "1"}}
  - {id: a, remote: r, commands: {off: "1"}}
`,
			wantErr: "duplicate id",
		},
		{
			name:    "missing remote",
			yaml:    "devices:\n  - {id: a, commands: {off: \"1\"}}\n",
			wantErr: "remote is required",
		},
		{
			name:    "missing commands",
			yaml:    "devices:\n  - {id: a, remote: r}\n",
			wantErr: "commands are required",
		},
		{
			name: "unknown transmitter",
			yaml: `
transmitter: {type: bluetooth}
devices:
  - {id: a, remote: r, commands: {off: "1"}}
`,
			wantErr: "must be mqtt or serial",
		},
		{
			name: "serial without port",
			yaml: `
transmitter: {type: serial}
devices:
  - {id: a, remote: r, commands: {off: "1"}}
`,
			wantErr: "transmitter.port is required",
		},
		{
			name: "unknown units",
			yaml: `
units: kelvin
devices:
  - {id: a, remote: r, commands: {off: "1"}}
`,
			wantErr: "units",
		},
		{
			name: "bad power template",
			yaml: `
devices:
  - id: a
    remote: r
    power_template: '{{ state "x" '
    commands: {off: "1"}
`,
			wantErr: "power_template",
		},
		{
			name: "target outside range",
			yaml: `
devices:
  - {id: a, remote: r, target_temp: 40, commands: {off: "1"}}
`,
			wantErr: "target_temp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			if err == nil {
				t.Fatal("ParseConfig() should fail")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error should wrap ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseConfig_MissingOff(t *testing.T) {
	_, err := ParseConfig([]byte(`
devices:
  - id: a
    remote: r
    commands:
      cool: "C"
`))
	if !errors.Is(err, irtable.ErrMissingOff) {
		t.Fatalf("error = %v, want ErrMissingOff", err)
	}
}

func TestParseConfig_Units(t *testing.T) {
	cfg := mustParseConfig(t, `
units: "°F"
devices:
  - {id: a, remote: r, min_temp: 60, max_temp: 86, target_temp: 72, commands: {off: "1"}}
`)
	if cfg.Units != string(climate.Fahrenheit) {
		t.Errorf("Units = %q, want %q", cfg.Units, climate.Fahrenheit)
	}
	if got := cfg.ClimateConfig(cfg.Devices[0]).Unit; got != climate.Fahrenheit {
		t.Errorf("device unit = %q", got)
	}
}

func TestParseConfig_EnvOverrides(t *testing.T) {
	t.Setenv("IRCLIMATE_IR_BRIDGE_ID", "ir-from-env")
	t.Setenv("IRCLIMATE_IR_TRANSMITTER", TransmitterSerial)
	t.Setenv("IRCLIMATE_IR_SERIAL_PORT", "/dev/ttyUSB0")
	t.Setenv("IRCLIMATE_IR_SERIAL_BAUD", "9600")

	cfg := mustParseConfig(t, testConfigYAML)

	if cfg.Bridge.ID != "ir-from-env" {
		t.Errorf("Bridge.ID = %q", cfg.Bridge.ID)
	}
	if cfg.Transmitter.Type != TransmitterSerial || cfg.Transmitter.Port != "/dev/ttyUSB0" || cfg.Transmitter.Baud != 9600 {
		t.Errorf("Transmitter = %+v", cfg.Transmitter)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "climate.yaml")
	if err := os.WriteFile(path, []byte(testConfigYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Devices) != 2 {
		t.Errorf("len(Devices) = %d", len(cfg.Devices))
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() should fail for a missing file")
	}
}
