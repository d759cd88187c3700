package ir

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-irclimate/internal/climate"
	"github.com/nerrad567/gray-logic-irclimate/internal/irtable"
)

// Protocol is the protocol identifier in acks and health messages.
const Protocol = "ir"

// Command names accepted on graylogic/command/climate/{device_id}.
const (
	CmdSetTemperature   = "set_temperature"
	CmdSetFanMode       = "set_fan_mode"
	CmdSetOperationMode = "set_operation_mode"
	CmdTurnOn           = "turn_on"
	CmdTurnOff          = "turn_off"
	CmdAwayModeOn       = "away_mode_on"
	CmdAwayModeOff      = "away_mode_off"
)

// Parameter keys.
const (
	ParamTemperature   = "temperature"
	ParamFanMode       = "fan_mode"
	ParamOperationMode = "operation_mode"
)

// CommandMessage asks the bridge to change a climate device.
// Topic: graylogic/command/climate/{device_id}
type CommandMessage struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	DeviceID   string         `json:"device_id,omitempty"`
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Source     string         `json:"source,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

// Ack statuses.
const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// AckMessage acknowledges a command.
// Topic: graylogic/ack/climate/{device_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError contains details for a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Ack error codes.
const (
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeUnsupportedValue  = "UNSUPPORTED_VALUE"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage carries the reported state of a device.
// Topic: graylogic/state/climate/{device_id}, retained.
type StateMessage struct {
	DeviceID  string           `json:"device_id"`
	Timestamp time.Time        `json:"timestamp"`
	Reason    climate.Reason   `json:"reason"`
	State     climate.Snapshot `json:"state"`
	Protocol  string           `json:"protocol"`
	Address   string           `json:"address"`
}

// EventDeviceID lets WebSocket clients filter state events by device.
func (m StateMessage) EventDeviceID() string { return m.DeviceID }

// RemoteCommand asks a remote dispatcher to emit a code.
// Topic: graylogic/command/ir/{remote}
type RemoteCommand struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Remote    string    `json:"remote"`
	Command   string    `json:"command"`
}

// NewRemoteCommand builds the raw send request for code.
func NewRemoteCommand(deviceID, remote string, code irtable.Code) RemoteCommand {
	return RemoteCommand{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		DeviceID:  deviceID,
		Remote:    remote,
		Command:   RawCommand(code),
	}
}

// RawCommand prefixes a code the way remote dispatchers expect it.
func RawCommand(code irtable.Code) string {
	return "raw:" + string(code)
}

// EntityState is a state update of an external entity.
// Topic: graylogic/core/device/{entity_id}/state
type EntityState struct {
	State      string           `json:"state"`
	Attributes EntityAttributes `json:"attributes"`
}

// EntityAttributes holds the attributes the bridge reads.
type EntityAttributes struct {
	UnitOfMeasurement string `json:"unit_of_measurement"`
}

// ParseEntityState decodes an entity state payload. A JSON object is read as
// {state, attributes}; a JSON string or any other payload is taken verbatim
// as the state. ok is false for an empty payload, which means the entity was
// removed.
func ParseEntityState(payload []byte) (state EntityState, ok bool) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return EntityState{}, false
	}

	switch trimmed[0] {
	case '{':
		var raw struct {
			State      any              `json:"state"`
			Attributes EntityAttributes `json:"attributes"`
		}
		if err := json.Unmarshal([]byte(trimmed), &raw); err == nil {
			return EntityState{State: stateString(raw.State), Attributes: raw.Attributes}, true
		}
	case '"':
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return EntityState{State: s}, true
		}
	}
	return EntityState{State: trimmed}, true
}

func stateString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		if s {
			return "on"
		}
		return "off"
	default:
		return fmt.Sprint(s)
	}
}

// HealthStatus is the operational status of the bridge.
type HealthStatus string

// Health statuses.
const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the bridge status.
// Topic: graylogic/health/ir, retained.
type HealthMessage struct {
	Bridge         string            `json:"bridge"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         HealthStatus      `json:"status"`
	Version        string            `json:"version"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Transmitter    string            `json:"transmitter"`
	DevicesManaged int               `json:"devices_managed"`
	Statistics     *BridgeStatistics `json:"statistics,omitempty"`
	Reason         string            `json:"reason,omitempty"`
}

// BridgeStatistics contains operational counters.
type BridgeStatistics struct {
	CommandsReceived uint64 `json:"commands_received"`
	Transmissions    uint64 `json:"transmissions"`
	TransmitErrors   uint64 `json:"transmit_errors"`
	LookupMisses     uint64 `json:"lookup_misses"`
	AdapterFailures  uint64 `json:"adapter_failures"`
}
