package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes. Bridge topics use the flat scheme
// graylogic/{category}/{protocol}/{address_or_id}.
const (
	TopicPrefixBridge = "graylogic"
	TopicPrefixCore   = "graylogic/core"
	TopicPrefixSystem = "graylogic/system"
)

// Protocol names used in bridge topics.
const (
	ProtocolClimate = "climate"
	ProtocolIR      = "ir"
)

// Topics builds the MQTT topics used by the IR climate service.
//
//	topics := mqtt.Topics{}
//	topics.ClimateState("living-ac") // graylogic/state/climate/living-ac
type Topics struct{}

// ClimateCommand returns the command topic of a climate device.
//
// Example: graylogic/command/climate/living-ac
func (Topics) ClimateCommand(deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, ProtocolClimate, deviceID)
}

// ClimateAck returns the acknowledgement topic of a climate device.
//
// Example: graylogic/ack/climate/living-ac
func (Topics) ClimateAck(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefixBridge, ProtocolClimate, deviceID)
}

// ClimateState returns the retained state topic of a climate device.
//
// Example: graylogic/state/climate/living-ac
func (Topics) ClimateState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, ProtocolClimate, deviceID)
}

// IRCommand returns the topic a remote dispatcher listens on.
//
// Example: graylogic/command/ir/remote.living_room
func (Topics) IRCommand(remote string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, ProtocolIR, remote)
}

// BridgeHealth returns the health topic of a bridge.
//
// Example: graylogic/health/ir
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// EntityState returns the canonical state topic of an external entity
// (temperature sensor, power switch).
//
// Example: graylogic/core/device/sensor.living_temp/state
func (Topics) EntityState(entityID string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefixCore, entityID)
}

// ServiceStatus returns the retained online/offline status topic.
//
// Example: graylogic/system/status
func (Topics) ServiceStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllClimateCommands matches every climate command.
//
// Pattern: graylogic/command/climate/+
func (Topics) AllClimateCommands() string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefixBridge, ProtocolClimate)
}

// ParseClimateCommand extracts the device id from a climate command topic.
func ParseClimateCommand(topic string) (string, bool) {
	prefix := fmt.Sprintf("%s/command/%s/", TopicPrefixBridge, ProtocolClimate)
	id, ok := strings.CutPrefix(topic, prefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// ParseEntityState extracts the entity id from an entity state topic.
func ParseEntityState(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixCore+"/device/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/state")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
