// Package ir implements the infrared climate bridge.
//
// The bridge drives air conditioners that only understand a handheld
// remote. Each device keeps the state the remote would show (power,
// operation mode, fan mode, target temperature, away) and every change is
// resolved against the device's command table into one raw code, which is
// handed to a transmitter.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐   MQTT / serial
//	│   Gray Logic    │   MQTT   │    IR Bridge    │◄──────────────► IR blaster
//	│      Core       │◄────────►│   (this pkg)    │
//	└─────────────────┘          └─────────────────┘
//
// # Topics
//
//	graylogic/command/climate/{device_id}   commands in
//	graylogic/ack/climate/{device_id}       command acks out
//	graylogic/state/climate/{device_id}     retained state out
//	graylogic/core/device/{entity_id}/state sensor and power entities in
//	graylogic/command/ir/{remote}           raw codes out (mqtt transmitter)
//	graylogic/health/ir                     retained health out
//
// # Concurrency
//
// Devices are not safe for concurrent use. The bridge runs every stimulus on
// one event loop goroutine and drains transmissions on another, so a slow
// blaster never blocks state handling.
package ir
