// Package mqtt connects the IR climate service to the MQTT broker.
//
// The broker is the service's bus: climate commands arrive on it, entity
// states (temperature sensors, power switches) are read from it, IR codes are
// handed to remote dispatchers over it, and device state and bridge health
// are published on it.
//
//	graylogic/command/climate/{device}   commands in
//	graylogic/ack/climate/{device}       acknowledgements out
//	graylogic/state/climate/{device}     retained device state out
//	graylogic/command/ir/{remote}        raw IR codes out
//	graylogic/core/device/{entity}/state entity states in
//	graylogic/health/ir                  bridge health out
//	graylogic/system/status              retained online/offline (LWT)
//
// The Client wraps paho with auto-reconnect, subscription replay after a
// reconnect and panic recovery around handlers.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllClimateCommands(), 1, handler)
package mqtt
