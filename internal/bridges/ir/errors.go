package ir

import "errors"

// Domain errors for the IR bridge package.
var (
	// ErrInvalidConfig is returned when the bridge configuration is rejected.
	ErrInvalidConfig = errors.New("ir: invalid config")

	// ErrDeviceNotFound is returned for a command to an unknown device.
	ErrDeviceNotFound = errors.New("ir: device not found")

	// ErrInvalidCommand is returned for an unknown command name.
	ErrInvalidCommand = errors.New("ir: invalid command")

	// ErrInvalidParameters is returned when a command's parameters are
	// missing or of the wrong type.
	ErrInvalidParameters = errors.New("ir: invalid parameters")

	// ErrUnsupportedValue is returned for a mode outside the device's list or
	// a temperature outside its range.
	ErrUnsupportedValue = errors.New("ir: unsupported value")

	// ErrNotRunning is returned when the bridge is not started or stopped.
	ErrNotRunning = errors.New("ir: bridge not running")

	// ErrQueueFull is reported when a transmission is dropped because the
	// outbound queue is full.
	ErrQueueFull = errors.New("ir: transmit queue full")

	// ErrTransmitFailed is reported when a sender fails to deliver a code.
	ErrTransmitFailed = errors.New("ir: transmit failed")
)
