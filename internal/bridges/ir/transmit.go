package ir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/nerrad567/gray-logic-irclimate/internal/infrastructure/mqtt"
)

// Sender delivers remote commands to whatever emits the infrared signal.
type Sender interface {
	Send(ctx context.Context, cmd RemoteCommand) error
	Kind() string
	Close() error
}

// Publisher is the subset of the MQTT client the MQTT sender needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTSender publishes each command as JSON on the remote's command topic
// for a remote dispatcher to pick up.
type MQTTSender struct {
	pub    Publisher
	prefix string
	qos    byte
}

// NewMQTTSender creates a sender publishing through pub. An empty prefix
// uses graylogic/command/ir.
func NewMQTTSender(pub Publisher, prefix string, qos byte) *MQTTSender {
	return &MQTTSender{pub: pub, prefix: strings.TrimSuffix(prefix, "/"), qos: qos}
}

// Topic returns the topic commands for remote are published on.
func (s *MQTTSender) Topic(remote string) string {
	if s.prefix == "" {
		return mqtt.Topics{}.IRCommand(remote)
	}
	return s.prefix + "/" + remote
}

// Send publishes cmd.
func (s *MQTTSender) Send(_ context.Context, cmd RemoteCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrTransmitFailed, err)
	}
	if err := s.pub.Publish(s.Topic(cmd.Remote), payload, s.qos, false); err != nil {
		return fmt.Errorf("%w: %w", ErrTransmitFailed, err)
	}
	return nil
}

// Kind returns "mqtt".
func (s *MQTTSender) Kind() string { return TransmitterMQTT }

// Close is a no-op; the MQTT client is owned by the caller.
func (s *MQTTSender) Close() error { return nil }

// SerialSender writes one line per command to a serial IR blaster:
//
//	<remote> raw:<code>\n
type SerialSender struct {
	mu   sync.Mutex
	port io.WriteCloser
}

// OpenSerialSender opens the serial port at the given baud rate.
func OpenSerialSender(port string, baud int) (*SerialSender, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", port, err)
	}
	return NewSerialSender(p), nil
}

// NewSerialSender wraps an already open port.
func NewSerialSender(port io.WriteCloser) *SerialSender {
	return &SerialSender{port: port}
}

// Send writes cmd to the port.
func (s *SerialSender) Send(ctx context.Context, cmd RemoteCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line := fmt.Sprintf("%s %s\n", cmd.Remote, cmd.Command)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.port, line); err != nil {
		return fmt.Errorf("%w: %w", ErrTransmitFailed, err)
	}
	return nil
}

// Kind returns "serial".
func (s *SerialSender) Kind() string { return TransmitterSerial }

// Close closes the port.
func (s *SerialSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}

// NewSender builds the sender selected by cfg.
func NewSender(cfg TransmitterConfig, pub Publisher) (Sender, error) {
	switch cfg.Type {
	case TransmitterSerial:
		return OpenSerialSender(cfg.Port, cfg.Baud)
	case TransmitterMQTT, "":
		if pub == nil {
			return nil, fmt.Errorf("%w: mqtt transmitter needs a publisher", ErrInvalidConfig)
		}
		return NewMQTTSender(pub, cfg.TopicPrefix, byte(cfg.QoS)), nil //nolint:gosec // qos validated to 0..2
	default:
		return nil, fmt.Errorf("%w: unknown transmitter %q", ErrInvalidConfig, cfg.Type)
	}
}
