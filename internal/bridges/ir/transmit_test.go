package ir

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type bufferPort struct {
	bytes.Buffer
	closed   bool
	writeErr error
}

func (p *bufferPort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.Buffer.Write(b)
}

func (p *bufferPort) Close() error {
	p.closed = true
	return nil
}

func TestMQTTSender_Send(t *testing.T) {
	pub := newMockPublisher(true)
	s := NewMQTTSender(pub, "", 1)

	cmd := NewRemoteCommand("living-ac", "remote.living_room", "CODE")
	if err := s.Send(context.Background(), cmd); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msgs := pub.getMessages()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].topic != "graylogic/command/ir/remote.living_room" {
		t.Errorf("topic = %q", msgs[0].topic)
	}
	if msgs[0].retained {
		t.Error("commands must not be retained")
	}
	if msgs[0].qos != 1 {
		t.Errorf("qos = %d", msgs[0].qos)
	}

	var got RemoteCommand
	if err := json.Unmarshal(msgs[0].payload, &got); err != nil {
		t.Fatal(err)
	}
	if got.Command != "raw:CODE" || got.ID != cmd.ID {
		t.Errorf("payload = %+v", got)
	}

	if s.Kind() != TransmitterMQTT {
		t.Errorf("Kind() = %q", s.Kind())
	}
}

func TestMQTTSender_TopicPrefix(t *testing.T) {
	s := NewMQTTSender(newMockPublisher(true), "site/ir/", 0)
	if got := s.Topic("remote.bedroom"); got != "site/ir/remote.bedroom" {
		t.Errorf("Topic() = %q", got)
	}
}

func TestMQTTSender_PublishError(t *testing.T) {
	pub := newMockPublisher(true)
	pub.err = errors.New("broker gone")
	s := NewMQTTSender(pub, "", 1)

	err := s.Send(context.Background(), NewRemoteCommand("a", "r", "C"))
	if !errors.Is(err, ErrTransmitFailed) {
		t.Errorf("Send() error = %v, want ErrTransmitFailed", err)
	}
}

func TestSerialSender(t *testing.T) {
	port := &bufferPort{}
	s := NewSerialSender(port)

	if err := s.Send(context.Background(), NewRemoteCommand("a", "remote.living_room", "C1")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := s.Send(context.Background(), NewRemoteCommand("a", "remote.bedroom", "C2")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := "remote.living_room raw:C1\nremote.bedroom raw:C2\n"
	if got := port.String(); got != want {
		t.Errorf("written = %q, want %q", got, want)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, NewRemoteCommand("a", "r", "C3")); !errors.Is(err, context.Canceled) {
		t.Errorf("Send() with cancelled ctx = %v", err)
	}

	port.writeErr = errors.New("unplugged")
	if err := s.Send(context.Background(), NewRemoteCommand("a", "r", "C4")); !errors.Is(err, ErrTransmitFailed) {
		t.Errorf("Send() error = %v, want ErrTransmitFailed", err)
	}

	if err := s.Close(); err != nil || !port.closed {
		t.Errorf("Close() = %v, closed = %v", err, port.closed)
	}
	if s.Kind() != TransmitterSerial {
		t.Errorf("Kind() = %q", s.Kind())
	}
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(TransmitterConfig{Type: TransmitterMQTT, QoS: 1}, newMockPublisher(true))
	if err != nil {
		t.Fatalf("NewSender(mqtt) error = %v", err)
	}
	if s.Kind() != TransmitterMQTT {
		t.Errorf("Kind() = %q", s.Kind())
	}

	if _, err := NewSender(TransmitterConfig{Type: TransmitterMQTT}, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewSender without publisher = %v", err)
	}
	if _, err := NewSender(TransmitterConfig{Type: "carrier-pigeon"}, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewSender(unknown) = %v", err)
	}
}
