package transport_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"rovlink/pkg/protocol"
	"rovlink/pkg/transport"
)

func TestFrameWriterWritesLinkFrames(t *testing.T) {
	var buf bytes.Buffer
	fw := transport.NewFrameWriter(&buf)

	if err := fw.Send(protocol.BallastIntake); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := fw.WriteFrame(protocol.SetThrust(1, -2).Encode()); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	parts := bytes.Split(bytes.TrimSuffix(buf.Bytes(), []byte{0x00}), []byte{0x00})
	if len(parts) != 2 {
		t.Fatalf("expected 2 link frames, got %d: %x", len(parts), buf.Bytes())
	}

	want := []protocol.Command{protocol.BallastIntake, protocol.SetThrust(1, -2)}
	for i, part := range parts {
		raw, err := protocol.CobsDecode(part)
		if err != nil {
			t.Fatalf("cobs decode: %v", err)
		}
		cmd, err := protocol.DecodeBytes(raw)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if cmd != want[i] {
			t.Fatalf("frame %d: got %s want %s", i, cmd, want[i])
		}
	}
}

func TestFrameWriterRefusesInvalidCommand(t *testing.T) {
	var buf bytes.Buffer
	fw := transport.NewFrameWriter(&buf)

	err := fw.Send(protocol.BallastCommand(7))
	if !errors.Is(err, protocol.ErrUnknownVariant) {
		t.Fatalf("expected unknown variant, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("invalid command reached the link: %x", buf.Bytes())
	}
}

func TestFrameWriterConcurrentSends(t *testing.T) {
	var buf bytes.Buffer
	fw := transport.NewFrameWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = fw.Send(protocol.LightBlink)
			}
		}()
	}
	wg.Wait()

	link := protocol.AppendLinkFrame(nil, protocol.LightBlink.Encode())
	if got := bytes.Count(buf.Bytes(), link); got != 200 {
		t.Fatalf("expected 200 intact frames, got %d", got)
	}
}

func TestOpenLinkTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	rwc, err := transport.OpenLink(context.Background(), ln.Addr().String(), transport.SerialConfig{})
	if err != nil {
		t.Fatalf("open link: %v", err)
	}
	defer rwc.Close()

	if err := transport.NewFrameWriter(rwc).Send(protocol.LightOn); err != nil {
		t.Fatalf("send: %v", err)
	}

	conn := <-accepted
	defer conn.Close()
	want := protocol.AppendLinkFrame(nil, protocol.LightOn.Encode())
	got := make([]byte, len(want))
	if _, err := io.ReadFull(conn, got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected bytes: %x want %x", got, want)
	}
}

func TestOpenSerialPortValidatesConfig(t *testing.T) {
	if _, err := transport.OpenSerialPort(transport.SerialConfig{Baud: 9600}); err == nil {
		t.Fatalf("expected error for empty port name")
	}
	if _, err := transport.OpenSerialPort(transport.SerialConfig{Port: "/dev/null-rov"}); err == nil {
		t.Fatalf("expected error for zero baud")
	}
}
