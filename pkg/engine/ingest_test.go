package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rovlink/pkg/engine"
	"rovlink/pkg/protocol"
)

type collector struct {
	mu      sync.Mutex
	packets []protocol.Packet
}

func (c *collector) Publish(pkt protocol.Packet) {
	c.mu.Lock()
	c.packets = append(c.packets, pkt)
	c.mu.Unlock()
}

func (c *collector) snapshot() []protocol.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Packet(nil), c.packets...)
}

func linkBody(f protocol.Frame) []byte {
	link := protocol.AppendLinkFrame(nil, f)
	return link[:len(link)-1]
}

func runIngest(t *testing.T, frames [][]byte, opts ...engine.IngestOption) []protocol.Packet {
	t.Helper()
	in := make(chan []byte, len(frames))
	for _, f := range frames {
		in <- f
	}
	close(in)

	var c collector
	done := make(chan struct{})
	go func() {
		engine.Ingest(context.Background(), in, &c, opts...)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("ingest did not stop after input closed")
	}
	return c.snapshot()
}

func TestIngestDecodesCommands(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	packets := runIngest(t, [][]byte{
		linkBody(protocol.BallastIntake.Encode()),
		linkBody(protocol.SetThrust(1, -2).Encode()),
	}, engine.WithClock(func() time.Time { return ts }))

	if len(packets) != 2 {
		t.Fatalf("expected 2 packets, got %d", len(packets))
	}
	if !packets[0].Accepted() || packets[0].Command != protocol.BallastIntake {
		t.Fatalf("unexpected first packet: %+v", packets[0])
	}
	if packets[1].Command != protocol.SetThrust(1, -2) {
		t.Fatalf("unexpected second packet: %+v", packets[1])
	}
	if !packets[0].Timestamp.Equal(ts) {
		t.Fatalf("unexpected timestamp: %v", packets[0].Timestamp)
	}
}

func TestIngestPublishesRejects(t *testing.T) {
	badModule := protocol.NewTemplate()
	badModule[1] = 0x05
	badVariant := protocol.BallastIdle.Encode()
	badVariant[2] = 0x09

	packets := runIngest(t, [][]byte{
		linkBody(badModule),
		linkBody(badVariant),
		protocol.CobsEncode([]byte{0x0A, 0x00, 0x0F}),
		{0x05, 0x01},
	})
	if len(packets) != 4 {
		t.Fatalf("expected 4 packets, got %d", len(packets))
	}
	if !errors.Is(packets[0].Err, protocol.ErrUnknownModule) {
		t.Fatalf("expected unknown module, got %v", packets[0].Err)
	}
	if !errors.Is(packets[1].Err, protocol.ErrUnknownVariant) {
		t.Fatalf("expected unknown variant, got %v", packets[1].Err)
	}
	if !errors.Is(packets[2].Err, protocol.ErrFrameSize) {
		t.Fatalf("expected frame size error, got %v", packets[2].Err)
	}
	if !errors.Is(packets[3].Err, protocol.ErrLinkFrame) {
		t.Fatalf("expected link frame error, got %v", packets[3].Err)
	}
	if !packets[0].HasFrame() || !packets[1].HasFrame() {
		t.Fatalf("decode rejects must keep their frame")
	}
	if packets[2].HasFrame() || packets[3].HasFrame() {
		t.Fatalf("unparsed rejects must not claim a frame")
	}
	for _, pkt := range packets {
		if pkt.Accepted() {
			t.Fatalf("reject marked accepted: %+v", pkt)
		}
	}
}

func TestIngestDropRejected(t *testing.T) {
	bad := protocol.LightOn.Encode()
	bad[0] = 0x0B

	packets := runIngest(t, [][]byte{
		linkBody(bad),
		linkBody(protocol.LightOn.Encode()),
	}, engine.WithDropRejected(true))
	if len(packets) != 1 || packets[0].Command != protocol.LightOn {
		t.Fatalf("unexpected packets: %+v", packets)
	}
}

func TestIngestStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Ingest(ctx, make(chan []byte), &collector{})
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("ingest did not stop on cancel")
	}
}
