package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"rovlink/pkg/logger"
	"rovlink/pkg/protocol"
)

func TestJSONLWriter(t *testing.T) {
	var buf bytes.Buffer
	writer := logger.NewJSONLWriter(&buf)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan protocol.Packet, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writer.Consume(ctx, ch)
	}()

	ts := time.Date(2026, 2, 5, 16, 0, 0, 0, time.UTC)
	cmd := protocol.SetThrust(1, -2)
	ch <- protocol.Packet{
		Timestamp: ts,
		Frame:     cmd.Encode(),
		Command:   cmd,
	}
	close(ch)
	wg.Wait()

	rec := decodeLine(t, buf.String())
	if rec["module"] != "propulsion" || rec["module_id"] != "0x01" {
		t.Fatalf("unexpected module: %v %v", rec["module"], rec["module_id"])
	}
	if rec["frame_hex"] != "0a010000803f000000c000000000000f" {
		t.Fatalf("unexpected frame_hex: %v", rec["frame_hex"])
	}
	if rec["command"] != "thrust 1 -2" {
		t.Fatalf("unexpected command: %v", rec["command"])
	}
	fields, ok := rec["fields"].(map[string]any)
	if !ok || fields["x"] != 1.0 || fields["y"] != -2.0 {
		t.Fatalf("unexpected fields: %v", rec["fields"])
	}
	if _, ok := rec["error"]; ok {
		t.Fatalf("unexpected error field: %v", rec["error"])
	}
	tsValue, ok := rec["ts"].(string)
	if !ok || tsValue == "" {
		t.Fatalf("missing ts field")
	}
	if _, err := time.Parse(time.RFC3339Nano, tsValue); err != nil {
		t.Fatalf("invalid ts format: %v", err)
	}
}

func TestJSONLWriterReject(t *testing.T) {
	var buf bytes.Buffer
	writer := logger.NewJSONLWriter(&buf)

	f := protocol.NewTemplate()
	f[1] = 0x05
	if err := writer.Write(protocol.Packet{Frame: f, Err: errors.New("protocol: unknown module id")}); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := decodeLine(t, buf.String())
	if rec["error"] != "protocol: unknown module id" {
		t.Fatalf("unexpected error: %v", rec["error"])
	}
	if rec["module_id"] != "0x05" {
		t.Fatalf("unexpected module_id: %v", rec["module_id"])
	}
	if _, ok := rec["command"]; ok {
		t.Fatalf("reject must not carry a command")
	}
}

func TestJSONLWriterUnparsedFrame(t *testing.T) {
	var buf bytes.Buffer
	writer := logger.NewJSONLWriter(&buf)

	_, err := protocol.CobsDecode([]byte{0x05, 0x01})
	if err := writer.Write(protocol.Packet{Err: err}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err = protocol.ParseFrame([]byte{0x0A, 0x00, 0x0F})
	if err := writer.Write(protocol.Packet{Err: err}); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		rec := decodeLine(t, line)
		if _, ok := rec["module_id"]; ok {
			t.Fatalf("unparsed frame must not carry module_id: %v", rec)
		}
		if _, ok := rec["frame_hex"]; ok {
			t.Fatalf("unparsed frame must not carry frame_hex: %v", rec)
		}
		if rec["error"] == nil || rec["error"] == "" {
			t.Fatalf("missing error: %v", rec)
		}
	}
}

func TestJSONLWriterNonFiniteThrust(t *testing.T) {
	var buf bytes.Buffer
	writer := logger.NewJSONLWriter(&buf)

	cmd := protocol.SetThrust(float32(math.NaN()), float32(math.Inf(1)))
	if err := writer.Write(protocol.Packet{Frame: cmd.Encode(), Command: cmd}); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec := decodeLine(t, buf.String())
	fields := rec["fields"].(map[string]any)
	if fields["x"] != "NaN" || fields["y"] != "+Inf" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func decodeLine(t *testing.T, out string) map[string]any {
	t.Helper()
	line := strings.TrimSpace(out)
	if line == "" {
		t.Fatalf("expected output line")
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("json unmarshal failed: %v", err)
	}
	return rec
}
