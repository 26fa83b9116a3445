package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"rovlink/pkg/protocol"
)

// JSONLWriter writes one JSON object per packet.
type JSONLWriter struct {
	enc *json.Encoder
}

// Record is the JSON form of a packet.
type Record struct {
	TS       string         `json:"ts"`
	Module   string         `json:"module,omitempty"`
	ModuleID string         `json:"module_id,omitempty"`
	FrameHex string         `json:"frame_hex,omitempty"`
	Command  string         `json:"command,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func NewJSONLWriter(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

func (j *JSONLWriter) Consume(ctx context.Context, in <-chan protocol.Packet) {
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-in:
			if !ok {
				return
			}
			_ = j.Write(pkt)
		}
	}
}

func (j *JSONLWriter) Write(pkt protocol.Packet) error {
	return j.enc.Encode(NewRecord(pkt))
}

// NewRecord renders pkt. Non-finite thrust values become strings. The
// frame fields stay empty when no frame was parsed.
func NewRecord(pkt protocol.Packet) Record {
	rec := Record{TS: pkt.Timestamp.UTC().Format(time.RFC3339Nano)}
	if pkt.HasFrame() {
		rec.ModuleID = formatID(pkt.Frame.ModuleID())
		rec.FrameHex = pkt.Frame.String()
	}
	if pkt.Err != nil {
		rec.Error = pkt.Err.Error()
	}
	if pkt.Command == nil {
		return rec
	}

	m := pkt.Command.Module()
	rec.Module = m.String()
	rec.Command = pkt.Command.String()
	if fields, err := protocol.DecodeFields(m, pkt.Frame.Payload()); err == nil {
		rec.Fields = jsonSafe(fields)
	}
	return rec
}

// jsonSafe replaces NaN and infinities, which encoding/json rejects, with
// their string forms.
func jsonSafe(fields map[string]any) map[string]any {
	for k, v := range fields {
		f, ok := v.(float32)
		if !ok {
			continue
		}
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			fields[k] = fmt.Sprint(f)
		}
	}
	return fields
}

func formatID(id uint8) string {
	return fmt.Sprintf("0x%02x", id)
}
