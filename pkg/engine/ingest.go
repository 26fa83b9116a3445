package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"rovlink/pkg/protocol"
)

// Publisher receives every packet produced by Ingest. *Hub implements it.
type Publisher interface {
	Publish(protocol.Packet)
}

type ingestOptions struct {
	dropRejected bool
	now          func() time.Time
}

type IngestOption func(*ingestOptions)

// WithDropRejected stops rejected frames from being published. They are
// still logged.
func WithDropRejected(drop bool) IngestOption {
	return func(o *ingestOptions) {
		o.dropRejected = drop
	}
}

func WithClock(now func() time.Time) IngestOption {
	return func(o *ingestOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// Ingest turns link frames from frames into packets until ctx is done or
// frames is closed.
func Ingest(ctx context.Context, frames <-chan []byte, pub Publisher, opts ...IngestOption) {
	o := ingestOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-frames:
			if !ok {
				return
			}
			pkt, ok := decodeLinkFrame(raw, o.now())
			if !ok {
				continue
			}
			if pkt.Err != nil {
				ev := log.Debug().Err(pkt.Err)
				if pkt.HasFrame() {
					ev = ev.Str("frame", pkt.Frame.String())
				}
				ev.Msg("frame rejected")
				if o.dropRejected {
					continue
				}
			}
			pub.Publish(pkt)
		}
	}
}

// decodeLinkFrame reports false for empty link frames, which carry nothing
// worth publishing.
func decodeLinkFrame(raw []byte, ts time.Time) (protocol.Packet, bool) {
	decoded, err := protocol.CobsDecode(raw)
	if err != nil {
		return protocol.Packet{Timestamp: ts, Err: fmt.Errorf("link frame: %w", err)}, true
	}
	if len(decoded) == 0 {
		return protocol.Packet{}, false
	}

	f, err := protocol.ParseFrame(decoded)
	if err != nil {
		return protocol.Packet{Timestamp: ts, Err: err}, true
	}

	pkt := protocol.Packet{Timestamp: ts, Frame: f}
	if !protocol.Validate(f) {
		pkt.Err = protocol.CheckFrame(f)
		return pkt, true
	}
	cmd, err := protocol.Decode(f)
	if err != nil {
		pkt.Err = err
		return pkt, true
	}
	pkt.Command = cmd
	return pkt, true
}
