package engine

import (
	"context"
	"sync/atomic"

	"rovlink/pkg/protocol"
)

const (
	defaultBroadcastBuffer = 256
	defaultClientBuffer    = 100
)

// Hub fans decoded packets out to subscribers. A subscriber whose buffer is
// full misses the packet; the publisher never waits on it.
//
// All subscriber bookkeeping happens on the Run goroutine, so Subscribe,
// Unsubscribe and Publish block until Run is serving.
type Hub struct {
	broadcast  chan protocol.Packet
	register   chan chan protocol.Packet
	unregister chan chan protocol.Packet
	clients    map[chan protocol.Packet]struct{}
	clientBuf  int
	dropped    atomic.Uint64
}

// Option tunes a Hub at construction.
type Option func(*Hub)

// WithBroadcastBuffer sets how many published packets may queue ahead of
// Run. Non-positive sizes keep the default.
func WithBroadcastBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.broadcast = make(chan protocol.Packet, size)
		}
	}
}

// WithClientBuffer sets the buffer Subscribe gives each subscriber.
func WithClientBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.clientBuf = size
		}
	}
}

// NewHub returns an idle hub. Start it with Run.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		broadcast:  make(chan protocol.Packet, defaultBroadcastBuffer),
		register:   make(chan chan protocol.Packet),
		unregister: make(chan chan protocol.Packet),
		clients:    make(map[chan protocol.Packet]struct{}),
		clientBuf:  defaultClientBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run serves subscriptions and delivers packets until ctx is done, then
// closes every subscriber channel still registered.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ch := <-h.register:
			h.clients[ch] = struct{}{}
		case ch := <-h.unregister:
			h.remove(ch)
		case pkt := <-h.broadcast:
			h.deliver(pkt)
		}
	}
}

func (h *Hub) deliver(pkt protocol.Packet) {
	for ch := range h.clients {
		select {
		case ch <- pkt:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) remove(ch chan protocol.Packet) {
	if _, ok := h.clients[ch]; !ok {
		return
	}
	delete(h.clients, ch)
	close(ch)
}

func (h *Hub) closeAll() {
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

// Subscribe registers a subscriber with the configured client buffer.
func (h *Hub) Subscribe() chan protocol.Packet {
	return h.SubscribeWithBuffer(h.clientBuf)
}

// SubscribeWithBuffer registers a subscriber with its own buffer size.
// The channel is closed by Unsubscribe or when Run returns.
func (h *Hub) SubscribeWithBuffer(size int) chan protocol.Packet {
	if size <= 0 {
		size = h.clientBuf
	}
	ch := make(chan protocol.Packet, size)
	h.register <- ch
	return ch
}

// Unsubscribe removes ch and closes it. Unknown channels are ignored.
func (h *Hub) Unsubscribe(ch chan protocol.Packet) {
	h.unregister <- ch
}

// Publish queues pkt for delivery. It blocks only when the broadcast
// buffer is full.
func (h *Hub) Publish(pkt protocol.Packet) {
	h.broadcast <- pkt
}

// Dropped counts deliveries skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
