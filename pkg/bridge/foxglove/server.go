package foxglove

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"rovlink/pkg/engine"
	"rovlink/pkg/logger"
	"rovlink/pkg/protocol"
)

const (
	markerTypeArrow  = 0
	markerActionAdd  = 0
	logLevelInfo     = 2
	logLevelWarning  = 3
	thrustArrowWidth = 0.05
)

type MarkerMessage struct {
	Header MarkerHeader `json:"header"`
	NS     string       `json:"ns"`
	ID     int32        `json:"id"`
	Type   int32        `json:"type"`
	Action int32        `json:"action"`
	Pose   MarkerPose   `json:"pose"`
	Scale  Vector3      `json:"scale"`
	Color  ColorRGBA    `json:"color"`
}

type MarkerHeader struct {
	FrameID string      `json:"frame_id"`
	Stamp   MarkerStamp `json:"stamp"`
}

type MarkerStamp struct {
	Sec  int64 `json:"sec"`
	Nsec int64 `json:"nsec"`
}

type MarkerPose struct {
	Position    Vector3     `json:"position"`
	Orientation Quaternion3 `json:"orientation"`
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quaternion3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

type ColorRGBA struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

type FrameTime struct {
	Sec  uint32 `json:"sec"`
	Nsec uint32 `json:"nsec"`
}

type LogMessage struct {
	Timestamp FrameTime `json:"timestamp"`
	Level     uint8     `json:"level"`
	Message   string    `json:"message"`
	Name      string    `json:"name"`
	File      string    `json:"file"`
	Line      uint32    `json:"line"`
}

// Server bridges hub packets to Foxglove Studio over the Foxglove
// WebSocket protocol.
type Server struct {
	cfg     Config
	hub     *engine.Hub
	clients map[*client]struct{}
	mu      sync.RWMutex
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	subs map[uint32]uint64
	mu   sync.RWMutex
	once sync.Once
}

func NewServer(cfg Config, hub *engine.Hub) *Server {
	return &Server{
		cfg:     cfg.withDefaults(),
		hub:     hub,
		clients: make(map[*client]struct{}),
	}
}

func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)

	httpServer := &http.Server{
		Addr:    s.cfg.WSAddr,
		Handler: mux,
	}

	sub := s.hub.Subscribe()
	go s.broadcastLoop(ctx, sub)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	log.Info().Str("addr", s.cfg.WSAddr).Msg("foxglove bridge listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = httpServer.Shutdown(shutdownCtx)
		cancel()
		s.closeClients()
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		Subprotocols: []string{Subprotocol},
		CheckOrigin: func(*http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("foxglove upgrade failed")
		return
	}

	c := newClient(conn, s.cfg.SendBuf)
	s.addClient(c)
	defer func() {
		c.close()
		s.removeClient(c)
	}()

	if err := conn.WriteJSON(s.serverInfo()); err != nil {
		return
	}
	if err := conn.WriteJSON(s.advertise()); err != nil {
		return
	}

	go c.writeLoop()
	c.readLoop(s.supportedChannels())
}

func (s *Server) supportedChannels() map[uint64]struct{} {
	return map[uint64]struct{}{
		s.cfg.ChannelID:     {},
		s.cfg.ThrustChannel: {},
		s.cfg.LogChannel:    {},
	}
}

func (s *Server) serverInfo() ServerInfoMsg {
	return ServerInfoMsg{
		Op:           OpServerInfo,
		Name:         s.cfg.Name,
		Capabilities: []string{},
		SessionID:    fmt.Sprintf("%d", time.Now().UTC().UnixNano()),
	}
}

func (s *Server) advertise() AdvertiseMsg {
	return AdvertiseMsg{Op: OpAdvertise, Channels: []Channel{
		{
			ID:             s.cfg.ChannelID,
			Topic:          s.cfg.Topic,
			Encoding:       "json",
			SchemaName:     "rovlink.Command",
			SchemaEncoding: "jsonschema",
			Schema:         DefaultSchema,
		},
		{
			ID:             s.cfg.ThrustChannel,
			Topic:          s.cfg.ThrustTopic,
			Encoding:       "json",
			SchemaName:     "visualization_msgs/Marker",
			SchemaEncoding: "jsonschema",
			Schema:         DefaultMarkerSchema,
		},
		{
			ID:             s.cfg.LogChannel,
			Topic:          s.cfg.LogTopic,
			Encoding:       "json",
			SchemaName:     "foxglove.Log",
			SchemaEncoding: "jsonschema",
			Schema:         DefaultLogSchema,
		},
	}}
}

func (s *Server) broadcastLoop(ctx context.Context, sub <-chan protocol.Packet) {
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-sub:
			if !ok {
				return
			}
			s.broadcastPacket(pkt)
		}
	}
}

func (s *Server) broadcastPacket(pkt protocol.Packet) {
	ts := pkt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	if pkt.Accepted() {
		s.publishJSONToChannel(s.cfg.ChannelID, ts, logger.NewRecord(pkt))
	}
	if msg, ok := s.logFromPacket(pkt, ts); ok {
		s.publishJSONToChannel(s.cfg.LogChannel, ts, msg)
	}
	if marker, ok := s.markerFromPacket(pkt, ts); ok {
		s.publishJSONToChannel(s.cfg.ThrustChannel, ts, marker)
	}
}

func (s *Server) publishJSONToChannel(channelID uint64, ts time.Time, message any) {
	payload, err := json.Marshal(message)
	if err != nil {
		log.Debug().Err(err).Uint64("channel", channelID).Msg("foxglove marshal failed")
		return
	}

	logTime := uint64(ts.UnixNano())
	for _, c := range s.snapshotClients() {
		for _, subID := range c.subIDsForChannel(channelID) {
			c.trySend(EncodeMessageData(subID, logTime, payload))
		}
	}
}

// logFromPacket reports rejected frames as warnings and ballast or light
// changes as info. Thrust updates are too frequent for the log panel.
func (s *Server) logFromPacket(pkt protocol.Packet, ts time.Time) (LogMessage, bool) {
	msg := LogMessage{
		Timestamp: frameTime(ts),
		Name:      s.cfg.Name,
	}
	switch {
	case pkt.Err != nil && !pkt.HasFrame():
		msg.Level = logLevelWarning
		msg.Message = fmt.Sprintf("rejected link frame: %v", pkt.Err)
	case pkt.Err != nil:
		msg.Level = logLevelWarning
		msg.Message = fmt.Sprintf("rejected frame %s: %v", pkt.Frame, pkt.Err)
	case pkt.Command == nil:
		return LogMessage{}, false
	case pkt.Command.Module() == protocol.ModulePropulsion:
		return LogMessage{}, false
	default:
		msg.Level = logLevelInfo
		msg.Message = pkt.Command.String()
	}
	return msg, true
}

// markerFromPacket draws the thrust vector as an arrow in the vehicle
// frame. Non-finite vectors are skipped.
func (s *Server) markerFromPacket(pkt protocol.Packet, ts time.Time) (MarkerMessage, bool) {
	cmd, ok := pkt.Command.(protocol.PropulsionCommand)
	if !ok {
		return MarkerMessage{}, false
	}
	x, y := float64(cmd.Thrust.X), float64(cmd.Thrust.Y)
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return MarkerMessage{}, false
	}

	yaw := math.Atan2(y, x)
	return MarkerMessage{
		Header: MarkerHeader{
			FrameID: s.cfg.FrameID,
			Stamp: MarkerStamp{
				Sec:  ts.Unix(),
				Nsec: int64(ts.Nanosecond()),
			},
		},
		NS:     "rovlink.thrust",
		ID:     1,
		Type:   markerTypeArrow,
		Action: markerActionAdd,
		Pose: MarkerPose{
			Orientation: Quaternion3{Z: math.Sin(yaw / 2), W: math.Cos(yaw / 2)},
		},
		Scale: Vector3{X: math.Hypot(x, y), Y: thrustArrowWidth, Z: thrustArrowWidth},
		Color: ColorRGBA{R: 0.1, G: 0.6, B: 1, A: 1},
	}, true
}

func frameTime(ts time.Time) FrameTime {
	return FrameTime{Sec: uint32(ts.Unix()), Nsec: uint32(ts.Nanosecond())}
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func (s *Server) snapshotClients() []*client {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()
	return clients
}

// closeClients drops hijacked websocket connections, which http.Server
// Shutdown does not track.
func (s *Server) closeClients() {
	for _, c := range s.snapshotClients() {
		c.close()
	}
}

func newClient(conn *websocket.Conn, sendBuf int) *client {
	if sendBuf <= 0 {
		sendBuf = DefaultConfig().SendBuf
	}
	return &client{
		conn: conn,
		send: make(chan []byte, sendBuf),
		subs: make(map[uint32]uint64),
	}
}

func (c *client) readLoop(supportedChannels map[uint64]struct{}) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var header struct {
			Op string `json:"op"`
		}
		if err := json.Unmarshal(data, &header); err != nil {
			continue
		}

		switch header.Op {
		case OpSubscribe:
			var msg SubscribeMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			for _, sub := range msg.Subscriptions {
				if _, ok := supportedChannels[sub.ChannelID]; ok {
					c.addSub(sub.ID, sub.ChannelID)
				}
			}
		case OpUnsubscribe:
			var msg UnsubscribeMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			for _, id := range msg.SubscriptionIDs {
				c.removeSub(id)
			}
		}
	}
}

func (c *client) writeLoop() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			c.close()
			return
		}
	}
}

// trySend drops msg when the client queue is full. A send racing close
// panics on the closed channel; that message is dropped as well.
func (c *client) trySend(msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) addSub(id uint32, channelID uint64) {
	c.mu.Lock()
	c.subs[id] = channelID
	c.mu.Unlock()
}

func (c *client) removeSub(id uint32) {
	c.mu.Lock()
	delete(c.subs, id)
	c.mu.Unlock()
}

func (c *client) subIDsForChannel(channelID uint64) []uint32 {
	c.mu.RLock()
	ids := make([]uint32, 0, len(c.subs))
	for id, ch := range c.subs {
		if ch == channelID {
			ids = append(ids, id)
		}
	}
	c.mu.RUnlock()
	return ids
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}
