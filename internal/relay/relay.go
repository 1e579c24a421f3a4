package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/camrelay/camrelay/internal/config"
	"github.com/camrelay/camrelay/internal/gate"
	"github.com/camrelay/camrelay/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Allow all origins — callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Options tune a Relay. Zero values fall back to the config package defaults.
type Options struct {
	// HeartbeatInterval is the time between viewer liveness sweeps.
	HeartbeatInterval time.Duration

	// MaxBufferedBytes is the per-viewer outbound occupancy above which
	// deliveries are dropped.
	MaxBufferedBytes int64

	// RoomEvictionTTL is how long an idle room is retained; zero disables
	// eviction.
	RoomEvictionTTL time.Duration
}

// Relay wires admitted connections into rooms and fans frames out from
// publishers to viewers. It owns the room registry; nothing about it is
// ambient process state, so independent relays can coexist (and be tested)
// in one process.
type Relay struct {
	gate      *gate.Gate
	reg       *Registry
	heartbeat time.Duration

	maxBuffered atomic.Int64
}

// New creates a Relay admitting connections through g.
func New(g *gate.Gate, opts Options) *Relay {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = config.DefaultHeartbeatInterval
	}
	if opts.MaxBufferedBytes <= 0 {
		opts.MaxBufferedBytes = config.DefaultMaxBufferedBytes
	}

	rl := &Relay{
		gate:      g,
		reg:       NewRegistry(opts.RoomEvictionTTL),
		heartbeat: opts.HeartbeatInterval,
	}
	rl.maxBuffered.Store(opts.MaxBufferedBytes)
	return rl
}

// Rooms exposes the relay's room registry, mainly so the caller can start
// its eviction loop and adjust its TTL on config reload.
func (rl *Relay) Rooms() *Registry { return rl.reg }

// SetMaxBufferedBytes replaces the backpressure threshold at runtime; used
// by config hot reload.
func (rl *Relay) SetMaxBufferedBytes(n int64) {
	if n > 0 {
		rl.maxBuffered.Store(n)
	}
}

// ServeHTTP admits, upgrades, and serves one connection. Rejections are
// written as plain HTTP statuses before any upgrade: 404 for an unknown or
// malformed path, 401 for a failed key check. Blocks until the connection
// closes.
func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	adm, err := rl.gate.Admit(r.URL.Path, r.URL.Query().Get("key"))
	switch {
	case errors.Is(err, gate.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case errors.Is(err, gate.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	case err != nil:
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := newClient(conn, adm)
	slog.Info("connection open", "role", c.role, "cam", c.camID)
	defer slog.Info("connection closed", "role", c.role, "cam", c.camID)

	// Attach counts this connection under the registry lock, so the room
	// cannot be evicted while a handler still references it.
	room := rl.reg.Attach(c.camID)
	defer room.Release()

	go c.writePump()
	defer c.close()

	switch c.role {
	case gate.RolePublisher:
		rl.servePublisher(c, room)
	default:
		rl.serveViewer(c, room)
	}
}

// serveViewer registers c with its room, replays the cached frame if one
// exists, then reads (and discards) inbound traffic until the connection
// closes. The read loop exists to process control frames and detect
// disconnects; viewer data messages never trigger a broadcast.
func (rl *Relay) serveViewer(c *client, room *Room) {
	room.addViewer(c)
	defer room.removeViewer(c)

	if frame, ok := room.LastFrame(); ok {
		c.trySend(encodeFrame(frame), rl.maxBuffered.Load())
	}

	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// servePublisher reads frames from c and broadcasts each valid one to the
// room's viewers. Malformed messages are discarded without disturbing the
// connection or the cached frame.
func (rl *Relay) servePublisher(c *client, room *Room) {
	// Publishers are not swept by the heartbeat, so no pong handler here;
	// a half-open publisher is eventually cleared by the transport.
	c.conn.SetReadLimit(maxFrameBytes)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		frame, ok := parseFrame(data)
		if !ok {
			metrics.FramesDroppedTotal.WithLabelValues("malformed").Inc()
			continue
		}
		rl.publish(room, frame)
	}
}

// publish overwrites the room's cached frame and fans it out to the viewers
// registered at this moment. Delivery is fire-and-forget per viewer: one
// slow or gone viewer never delays or fails the others.
func (rl *Relay) publish(room *Room, frame string) {
	targets := room.setFrame(frame, time.Now())
	metrics.FramesPublishedTotal.WithLabelValues(room.ID()).Inc()

	payload := encodeFrame(frame)
	limit := rl.maxBuffered.Load()
	for _, v := range targets {
		v.trySend(payload, limit)
	}
}

// Run drives the heartbeat sweep. Every interval it walks all viewer
// connections across all rooms: a viewer whose liveness flag is still false
// from the previous tick is force-closed (its read loop then performs the
// usual removal); everyone else has the flag cleared and is sent a ping.
// Pong receipt sets the flag true asynchronously.
//
// Run blocks until ctx is cancelled, then closes all viewer connections.
func (rl *Relay) Run(ctx context.Context) {
	t := time.NewTicker(rl.heartbeat)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			rl.closeAll()
			return
		case <-t.C:
			rl.sweep()
		}
	}
}

func (rl *Relay) sweep() {
	reclaimed := 0
	for _, room := range rl.reg.roomSnapshot() {
		for _, v := range room.viewerSnapshot() {
			if !v.alive.Load() {
				v.close()
				reclaimed++
				continue
			}
			v.alive.Store(false)
			if err := v.ping(); err != nil {
				slog.Debug("heartbeat: ping failed", "cam", v.camID, "err", err)
			}
		}
	}
	if reclaimed > 0 {
		metrics.ViewersReclaimedTotal.Add(float64(reclaimed))
		slog.Info("heartbeat: reclaimed unresponsive viewers", "count", reclaimed)
	}
}

func (rl *Relay) closeAll() {
	for _, room := range rl.reg.roomSnapshot() {
		for _, v := range room.viewerSnapshot() {
			v.close()
		}
	}
}
