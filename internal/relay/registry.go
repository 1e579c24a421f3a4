package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/camrelay/camrelay/internal/metrics"
)

// Room is the broadcast group for one camera id: the set of connected
// viewers plus the most recently published frame.
type Room struct {
	id string

	mu          sync.Mutex
	viewers     map[*client]struct{}
	conns       int // connections attached via Registry.Attach, either role
	lastFrame   string
	hasFrame    bool
	lastPublish time.Time
}

func newRoom(id string, now time.Time) *Room {
	return &Room{
		id:      id,
		viewers: make(map[*client]struct{}),
		// Creation counts as activity so a room cannot be evicted between
		// its first lookup and the connection registering with it.
		lastPublish: now,
	}
}

// ID returns the camera identifier this room is keyed by.
func (r *Room) ID() string { return r.id }

// ViewerCount returns the number of currently registered viewers.
func (r *Room) ViewerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}

// LastFrame returns the cached frame and whether one has ever been published.
func (r *Room) LastFrame() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastFrame, r.hasFrame
}

func (r *Room) addViewer(c *client) {
	r.mu.Lock()
	r.viewers[c] = struct{}{}
	r.mu.Unlock()
	metrics.ConnectedViewers.Inc()
}

func (r *Room) removeViewer(c *client) {
	r.mu.Lock()
	_, ok := r.viewers[c]
	if ok {
		delete(r.viewers, c)
	}
	r.mu.Unlock()
	if ok {
		metrics.ConnectedViewers.Dec()
	}
}

// setFrame overwrites the cached frame (last-write-wins) and returns a
// snapshot of the current viewer set for the broadcast pass. The snapshot is
// taken under the room lock so a viewer freed mid-broadcast is never written
// to through a stale set; viewers added after the snapshot miss this frame,
// which is acceptable.
func (r *Room) setFrame(frame string, now time.Time) []*client {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFrame = frame
	r.hasFrame = true
	r.lastPublish = now
	targets := make([]*client, 0, len(r.viewers))
	for c := range r.viewers {
		targets = append(targets, c)
	}
	return targets
}

// viewerSnapshot returns the current viewer set for the heartbeat sweep.
func (r *Room) viewerSnapshot() []*client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*client, 0, len(r.viewers))
	for c := range r.viewers {
		out = append(out, c)
	}
	return out
}

// Release undoes Attach. Connections call it when their handler unwinds.
func (r *Room) Release() {
	r.mu.Lock()
	if r.conns > 0 {
		r.conns--
	}
	r.mu.Unlock()
}

// idle reports whether the room has no attached connections (viewer or
// publisher), no registered viewers, and no activity (creation or publish)
// newer than cutoff. An idle publisher holding its connection open keeps the
// room alive regardless of when it last published.
func (r *Room) idle(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns == 0 && len(r.viewers) == 0 && !r.lastPublish.After(cutoff)
}

// Registry is the process-wide mapping from camera id to Room. Rooms are
// created lazily on first lookup; a background sweep (Run) evicts rooms that
// have no attached connections and no publish within the configured TTL.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	ttlMu sync.Mutex
	ttl   time.Duration

	now func() time.Time // injectable for deterministic tests
}

// NewRegistry creates a Registry with the given eviction TTL. A TTL of zero
// disables eviction and rooms live for the process lifetime.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Room returns the room for the given camera id, creating it if it does not
// exist. Creation is atomic: concurrent lookups for the same id observe the
// same Room.
func (g *Registry) Room(id string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.room(id)
}

// Attach returns the room for the given camera id with the calling
// connection counted as attached. The count is taken under the registry lock,
// so the returned room cannot be evicted out from under the connection —
// every later publish and viewer registration through this reference stays
// visible in the registry. The caller must pair Attach with Room.Release.
func (g *Registry) Attach(id string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.room(id)
	r.mu.Lock()
	r.conns++
	r.mu.Unlock()
	return r
}

// room looks up or creates an entry. Callers hold g.mu.
func (g *Registry) room(id string) *Room {
	r, ok := g.rooms[id]
	if !ok {
		r = newRoom(id, g.now())
		g.rooms[id] = r
		metrics.LiveRooms.Set(float64(len(g.rooms)))
	}
	return r
}

// Count returns the number of rooms currently held.
func (g *Registry) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// SetTTL replaces the eviction TTL. Takes effect on the next sweep tick;
// used by config hot reload.
func (g *Registry) SetTTL(ttl time.Duration) {
	g.ttlMu.Lock()
	g.ttl = ttl
	g.ttlMu.Unlock()
}

// TTL returns the current eviction TTL.
func (g *Registry) TTL() time.Duration {
	g.ttlMu.Lock()
	defer g.ttlMu.Unlock()
	return g.ttl
}

// Evict removes rooms that have no attached connections and whose last
// publish is older than now minus TTL. It returns the number of rooms
// removed, zero when eviction is disabled.
func (g *Registry) Evict(now time.Time) int {
	ttl := g.TTL()
	if ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-ttl)

	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for id, r := range g.rooms {
		if r.idle(cutoff) {
			delete(g.rooms, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.LiveRooms.Set(float64(len(g.rooms)))
		metrics.RoomsEvictedTotal.Add(float64(removed))
	}
	return removed
}

// rooms list for the heartbeat sweep.
func (g *Registry) roomSnapshot() []*Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	return out
}

// Run starts the background eviction loop. It ticks at half the TTL,
// clamped to [1s, 1m], and re-reads the TTL each tick so SetTTL takes
// effect without a restart. Each tick is a no-op while eviction is
// disabled. Run blocks until ctx is cancelled.
func (g *Registry) Run(ctx context.Context) {
	t := time.NewTicker(sweepInterval(g.TTL()))
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := g.Evict(now); n > 0 {
				slog.Debug("registry: evicted idle rooms", "count", n)
			}
			t.Reset(sweepInterval(g.TTL()))
		}
	}
}

// sweepInterval derives the eviction tick period from the TTL.
func sweepInterval(ttl time.Duration) time.Duration {
	switch {
	case ttl <= 0:
		return time.Minute
	case ttl/2 < time.Second:
		return time.Second
	case ttl/2 > time.Minute:
		return time.Minute
	default:
		return ttl / 2
	}
}
