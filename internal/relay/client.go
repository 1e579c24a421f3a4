package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/camrelay/camrelay/internal/gate"
	"github.com/camrelay/camrelay/internal/metrics"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// sendQueueLen is the per-client outgoing message queue depth. The byte
	// threshold, not the queue depth, is the intended backpressure limit;
	// the queue only has to be deep enough to absorb write-pump scheduling
	// jitter.
	sendQueueLen = 64

	// maxFrameBytes bounds a single inbound publisher message.
	maxFrameBytes = 16 << 20
)

// client is one admitted websocket connection. Role and camera id are fixed
// at admission and never change.
type client struct {
	conn  *websocket.Conn
	role  gate.Role
	camID string

	// send carries encoded frames from the broadcast path to the write pump.
	send chan []byte

	// buffered tracks the byte count of frames accepted into send but not
	// yet written. Deliveries are dropped while it exceeds the limit.
	buffered atomic.Int64

	// alive is the heartbeat liveness flag: set on every pong, cleared and
	// probed by each sweep tick.
	alive atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, adm gate.Admission) *client {
	c := &client{
		conn:  conn,
		role:  adm.Role,
		camID: adm.CamID,
		send:  make(chan []byte, sendQueueLen),
		done:  make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

// close tears the connection down. Safe to call from any goroutine and more
// than once; the read loop unwinds on the connection error and performs the
// registry cleanup.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// closed reports whether the connection has been torn down.
func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// trySend delivers payload to this client, enforcing the backpressure policy.
// It never blocks: a closed client is skipped, a client whose outbound
// buffer occupancy exceeds limit has this delivery dropped, and a saturated
// send queue likewise drops. The outcome never surfaces to the sender.
func (c *client) trySend(payload []byte, limit int64) {
	if c.closed() {
		metrics.FramesDroppedTotal.WithLabelValues("closed").Inc()
		return
	}

	if c.buffered.Load() > limit {
		metrics.FramesDroppedTotal.WithLabelValues("buffer_full").Inc()
		return
	}

	c.buffered.Add(int64(len(payload)))
	select {
	case c.send <- payload:
		metrics.FramesDeliveredTotal.Inc()
	default:
		c.buffered.Add(-int64(len(payload)))
		metrics.FramesDroppedTotal.WithLabelValues("queue_full").Inc()
	}
}

// ping probes the peer for liveness. WriteControl is safe to call
// concurrently with the write pump.
func (c *client) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// writePump drains the send queue and forwards frames to the websocket
// connection. Runs in its own goroutine per client and exits when the client
// is closed or a write fails.
func (c *client) writePump() {
	defer c.close()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := c.conn.WriteMessage(websocket.TextMessage, msg)
			c.buffered.Add(-int64(len(msg)))
			if err != nil {
				return
			}
		}
	}
}
