package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesPublishedTotal counts frames accepted from publishers, per camera.
	FramesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camrelay_frames_published_total",
			Help: "Total number of frames accepted from publishers",
		},
		[]string{"cam"},
	)

	// FramesDeliveredTotal counts individual frame deliveries to viewers.
	// One publish to a room with N viewers increments this up to N times.
	FramesDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camrelay_frames_delivered_total",
			Help: "Total number of frame deliveries to viewer connections",
		},
	)

	// FramesDroppedTotal counts deliveries and publishes that were discarded,
	// by reason: "buffer_full" (viewer over the backpressure threshold),
	// "queue_full" (viewer send queue saturated), "closed" (viewer already
	// gone at delivery time), "malformed" (publisher payload discarded).
	FramesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camrelay_frames_dropped_total",
			Help: "Total number of discarded frames, by reason",
		},
		[]string{"reason"},
	)

	// ConnectedViewers tracks the number of currently registered viewer
	// connections across all rooms.
	ConnectedViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camrelay_connected_viewers",
			Help: "Number of currently connected viewer connections",
		},
	)

	// LiveRooms tracks the number of rooms currently held in the registry.
	LiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camrelay_live_rooms",
			Help: "Number of rooms currently held in the registry",
		},
	)

	// ViewersReclaimedTotal counts viewer connections force-closed by the
	// heartbeat sweep after a missed pong.
	ViewersReclaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camrelay_viewers_reclaimed_total",
			Help: "Total number of viewer connections reclaimed by the heartbeat sweep",
		},
	)

	// RoomsEvictedTotal counts rooms removed by the TTL eviction sweep.
	RoomsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camrelay_rooms_evicted_total",
			Help: "Total number of idle rooms evicted from the registry",
		},
	)
)
