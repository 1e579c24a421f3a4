// Package relay implements the frame fan-out core: the room registry, the
// per-connection publish/subscribe handling, the broadcast path with its
// silent-drop backpressure policy, and the heartbeat sweep that reclaims
// dead viewer connections.
//
// A Relay is created with New(gate, opts) and mounted as an http.Handler on
// the /pub/{cam} and /sub/{cam} routes; it performs the websocket upgrade
// itself after the gate admits the request. Relay.Run drives the heartbeat
// sweep and Relay.Rooms().Run drives idle-room eviction; both block until
// their context is cancelled.
//
// Delivery guarantees are deliberately weak: frames to a slow, saturated, or
// closed viewer are dropped, never queued or retried. The only cached state
// is each room's single most-recent frame, replayed to viewers on join.
package relay
