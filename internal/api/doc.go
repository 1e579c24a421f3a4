// Package api assembles the HTTP surface of relayd: the /pub/{cam} and
// /sub/{cam} websocket mounts, the informational root page, /healthz, and
// /metrics.
package api
