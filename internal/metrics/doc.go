// Package metrics defines the Prometheus instrumentation for relayd.
//
// All collectors are registered on the default registry via promauto and
// exposed by the /metrics endpoint mounted in internal/api.
package metrics
