// Package config loads the relay configuration from the `relay:` section of
// config.yaml.
//
// Config fields:
//   - HTTPPort                      — listening port (default 8765)
//   - Auth.Mode                     — "key" or "none"
//   - Auth.KeyEnv                   — environment variable holding the shared secret
//   - Heartbeat.Interval            — dead-viewer sweep interval (default 30s)
//   - Backpressure.MaxBufferedBytes — per-viewer drop threshold (default 5 MiB)
//   - Rooms.EvictionTTL             — idle-room retention; 0 disables (default 1h)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) reloads the file on change; the caller applies
// whichever settings are runtime-mutable.
package config
