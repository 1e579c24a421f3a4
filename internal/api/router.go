package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camrelay/camrelay/internal/relay"
)

// infoPage is the root informational page, mainly a reminder of the two
// connect URLs.
const infoPage = `<!DOCTYPE html>
<html>
<head><title>camrelay</title></head>
<body>
<h1>camrelay</h1>
<p>Publisher: <code>wss://HOST/pub/cam1?key=SECRET</code></p>
<p>Viewer: <code>wss://HOST/sub/cam1?key=SECRET</code></p>
</body>
</html>
`

// New builds the HTTP handler for relayd: the two websocket mounts, the
// informational root page, the health check, and Prometheus exposition.
// Everything else is a plain 404.
//
// The relay's gate stays authoritative for camera-id syntax and the key
// check; chi only routes.
func New(rl *relay.Relay) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(infoPage)) //nolint:errcheck
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("ok")) //nolint:errcheck
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/pub/{cam}", rl.ServeHTTP)
	r.Get("/sub/{cam}", rl.ServeHTTP)

	return r
}
