package gate

import (
	"errors"
	"regexp"
)

// Role classifies an admitted connection. It is fixed for the connection's
// lifetime.
type Role string

const (
	// RolePublisher may submit frames to its room.
	RolePublisher Role = "publisher"

	// RoleViewer receives frames broadcast to its room.
	RoleViewer Role = "viewer"
)

// Sentinel errors returned by Admit. Callers map them to HTTP statuses
// before the websocket upgrade.
var (
	// ErrNotFound means the request path is not a valid publish or
	// subscribe target.
	ErrNotFound = errors.New("gate: no such target")

	// ErrUnauthorized means a shared secret is configured and the supplied
	// key did not match it.
	ErrUnauthorized = errors.New("gate: invalid key")
)

// targetPattern matches the two admissible path shapes. The camera id is a
// single non-empty segment of word characters, dots, and dashes.
var targetPattern = regexp.MustCompile(`^/(pub|sub)/([A-Za-z0-9_.-]+)$`)

// Admission is the result of a successful admission decision.
type Admission struct {
	Role  Role
	CamID string
}

// Gate validates incoming connection requests before they are upgraded.
//
// A Gate performs no I/O and keeps no per-connection state; the room lookup
// happens in the relay after admission.
type Gate struct {
	secret string
}

// New creates a Gate. An empty secret disables the key check entirely —
// auth is all or nothing, there is no anonymous-read fallback.
func New(secret string) *Gate {
	return &Gate{secret: secret}
}

// Admit decides whether a connection request may be upgraded.
//
// path must match exactly "/pub/<id>" or "/sub/<id>"; anything else returns
// ErrNotFound. If a secret is configured, key must equal it exactly
// (case-sensitive) or Admit returns ErrUnauthorized. On success the returned
// Admission carries the role implied by the path prefix and the camera id.
func (g *Gate) Admit(path, key string) (Admission, error) {
	m := targetPattern.FindStringSubmatch(path)
	if m == nil {
		return Admission{}, ErrNotFound
	}

	if g.secret != "" && key != g.secret {
		return Admission{}, ErrUnauthorized
	}

	role := RoleViewer
	if m[1] == "pub" {
		role = RolePublisher
	}
	return Admission{Role: role, CamID: m[2]}, nil
}
