// Package gate decides whether an incoming connection request is admitted
// into the relay, and as what.
//
// Admit(path, key) checks the path shape ("/pub/<id>" or "/sub/<id>", id
// restricted to [A-Za-z0-9_.-]+) and, when a shared secret is configured,
// compares the "key" query value against it. The result is either an
// Admission carrying the role and camera id, or one of the sentinel errors
// ErrNotFound / ErrUnauthorized, which the HTTP layer surfaces as 404 / 401
// before any upgrade takes place.
//
// When no secret is configured the key check is skipped entirely (useful for
// local development with auth disabled).
package gate
