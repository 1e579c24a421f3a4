package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/camrelay/camrelay/internal/api"
	"github.com/camrelay/camrelay/internal/gate"
	"github.com/camrelay/camrelay/internal/relay"
)

func startServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	rl := relay.New(gate.New(secret), relay.Options{})
	srv := httptest.NewServer(api.New(rl))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestHealthz(t *testing.T) {
	srv := startServer(t, "")
	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if body != "ok" {
		t.Errorf("body: got %q, want ok", body)
	}
}

func TestRootPage(t *testing.T) {
	srv := startServer(t, "")
	resp, body := get(t, srv.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type: got %q", ct)
	}
	if !strings.Contains(body, "/pub/cam1") {
		t.Errorf("body: missing connect instructions: %q", body)
	}
}

func TestMetricsExposition(t *testing.T) {
	srv := startServer(t, "")
	resp, body := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "camrelay_connected_viewers") {
		t.Error("exposition: camrelay_connected_viewers not found")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	srv := startServer(t, "")
	for _, p := range []string{"/nope", "/pub", "/pub/cam1/extra", "/api/v1/rooms"} {
		resp, _ := get(t, srv.URL+p)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: got %d, want 404", p, resp.StatusCode)
		}
	}
}

func TestWebsocketThroughRouter(t *testing.T) {
	srv := startServer(t, "s3cret")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	// Wrong key is rejected with a plain 401 before upgrade.
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"/sub/cam1?key=nope", nil)
	if err == nil {
		t.Fatal("expected handshake failure with wrong key")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status: got %v, want 401", resp)
	}

	// Correct key upgrades; a publish reaches the viewer end to end.
	v, _, err := websocket.DefaultDialer.Dial(wsURL+"/sub/cam1?key=s3cret", nil)
	if err != nil {
		t.Fatalf("dial viewer: %v", err)
	}
	defer v.Close()

	pub, _, err := websocket.DefaultDialer.Dial(wsURL+"/pub/cam1?key=s3cret", nil)
	if err != nil {
		t.Fatalf("dial publisher: %v", err)
	}
	defer pub.Close()

	// Give the viewer registration a moment before publishing.
	time.Sleep(20 * time.Millisecond)
	if err := pub.WriteMessage(websocket.TextMessage, []byte(`{"frame":"f"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	v.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := v.ReadMessage()
	if err != nil {
		t.Fatalf("viewer read: %v", err)
	}
	if string(msg) != `{"frame":"f"}` {
		t.Errorf("viewer: got %s", msg)
	}
}
