package config

import (
	"context"
	"os"
	"testing"
	"time"
)

// startWatch runs Watch against path and returns a channel of reloads.
func startWatch(t *testing.T, path string) <-chan *Config {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ch := make(chan *Config, 4)
	go func() {
		if err := Watch(ctx, path, func(c *Config) { ch <- c }); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	// Let the watcher register before the test rewrites the file.
	time.Sleep(100 * time.Millisecond)
	return ch
}

func rewrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	p := writeConfig(t, `relay:
  rooms:
    eviction_ttl: 1h
`)
	ch := startWatch(t, p)

	rewrite(t, p, `relay:
  rooms:
    eviction_ttl: 15m
`)

	select {
	case cfg := <-ch:
		if cfg.Relay.Rooms.EvictionTTL != 15*time.Minute {
			t.Errorf("eviction_ttl after reload: got %v, want 15m",
				cfg.Relay.Rooms.EvictionTTL)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watch: no reload observed")
	}
}

func TestWatch_InvalidReloadKeepsPrevious(t *testing.T) {
	p := writeConfig(t, `relay: {}
`)
	ch := startWatch(t, p)

	rewrite(t, p, "relay: [broken\n")

	select {
	case cfg := <-ch:
		t.Fatalf("Watch: unexpected reload of invalid config: %+v", cfg)
	case <-time.After(600 * time.Millisecond):
	}

	// The watcher stays alive: a subsequent valid save is reloaded.
	rewrite(t, p, `relay:
  backpressure:
    max_buffered_bytes: 1024
`)
	select {
	case cfg := <-ch:
		if cfg.Relay.Backpressure.MaxBufferedBytes != 1024 {
			t.Errorf("max_buffered_bytes: got %d, want 1024",
				cfg.Relay.Backpressure.MaxBufferedBytes)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watch: no reload after recovering from invalid config")
	}
}

func TestWatch_CoalescesWriteBursts(t *testing.T) {
	p := writeConfig(t, `relay: {}
`)
	ch := startWatch(t, p)

	// Several rapid writes, as an editor save would produce.
	for i := 0; i < 5; i++ {
		rewrite(t, p, `relay:
  rooms:
    eviction_ttl: 30m
`)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("Watch: no reload observed after burst")
	}

	// The burst settles into one reload, not five.
	select {
	case cfg := <-ch:
		t.Fatalf("Watch: burst produced extra reload: %+v", cfg)
	case <-time.After(600 * time.Millisecond):
	}
}
