package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/camrelay/camrelay/internal/api"
	"github.com/camrelay/camrelay/internal/config"
	"github.com/camrelay/camrelay/internal/gate"
	"github.com/camrelay/camrelay/internal/relay"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("relayd starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Relay.HTTPPort,
		"auth_mode", cfg.Relay.Auth.Mode,
		"heartbeat_interval", cfg.Relay.Heartbeat.Interval,
		"eviction_ttl", cfg.Relay.Rooms.EvictionTTL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rl := relay.New(gate.New(cfg.Relay.Auth.Secret()), relay.Options{
		HeartbeatInterval: cfg.Relay.Heartbeat.Interval,
		MaxBufferedBytes:  cfg.Relay.Backpressure.MaxBufferedBytes,
		RoomEvictionTTL:   cfg.Relay.Rooms.EvictionTTL,
	})

	// Heartbeat sweep and idle-room eviction.
	go rl.Run(ctx)
	go rl.Rooms().Run(ctx)

	// Hot reload: only the runtime-mutable settings are applied; port, auth,
	// and heartbeat interval need a restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(c *config.Config) {
			rl.SetMaxBufferedBytes(c.Relay.Backpressure.MaxBufferedBytes)
			rl.Rooms().SetTTL(c.Relay.Rooms.EvictionTTL)
		})
		if err != nil {
			slog.Error("config watch stopped", "err", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Relay.HTTPPort),
		Handler: api.New(rl),
	}
	go func() {
		slog.Info("relay listening", "port", cfg.Relay.HTTPPort,
			"auth", cfg.Relay.Auth.Mode == "key")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("relayd shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
