// roostd is the coordination daemon: it hosts the websocket hub agents
// connect to, the in-memory coordination engines, and the read-only HTTP
// API, with Redis as the durable board and event broadcast channel.
//
// Bootstrap comes from environment variables:
//
//	ROOST_INSTANCE_NAME  instance namespace for all Redis keys (required)
//	REDIS_URL            Redis connection URL (required)
//	ROOST_CONFIG         path to roost.yml (optional, defaults apply)
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/roost-dev/roost/internal/config"
	"github.com/roost-dev/roost/internal/delegation"
	"github.com/roost-dev/roost/internal/dispatch"
	"github.com/roost-dev/roost/internal/hub"
	"github.com/roost-dev/roost/internal/instance"
	"github.com/roost-dev/roost/internal/oplog"
	"github.com/roost-dev/roost/internal/presence"
	"github.com/roost-dev/roost/internal/skillreg"
	"github.com/roost-dev/roost/pkg/board"
)

func main() {
	instanceName := os.Getenv("ROOST_INSTANCE_NAME")
	redisURL := os.Getenv("REDIS_URL")

	if instanceName == "" || redisURL == "" {
		fmt.Fprintf(os.Stderr, "Error: ROOST_INSTANCE_NAME and REDIS_URL must be set\n")
		os.Exit(1)
	}
	if err := instance.ValidateName(instanceName); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid REDIS_URL: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	if path := os.Getenv("ROOST_CONFIG"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	store, err := board.NewClient(redisOpts, instanceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create board client: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	store.SetEventRetention(cfg.Events.Retention)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Redis not accessible: %v\n", err)
		os.Exit(1)
	}

	registry := presence.NewRegistry()
	ops := oplog.NewEngine(cfg.Oplog.Retention, cfg.CursorTTL())
	tasks := delegation.NewEngine()
	skills := skillreg.NewRegistry()

	dispatcher := dispatch.New(registry, ops, tasks, skills, store)
	h := hub.NewHub(dispatcher)
	server := hub.NewServer(cfg.ListenAddr(), h, dispatcher, store, cfg.Server.Debug)

	sweeper := presence.NewSweeper(registry, cfg.SweepInterval(), cfg.StaleTimeout())
	go sweeper.Run(ctx)

	// Shut down cleanly on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[INFO] Received %v, shutting down", sig)
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			log.Printf("[WARN] HTTP shutdown error: %v", err)
		}
	}()

	log.Printf("[INFO] roostd starting for instance '%s' on %s", instanceName, cfg.ListenAddr())
	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Printf("[INFO] roostd stopped")
}
