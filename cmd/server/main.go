package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/config"
	"github.com/fenggwsx/dmrelay/internal/logging"
	"github.com/fenggwsx/dmrelay/internal/query"
	"github.com/fenggwsx/dmrelay/internal/relay"
	"github.com/fenggwsx/dmrelay/internal/server"
	"github.com/fenggwsx/dmrelay/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("dmrelay: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	state, err := chat.NewStateFromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	logger.Info("state restored", "backend", cfg.Store.Backend, "path", cfg.Store.Path, "rooms", len(snap.Rooms))

	policy, err := relay.ParseLeavePolicy(cfg.LeavePolicy)
	if err != nil {
		return err
	}
	manager := relay.NewManager(logger, state, store, policy)
	go manager.RunFlusher(ctx, cfg.FlushInterval)

	app := server.NewApp(cfg, logger, manager, query.NewService(state))
	runErr := app.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := manager.Close(closeCtx); err != nil {
		logger.Error("final flush failed", "err", err)
		if runErr == nil {
			runErr = err
		}
	}
	logger.Info("server stopped")
	return runErr
}
