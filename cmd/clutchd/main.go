package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"clutch/internal/adapter/ledger"
	"clutch/internal/adapter/store"
	"clutch/internal/domain"
	"clutch/internal/infra/config"
	"clutch/internal/infra/logger"
	"clutch/internal/infra/tracer"
	"clutch/internal/usecase"
)

func main() {
	configPath := flag.String("config", "clutch.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("setup tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	var client domain.TransferClient = ledger.NewClient(cfg.Ledger)
	client = ledger.NewBreakerClient(client, cfg.Ledger.Breaker, logger.For(log, "ledger"))

	identity := domain.Identity{Address: cfg.Orchestrator.Address}
	tracker := usecase.NewTracker(db, logger.For(log, "tracker"))
	funding := usecase.NewFundingProtocol(client, identity, db, logger.For(log, "funding"))

	idle, err := tracker.ListIdle(ctx)
	if err != nil {
		return err
	}
	log.Info("clutchd started",
		"orchestrator_address", identity.Address,
		"store", cfg.Store.Path,
		"idle_agents", len(idle),
	)

	// Startup sanity check on the ledger connection. Non-fatal: the
	// funding layer degrades to reported failures while the ledger is
	// down.
	if balance, err := funding.GetBalance(ctx, identity.Address); err != nil {
		log.Warn("ledger balance check failed", "error", err)
	} else {
		log.Info("ledger reachable", "balance", balance)
	}

	<-ctx.Done()
	log.Info("clutchd stopping")
	return nil
}
