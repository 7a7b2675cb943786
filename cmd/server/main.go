// Package main runs the ledger service: the operation executor, the
// read-only HTTP API with the WebSocket event feed, Prometheus metrics,
// and the background event archiver.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"revora-ledger/internal/api"
	"revora-ledger/internal/archive"
	"revora-ledger/internal/core"
	"revora-ledger/internal/domain"
	"revora-ledger/internal/observability"
	"revora-ledger/internal/storage"
	chstore "revora-ledger/internal/storage/clickhouse"
	"revora-ledger/internal/storage/memory"
	"revora-ledger/internal/storage/migrations"
	pgstore "revora-ledger/internal/storage/postgres"
	"revora-ledger/internal/substrate"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP API listen address")
	metricsAddr := flag.String("metrics-addr", envOr("METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables event archiving)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	operator := flag.String("operator", os.Getenv("OPERATOR_ADDRESS"), "Registry operator address (base58)")
	platformTreasury := flag.String("platform-treasury", os.Getenv("PLATFORM_TREASURY"), "Platform treasury address (base58)")
	archiveInterval := flag.Duration("archive-interval", 30*time.Second, "Event archiver pass interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	operatorAddr := domain.Address(*operator)
	if err := operatorAddr.Validate(); err != nil {
		logger.Fatalf("--operator: %v", err)
	}
	treasuryAddr := domain.Address(*platformTreasury)
	if err := treasuryAddr.Validate(); err != nil {
		logger.Fatalf("--platform-treasury: %v", err)
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, eventArchive, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Resume sequence numbering one past the durable log.
	latest, err := stores.Events.LatestSeq(ctx)
	if err != nil {
		logger.Fatalf("Failed to read event log position: %v", err)
	}
	startSeq := latest + 1
	logger.Printf("Starting at seq %d", startSeq)

	c := core.New(core.Config{
		Operator:         operatorAddr,
		PlatformTreasury: treasuryAddr,
	}, substrate.NewMemoryBank(), substrate.SystemClock{}, startSeq, stores, logger)

	hub := api.NewEventHub(log.New(os.Stdout, "[events] ", log.LstdFlags))
	c.SetPublisher(hub)
	defer hub.Close()

	apiServer := api.NewServer(c, stores.Events, hub, log.New(os.Stdout, "[api] ", log.LstdFlags))

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 3)

	httpServer := &http.Server{
		Addr:              *listenAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Printf("HTTP API listening on %s", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		mux.Handle("/metrics", observability.Handler())
		logger.Printf("Metrics listening on %s", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	if eventArchive != nil {
		archiver := archive.New(stores.Events, eventArchive, archive.Options{
			Interval: *archiveInterval,
			Logger:   log.New(os.Stdout, "[archive] ", log.LstdFlags),
		})
		go func() {
			if err := archiver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("archiver: %w", err)
			}
		}()
	}

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, shutting down...", sig)
	case err := <-errCh:
		logger.Printf("Component failed: %v", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores builds the persistence backends and runs migrations. The
// ClickHouse archive is optional; a nil archive disables the archiver.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (core.Stores, storage.EventArchive, func(), error) {
	if useMemory {
		stores := core.Stores{
			Tranches:      memory.NewTrancheStore(),
			Distributions: memory.NewDistributionStore(),
			Refunds:       memory.NewRefundStore(),
			Events:        memory.NewEventStore(),
		}
		return stores, nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return core.Stores{}, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return core.Stores{}, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := core.Stores{
		Tranches:      pgstore.NewTrancheStore(pool),
		Distributions: pgstore.NewDistributionStore(pool),
		Refunds:       pgstore.NewRefundStore(pool),
		Events:        pgstore.NewEventStore(pool),
	}

	if clickhouseDSN == "" {
		return stores, nil, pool.Close, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return core.Stores{}, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, chstore.NewEventArchiveStore(chConn), cleanup, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
