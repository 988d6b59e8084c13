// Package main runs the pool accounting daemon:
// - HTTP API for pool lifecycle, deposits and withdrawals
// - WebSocket feed of pool events
// - Prometheus metrics
// Pool snapshots and purchases persist to PostgreSQL, events to ClickHouse.
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

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/ledger"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/ledger/stub"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/observability"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/pool"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/registry"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/service"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage"
	chstore "github.com/CarbonSustain/OffsetZap-sub000/internal/storage/clickhouse"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage/memory"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage/migrations"
	pgstore "github.com/CarbonSustain/OffsetZap-sub000/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	poolStore     storage.PoolStore
	purchaseStore storage.PurchaseStore
	eventStore    storage.PoolEventStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("POOLD_LISTEN_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	mintPolicy := flag.String("mint-policy", envOr("POOL_MINT_POLICY", string(domain.MintPolicyFlatUnit)), "Mint policy: FLAT_UNIT or PROPORTIONAL")
	validateIdentities := flag.Bool("validate-identities", false, "Require base58 ed25519 account identities")
	migrate := flag.Bool("migrate", true, "Apply embedded schema migrations at startup")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[poold] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	policy := domain.MintPolicy(strings.ToUpper(*mintPolicy))
	if !policy.Valid() {
		logger.Fatalf("Unknown mint policy %q", *mintPolicy)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *migrate)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	cfg := pool.DefaultConfig()
	cfg.MintPolicy = policy

	reg := registry.New(cfg, func(_, _ string) ledger.TokenLedger {
		return stub.NewLedger()
	})

	svc := service.New(service.Config{
		Registry:           reg,
		PoolStore:          stores.poolStore,
		PurchaseStore:      stores.purchaseStore,
		EventStore:         stores.eventStore,
		Metrics:            observability.NewMetrics(""),
		Logger:             logger,
		ValidateIdentities: *validateIdentities,
	})

	if err := svc.LoadPools(ctx); err != nil {
		logger.Fatalf("Failed to restore pools: %v", err)
	}

	srv := &http.Server{
		Addr:         *listenAddr,
		Handler:      svc.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Listening on %s (mint policy %s)", *listenAddr, policy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, shutting down...", sig)
	case err := <-errCh:
		logger.Printf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Shutdown error: %v", err)
	}
	svc.Hub().Close()
	cancel()

	logger.Println("Shutdown complete")
}

func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, migrate bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			poolStore:     memory.NewPoolStore(),
			purchaseStore: memory.NewPurchaseStore(),
			eventStore:    memory.NewPoolEventStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pgPool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// ClickHouse
	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
			chConn.Close()
			pgPool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
			chConn.Close()
			pgPool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
	}

	stores := &allStores{
		// PostgreSQL stores (authoritative pool state + purchases)
		poolStore:     pgstore.NewPoolStore(pgPool),
		purchaseStore: pgstore.NewPurchaseStore(pgPool),

		// ClickHouse store (event analytics)
		eventStore: chstore.NewPoolEventStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pgPool.Close()
	}

	return stores, cleanup, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads .env from the working directory without overriding
// variables already set in the environment.
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

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
