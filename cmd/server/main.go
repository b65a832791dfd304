// Package main runs the minting campaign service: the HTTP API, the
// campaign account watcher and the soft-delete purge scheduler.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"solana-mint-campaign/internal/allowlist"
	"solana-mint-campaign/internal/api"
	"solana-mint-campaign/internal/campaign"
	"solana-mint-campaign/internal/eligibility"
	"solana-mint-campaign/internal/items"
	"solana-mint-campaign/internal/lifecycle"
	"solana-mint-campaign/internal/mint"
	"solana-mint-campaign/internal/notify"
	"solana-mint-campaign/internal/solana"
	"solana-mint-campaign/internal/storage"
	chstore "solana-mint-campaign/internal/storage/clickhouse"
	"solana-mint-campaign/internal/storage/memory"
	"solana-mint-campaign/internal/storage/migrations"
	pgstore "solana-mint-campaign/internal/storage/postgres"
	"solana-mint-campaign/internal/watch"
)

// Server holds the wired service components.
type Server struct {
	listenAddr    string
	purgeInterval time.Duration
	purgeAge      time.Duration

	stores  *allStores
	router  http.Handler
	watcher *watch.Watcher
	logger  *log.Logger

	mu           sync.Mutex
	startedAt    time.Time
	lastPurgeRun time.Time
	purgeRuns    int
	purgedTotal  int
}

// allStores holds every storage implementation.
type allStores struct {
	campaignStore  storage.CampaignStore
	groupStore     storage.GroupStore
	allowListStore storage.AllowListStore
	receiptStore   storage.ReceiptStore
	freezeStore    storage.FreezeStateStore
	activityStore  storage.MintActivityStore
}

func main() {
	// Load .env if present; system env vars win.
	_ = godotenv.Load()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	programID := flag.String("program-id", os.Getenv("CAMPAIGN_PROGRAM_ID"), "Campaign program address")
	authoritySecret := flag.String("authority-key", os.Getenv("AUTHORITY_SECRET_KEY"), "Authority secret key, base58")
	webhookURL := flag.String("webhook-url", os.Getenv("CAMPAIGN_WEBHOOK_URL"), "Campaign creation webhook URL (optional)")
	listenAddr := flag.String("listen-addr", ":8080", "HTTP listen address")
	purgeInterval := flag.Duration("purge-interval", 1*time.Hour, "Soft-delete purge interval")
	purgeAge := flag.Duration("purge-age", 7*24*time.Hour, "Age after which soft-deleted campaigns are purged")
	verbose := flag.Bool("verbose", false, "Verbose component logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *programID == "" {
		logger.Fatal("--program-id is required")
	}
	if *authoritySecret == "" {
		logger.Fatal("--authority-key is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	authority, err := solana.KeypairFromBase58(*authoritySecret)
	if err != nil {
		logger.Fatalf("Invalid authority key: %v", err)
	}
	logger.Printf("Authority: %s", authority.PublicKey())

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	ledger := solana.NewHTTPClient(*rpcEndpoint)

	var watcher *watch.Watcher
	if *wsEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Fatalf("Failed to connect WebSocket: %v", err)
		}
		defer ws.Close()
		watcher = watch.NewWatcher(ws, stores.campaignStore, *verbose)
	} else {
		logger.Println("No --ws-endpoint, campaign account watching disabled")
	}

	var notifier notify.Notifier = notify.Noop{}
	if *webhookURL != "" {
		notifier = notify.NewWebhook(*webhookURL, logger)
	}

	services, err := wireServices(ledger, stores, authority, *programID, notifier, watcher, *verbose)
	if err != nil {
		logger.Fatalf("Failed to wire services: %v", err)
	}

	server := &Server{
		listenAddr:    *listenAddr,
		purgeInterval: *purgeInterval,
		purgeAge:      *purgeAge,
		stores:        stores,
		watcher:       watcher,
		logger:        logger,
		startedAt:     time.Now(),
	}
	server.router = server.buildHandler(services)

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Second signal, or a stuck shutdown, forces exit.
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// wireServices builds the operation services over the shared stores.
func wireServices(ledger solana.LedgerClient, stores *allStores, authority *solana.Keypair, programID string, notifier notify.Notifier, watcher *watch.Watcher, verbose bool) (api.Services, error) {
	manager := allowlist.NewManager(stores.groupStore, stores.allowListStore)
	engine := eligibility.NewEngine(stores.groupStore, stores.receiptStore, manager)

	builder, err := campaign.NewBuilder(campaign.Options{
		Ledger:     ledger,
		Campaigns:  stores.campaignStore,
		Groups:     stores.groupStore,
		AllowLists: manager,
		Authority:  authority,
		ProgramID:  programID,
		Notifier:   notifier,
		Verbose:    verbose,
	})
	if err != nil {
		return api.Services{}, fmt.Errorf("builder: %w", err)
	}

	loader, err := items.NewLoader(items.Options{
		Ledger:    ledger,
		Campaigns: stores.campaignStore,
		Authority: authority,
		ProgramID: programID,
		Verbose:   verbose,
	})
	if err != nil {
		return api.Services{}, fmt.Errorf("loader: %w", err)
	}

	minter, err := mint.NewMinter(mint.Options{
		Ledger:       ledger,
		Campaigns:    stores.campaignStore,
		Receipts:     stores.receiptStore,
		FreezeStates: stores.freezeStore,
		Activity:     stores.activityStore,
		Eligibility:  engine,
		ProgramID:    programID,
		Verbose:      verbose,
	})
	if err != nil {
		return api.Services{}, fmt.Errorf("minter: %w", err)
	}

	controller, err := lifecycle.NewController(lifecycle.Options{
		Ledger:       ledger,
		Campaigns:    stores.campaignStore,
		FreezeStates: stores.freezeStore,
		Authority:    authority,
		ProgramID:    programID,
		Verbose:      verbose,
	})
	if err != nil {
		return api.Services{}, fmt.Errorf("lifecycle: %w", err)
	}

	return api.Services{
		Builder:    builder,
		Loader:     loader,
		Minter:     minter,
		Lifecycle:  controller,
		Engine:     engine,
		AllowLists: manager,
		Campaigns:  stores.campaignStore,
		Receipts:   stores.receiptStore,
		Activity:   stores.activityStore,
		Watcher:    watcher,
	}, nil
}

// createStores creates all required stores and runs migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		groups := memory.NewGroupStore()
		stores := &allStores{
			campaignStore:  memory.NewCampaignStore(groups),
			groupStore:     groups,
			allowListStore: memory.NewAllowListStore(),
			receiptStore:   memory.NewReceiptStore(),
			freezeStore:    memory.NewFreezeStateStore(),
			activityStore:  memory.NewMintActivityStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	groups := pgstore.NewGroupStore(pool)
	stores := &allStores{
		campaignStore:  pgstore.NewCampaignStore(pool, groups),
		groupStore:     groups,
		allowListStore: pgstore.NewAllowListStore(pool),
		receiptStore:   pgstore.NewReceiptStore(pool),
		freezeStore:    pgstore.NewFreezeStateStore(pool),
		activityStore:  chstore.NewMintActivityStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// buildHandler mounts the API router plus the status endpoint.
func (s *Server) buildHandler(services api.Services) http.Handler {
	r := api.NewRouter(services)
	r.GET("/status", gin.WrapF(s.handleStatus))
	return r
}

// Run serves HTTP and the purge scheduler until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Listening on %s", s.listenAddr)

	httpServer := &http.Server{
		Addr:    s.listenAddr,
		Handler: s.router,
	}

	errCh := make(chan error, 2)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go s.runPurgeScheduler(ctx)

	select {
	case <-ctx.Done():
		if s.watcher != nil {
			s.watcher.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runPurgeScheduler permanently removes campaigns soft-deleted longer ago
// than the configured age.
func (s *Server) runPurgeScheduler(ctx context.Context) {
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			threshold := time.Now().Add(-s.purgeAge).UnixMilli()
			purged, err := s.stores.campaignStore.PurgeExpired(ctx, threshold)
			if err != nil {
				s.logger.Printf("Purge failed: %v", err)
				continue
			}

			s.mu.Lock()
			s.lastPurgeRun = time.Now()
			s.purgeRuns++
			s.purgedTotal += purged
			s.mu.Unlock()

			if purged > 0 {
				s.logger.Printf("Purged %d expired campaigns", purged)
			}
		}
	}
}

// StatusResponse is the JSON body for /status.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	StartedAt    time.Time `json:"started_at"`
	LastPurgeRun time.Time `json:"last_purge_run,omitempty"`
	PurgeRuns    int       `json:"purge_runs"`
	PurgedTotal  int       `json:"purged_total"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.startedAt).String(),
		StartedAt:    s.startedAt,
		LastPurgeRun: s.lastPurgeRun,
		PurgeRuns:    s.purgeRuns,
		PurgedTotal:  s.purgedTotal,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
