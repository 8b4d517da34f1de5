package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/nixer89/vanity-search-backend/internal/api"
	"github.com/nixer89/vanity-search-backend/internal/core/config"
	"github.com/nixer89/vanity-search-backend/internal/core/tenant"
	"github.com/nixer89/vanity-search-backend/internal/core/worker"
	"github.com/nixer89/vanity-search-backend/internal/infra/ledger"
	"github.com/nixer89/vanity-search-backend/internal/infra/oracle"
	redisclient "github.com/nixer89/vanity-search-backend/internal/infra/redis"
	"github.com/nixer89/vanity-search-backend/internal/infra/storage/postgres"
	"github.com/nixer89/vanity-search-backend/internal/infra/vanitypool"
	"github.com/nixer89/vanity-search-backend/internal/infra/wallet"
	"github.com/nixer89/vanity-search-backend/internal/payload"
	"github.com/nixer89/vanity-search-backend/internal/settlement/pipeline"
	"github.com/nixer89/vanity-search-backend/internal/settlement/vanity"
)

// App wires the full backend: storage, external clients, submission
// orchestration, webhook settlement and the HTTP surface.
type App struct {
	cfg *config.AppConfig

	db          *postgres.DB
	redisClient *redisclient.Client
	registry    *tenant.Registry
	server      *api.Server
	sweeper     *worker.Sweeper

	cancel context.CancelFunc
}

// NewApp creates an App with all dependencies initialized. Startup fails when
// required credentials are missing or a backing store is unreachable.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	if cfg.Oracle.Token == "" {
		return nil, errors.New("oracle token is required")
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	if err := goose.Up(db.DB.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}

	redisClient, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	correlations := redisclient.NewCorrelationStore(redisClient)

	tenantRepo := postgres.NewTenantRepo(db)
	statRepo := postgres.NewStatisticRepo(db)
	purchaseRepo := postgres.NewPurchaseRepo(db)
	historyRepo := postgres.NewHistoryRepo(db)

	registry := tenant.NewRegistry(tenantRepo, 5*time.Minute)

	walletClient := wallet.NewClient(cfg.Wallet)
	oracleClient := oracle.NewClient(cfg.Oracle)
	ledgerClient := ledger.NewClient(cfg.Ledger)
	poolClient := vanitypool.NewClient(cfg.VanityPool)

	// The wallet API must be reachable with real tenant credentials before
	// any payload can be accepted.
	if err := pingWallet(ctx, walletClient, registry); err != nil {
		return nil, err
	}

	orchestrator := payload.NewOrchestrator(
		registry,
		walletClient,
		oracleClient,
		ledgerClient,
		correlations,
		historyRepo,
		cfg.Settlement.DonationInstruction,
		cfg.Settlement.ActivationAmount,
	)

	workflow := vanity.NewWorkflow(
		oracleClient,
		ledgerClient,
		poolClient,
		purchaseRepo,
		cfg.Settlement.StrictLivenet,
		cfg.Settlement.RekeyConfirmDelay,
	)

	webhookPipeline := pipeline.NewPipeline(
		walletClient,
		registry,
		correlations,
		statRepo,
		historyRepo,
		workflow,
	)

	server := api.NewServer(
		cfg.Server.Port,
		registry,
		orchestrator,
		webhookPipeline,
		walletClient,
		oracleClient,
		poolClient,
		purchaseRepo,
		statRepo,
		cfg.Settlement,
		map[string]api.HealthChecker{
			"database": db,
			"redis":    redisClient,
		},
	)

	return &App{
		cfg:         cfg,
		db:          db,
		redisClient: redisClient,
		registry:    registry,
		server:      server,
		sweeper:     worker.NewSweeper(cfg.Sweep, correlations),
	}, nil
}

// pingWallet verifies wallet API reachability using the first configured
// tenant's credentials. A tenant-less deployment only logs a warning.
func pingWallet(ctx context.Context, client *wallet.Client, registry *tenant.Registry) error {
	tenants, err := registry.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tenants: %w", err)
	}
	if len(tenants) == 0 {
		slog.Warn("no tenants configured, skipping wallet API check")
		return nil
	}
	if err := client.Ping(ctx, tenants[0].AppID, tenants[0].APISecret); err != nil {
		return fmt.Errorf("wallet API unreachable: %w", err)
	}
	return nil
}

// Start starts the background workers and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.db.StartMetricsCollector(ctx)
	go a.sweeper.Start(ctx)

	go func() {
		slog.Info("HTTP server listening", "port", a.cfg.Server.Port)
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
		}
	}()

	return nil
}

// Stop shuts everything down gracefully.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	if err := a.server.Stop(ctx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if err := a.redisClient.Close(); err != nil {
		slog.Error("redis close failed", "error", err)
	}
	if err := a.db.Close(); err != nil {
		slog.Error("database close failed", "error", err)
	}
	return nil
}
