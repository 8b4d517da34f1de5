package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nixer89/vanity-search-backend/internal/core/config"
	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/infra/storage"
	"github.com/nixer89/vanity-search-backend/internal/settlement/pipeline"
)

// submitter drives outbound payload submission.
type submitter interface {
	Submit(ctx context.Context, draft *domain.PayloadDraft, origin, referer string, opts *domain.SubmitOptions) (*domain.SubmitResponse, error)
}

// webhookProcessor settles inbound webhook events.
type webhookProcessor interface {
	Process(ctx context.Context, event *domain.WebhookEvent) pipeline.Result
}

// originRegistry resolves request origins to tenants.
type originRegistry interface {
	ResolveOrigin(ctx context.Context, origin string) (*domain.Tenant, error)
	OriginAllowed(ctx context.Context, origin string) bool
}

// walletProxy is the slice of the wallet client the pass-through endpoints
// use.
type walletProxy interface {
	GetPayload(ctx context.Context, appID, apiSecret, payloadID string) (*domain.SignedPayload, error)
	GetPayloadRaw(ctx context.Context, appID, apiSecret, payloadID string) (json.RawMessage, error)
	DeletePayload(ctx context.Context, appID, apiSecret, payloadID string) (json.RawMessage, error)
	GetAppOTT(ctx context.Context, appID, apiSecret, token string) (json.RawMessage, error)
	SendEvent(ctx context.Context, appID, apiSecret string, body json.RawMessage) (json.RawMessage, error)
	SendPush(ctx context.Context, appID, apiSecret string, body json.RawMessage) (json.RawMessage, error)
}

// txValidator checks transactions against the ledger oracle.
type txValidator interface {
	ValidateTransaction(ctx context.Context, txid string) domain.TransactionValidation
}

// poolSearcher searches the vanity address pool.
type poolSearcher interface {
	Search(ctx context.Context, word string) (*domain.AddressResult, error)
}

// HealthChecker reports the health of one dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server exposes the public HTTP surface.
type Server struct {
	registry     originRegistry
	orchestrator submitter
	pipeline     webhookProcessor
	wallet       walletProxy
	oracle       txValidator
	pool         poolSearcher
	purchases    storage.PurchaseRepository
	stats        storage.StatisticRepository
	settle       config.SettlementConfig
	health       map[string]HealthChecker

	server *http.Server
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(
	port int,
	registry originRegistry,
	orchestrator submitter,
	webhookPipeline webhookProcessor,
	walletClient walletProxy,
	oracleClient txValidator,
	pool poolSearcher,
	purchases storage.PurchaseRepository,
	stats storage.StatisticRepository,
	settle config.SettlementConfig,
	health map[string]HealthChecker,
) *Server {
	mux := http.NewServeMux()
	s := &Server{
		registry:     registry,
		orchestrator: orchestrator,
		pipeline:     webhookPipeline,
		wallet:       walletClient,
		oracle:       oracleClient,
		pool:         pool,
		purchases:    purchases,
		stats:        stats,
		settle:       settle,
		health:       health,
	}

	mux.HandleFunc("POST /api/v1/platform/payload", s.handleSubmitPayload)
	mux.HandleFunc("GET /api/v1/platform/payload/{id}", s.handleGetPayload)
	mux.HandleFunc("DELETE /api/v1/platform/payload/{id}", s.handleDeletePayload)
	mux.HandleFunc("GET /api/v1/platform/xapp/ott/{token}", s.handleGetOTT)
	mux.HandleFunc("POST /api/v1/platform/xapp/event", s.handleSendEvent)
	mux.HandleFunc("POST /api/v1/platform/xapp/push", s.handleSendPush)

	mux.HandleFunc("GET /api/v1/check/payment/{id}", s.handleCheckPayment)
	mux.HandleFunc("GET /api/v1/check/signin/{id}", s.handleCheckSignIn)
	mux.HandleFunc("GET /api/v1/xrpl/validatetx/{id}", s.handleValidateTx)

	mux.HandleFunc("GET /api/v1/vanity/search/{word}", s.handleVanitySearch)
	mux.HandleFunc("GET /api/v1/vanity/purchased/{account}", s.handleVanityPurchased)

	mux.HandleFunc("GET /api/v1/statistics/transactions", s.handleStatistics)
	mux.HandleFunc("GET /api/v1/properties/amounts", s.handleProperties)

	mux.HandleFunc("POST /api/v1/webhook", s.handleWebhook)
	mux.HandleFunc("POST /api/v1/webhook/{rest...}", s.handleWebhook)

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.withOriginPolicy(mux),
	}
	return s
}

// Handler returns the full stack, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	detail := make(map[string]string, len(s.health))

	for name, hc := range s.health {
		if err := hc.Health(r.Context()); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			detail[name] = err.Error()
		} else {
			detail[name] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{"status": status, "checks": detail})
}
