package pipeline

import (
	"context"
	"log/slog"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/infra/storage"
	"github.com/nixer89/vanity-search-backend/internal/metrics"
	"github.com/nixer89/vanity-search-backend/internal/settlement/validate"
)

// Result is the structured webhook acknowledgment. The wallet API only needs
// to know whether the event was consumed.
type Result struct {
	Success bool `json:"success"`
}

// walletFetcher re-fetches the authoritative payload detail.
type walletFetcher interface {
	GetPayload(ctx context.Context, appID, apiSecret, payloadID string) (*domain.SignedPayload, error)
}

// tenantLookup resolves webhook tenants by application id.
type tenantLookup interface {
	ByAppID(ctx context.Context, appID string) (*domain.Tenant, error)
}

// correlationClaimer atomically consumes correlation records. The claim is
// also the delete, which makes it the pipeline's only dedup.
type correlationClaimer interface {
	Claim(ctx context.Context, appID, payloadID string) (*domain.CorrelationRecord, error)
}

// settler is the vanity settlement workflow.
type settler interface {
	SettlePurchase(ctx context.Context, p *domain.SignedPayload, rec *domain.CorrelationRecord) error
	SettleActivation(ctx context.Context, p *domain.SignedPayload) error
}

// Pipeline processes webhook completion events from the wallet API.
type Pipeline struct {
	wallet       walletFetcher
	tenants      tenantLookup
	correlations correlationClaimer
	stats        storage.StatisticRepository
	history      storage.HistoryRepository
	vanity       settler
}

// NewPipeline creates a webhook settlement pipeline.
func NewPipeline(
	walletClient walletFetcher,
	tenants tenantLookup,
	correlations correlationClaimer,
	stats storage.StatisticRepository,
	history storage.HistoryRepository,
	vanityWorkflow settler,
) *Pipeline {
	return &Pipeline{
		wallet:       walletClient,
		tenants:      tenants,
		correlations: correlations,
		stats:        stats,
		history:      history,
		vanity:       vanityWorkflow,
	}
}

// Process settles one webhook event. The webhook body is only trusted for its
// identifiers; the full payload is re-fetched from the wallet API. A missing
// correlation record means a duplicate or unknown event and is a no-op.
func (pl *Pipeline) Process(ctx context.Context, event *domain.WebhookEvent) Result {
	appID := event.Meta.ApplicationID
	payloadID := event.Meta.PayloadID

	t, err := pl.tenants.ByAppID(ctx, appID)
	if err != nil {
		slog.Warn("webhook for unknown application", "app_id", appID, "error", err)
		metrics.WebhooksProcessed.WithLabelValues("unknown_app").Inc()
		return Result{Success: false}
	}

	p, err := pl.wallet.GetPayload(ctx, t.AppID, t.APISecret, payloadID)
	if err != nil {
		slog.Error("payload fetch failed", "payload_id", payloadID, "error", err)
		metrics.WebhooksProcessed.WithLabelValues("fetch_failed").Inc()
		return Result{Success: false}
	}

	rec, err := pl.correlations.Claim(ctx, appID, payloadID)
	if err != nil {
		slog.Error("correlation claim failed", "payload_id", payloadID, "error", err)
		metrics.WebhooksProcessed.WithLabelValues("claim_failed").Inc()
		return Result{Success: false}
	}
	if rec == nil {
		// Duplicate delivery, or a payload this process never submitted.
		metrics.WebhooksProcessed.WithLabelValues("no_correlation").Inc()
		return Result{Success: false}
	}

	pl.recordStatistic(ctx, p, rec)

	ok := pl.dispatchVanity(ctx, p, rec)

	pl.recordHistory(ctx, p, rec, event)

	if ok {
		metrics.WebhooksProcessed.WithLabelValues("settled").Inc()
	} else {
		metrics.WebhooksProcessed.WithLabelValues("settle_failed").Inc()
	}
	return Result{Success: ok}
}

// recordStatistic persists a statistics entry for signed payloads. Failures
// are logged only; statistics never block settlement.
func (pl *Pipeline) recordStatistic(
	ctx context.Context,
	p *domain.SignedPayload,
	rec *domain.CorrelationRecord,
) {
	if !p.Meta.Signed {
		return
	}
	if p.Response == nil {
		return
	}
	dispatched := p.Response.DispatchedResult == domain.ResultSuccess
	if !dispatched && p.TxType() != domain.TxTypeSignIn {
		return
	}

	err := pl.stats.Save(ctx, &domain.Statistic{
		Origin:        rec.Origin,
		ApplicationID: rec.ApplicationID,
		TxType:        p.TxType(),
	})
	if err != nil {
		slog.Warn("statistics save failed", "payload_id", p.Meta.UUID, "error", err)
	}
}

// dispatchVanity routes a validated payment with a vanity marker to the
// matching settlement branch. Returns false only on a settlement failure.
func (pl *Pipeline) dispatchVanity(
	ctx context.Context,
	p *domain.SignedPayload,
	rec *domain.CorrelationRecord,
) bool {
	if p.TxType() != domain.TxTypePayment {
		return true
	}
	blob := p.Blob()
	if blob == nil {
		return true
	}

	intent, err := blob.Intent()
	if err != nil {
		slog.Warn("payment with ambiguous vanity marker",
			"payload_id", p.Meta.UUID, "error", err)
		return true
	}
	if intent == nil {
		return true
	}
	if !validate.SignedPayment(p) {
		slog.Warn("vanity payment failed validation", "payload_id", p.Meta.UUID)
		return false
	}

	switch intent.Kind {
	case domain.IntentPurchase:
		if err := pl.vanity.SettlePurchase(ctx, p, rec); err != nil {
			slog.Error("purchase settlement failed", "payload_id", p.Meta.UUID, "error", err)
			return false
		}
	case domain.IntentActivation:
		if err := pl.vanity.SettleActivation(ctx, p); err != nil {
			slog.Error("activation settlement failed", "payload_id", p.Meta.UUID, "error", err)
			return false
		}
	}
	return true
}

// recordHistory persists the payload-history entry that later user-token and
// account lookups are served from. A single row carries both keys.
func (pl *Pipeline) recordHistory(
	ctx context.Context,
	p *domain.SignedPayload,
	rec *domain.CorrelationRecord,
	event *domain.WebhookEvent,
) {
	token := rec.UserToken
	if token == "" {
		token = event.UserToken.Token
	}
	if token == "" {
		token = p.Application.IssuedUserToken
	}

	var account string
	if p.Response != nil {
		account = p.Response.Account
	}
	if token == "" && account == "" {
		return
	}

	err := pl.history.Save(ctx, &domain.HistoryEntry{
		Origin:        rec.Origin,
		Referer:       rec.Referer,
		ApplicationID: rec.ApplicationID,
		UserToken:     token,
		Account:       account,
		PayloadID:     p.Meta.UUID,
		TxType:        p.TxType(),
	})
	if err != nil {
		slog.Warn("history save failed", "payload_id", p.Meta.UUID, "error", err)
	}
}
