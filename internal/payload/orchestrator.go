package payload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/metrics"
)

// ErrOracleUnavailable is returned when a payment draft cannot be submitted
// because the ledger oracle used for later validation is unreachable.
var ErrOracleUnavailable = errors.New("ledger oracle unavailable")

// walletAPI is the slice of the wallet client the orchestrator depends on.
type walletAPI interface {
	CreatePayload(ctx context.Context, appID, apiSecret string, draft *domain.PayloadDraft) (*domain.SubmitResponse, error)
	GetPayload(ctx context.Context, appID, apiSecret, payloadID string) (*domain.SignedPayload, error)
}

// oracleProbe is the oracle liveness check.
type oracleProbe interface {
	Ping(ctx context.Context) error
}

// rateSource resolves the reference-currency conversion rate.
type rateSource interface {
	TrustlineLimit(ctx context.Context) (float64, error)
}

// tenantResolver maps request origins to tenants.
type tenantResolver interface {
	ResolveOrigin(ctx context.Context, origin string) (*domain.Tenant, error)
}

// correlationPutter persists correlation records.
type correlationPutter interface {
	Put(ctx context.Context, rec *domain.CorrelationRecord) error
}

// historyIndex resolves previously issued user tokens.
type historyIndex interface {
	TokenForAccount(ctx context.Context, appID, account string) (string, error)
	PayloadIDsByAccountAndType(ctx context.Context, appID, account, txType string) ([]string, error)
}

// Orchestrator drives payload submission: oracle gate, tenant resolution,
// user-token fallback, destination injection, wallet submission and the
// correlation record that later links the webhook back to this request.
type Orchestrator struct {
	registry     tenantResolver
	wallet       walletAPI
	oracle       oracleProbe
	rates        rateSource
	correlations correlationPutter
	history      historyIndex

	donationInstruction string
	activationAmount    string
}

// NewOrchestrator creates a payload orchestrator.
func NewOrchestrator(
	registry tenantResolver,
	walletClient walletAPI,
	oracleClient oracleProbe,
	rates rateSource,
	correlations correlationPutter,
	history historyIndex,
	donationInstruction, activationAmount string,
) *Orchestrator {
	return &Orchestrator{
		registry:            registry,
		wallet:              walletClient,
		oracle:              oracleClient,
		rates:               rates,
		correlations:        correlations,
		history:             history,
		donationInstruction: donationInstruction,
		activationAmount:    activationAmount,
	}
}

// Submit runs the full submission flow. An unresolvable origin yields the
// placeholder response rather than an error, because frontends depend on a
// structured answer.
func (o *Orchestrator) Submit(
	ctx context.Context,
	draft *domain.PayloadDraft,
	origin, referer string,
	opts *domain.SubmitOptions,
) (*domain.SubmitResponse, error) {
	if opts == nil {
		opts = &domain.SubmitOptions{}
	}

	// Payments are later validated against the ledger oracle. Accepting one
	// while the oracle is down would make it unverifiable, so refuse up
	// front. Donations are never validated and skip the gate.
	if draft.TxJSON.IsPayment() && !o.isDonation(draft) {
		if err := o.oracle.Ping(ctx); err != nil {
			slog.Error("oracle liveness probe failed", "error", err)
			return nil, ErrOracleUnavailable
		}
	}

	t, err := o.registry.ResolveOrigin(ctx, origin)
	if err != nil {
		slog.Warn("no tenant for origin", "origin", origin, "error", err)
		return domain.PlaceholderResponse(), nil
	}

	if draft.UserToken == "" && opts.XRPLAccount != "" {
		if token := o.resolveUserToken(ctx, t, opts.XRPLAccount, draft.TxJSON.TransactionType()); token != "" {
			draft.UserToken = token
		}
	}

	if err := o.injectDestination(ctx, draft, t, origin, referer); err != nil {
		return nil, fmt.Errorf("prepare payload: %w", err)
	}

	res, err := o.wallet.CreatePayload(ctx, t.AppID, t.APISecret, draft)
	if err != nil {
		return nil, fmt.Errorf("submit payload: %w", err)
	}
	metrics.PayloadsSubmitted.WithLabelValues(draft.TxJSON.TransactionType()).Inc()

	// The correlation record is the only durable link to the webhook. It is
	// written off the request path so the frontend gets its response first.
	go o.persistCorrelation(t, res.UUID, origin, referer)

	return res, nil
}

func (o *Orchestrator) isDonation(draft *domain.PayloadDraft) bool {
	return o.donationInstruction != "" &&
		draft.CustomMeta != nil &&
		draft.CustomMeta.Instruction == o.donationInstruction
}

// resolveUserToken finds the most recent user token issued to an account.
// Resolution order: the account-token index, the account's latest sign-in
// payload, then its latest payload of the same transaction type. Absence is
// not an error.
func (o *Orchestrator) resolveUserToken(
	ctx context.Context,
	t *domain.Tenant,
	account, txType string,
) string {
	token, err := o.history.TokenForAccount(ctx, t.AppID, account)
	if err != nil {
		slog.Warn("user token lookup failed", "account", account, "error", err)
		return ""
	}
	if token != "" {
		return token
	}

	for _, lookupType := range []string{domain.TxTypeSignIn, txType} {
		ids, err := o.history.PayloadIDsByAccountAndType(ctx, t.AppID, account, lookupType)
		if err != nil {
			slog.Warn("payload history lookup failed",
				"account", account, "tx_type", lookupType, "error", err)
			continue
		}
		if len(ids) == 0 {
			continue
		}
		detail, err := o.wallet.GetPayload(ctx, t.AppID, t.APISecret, ids[len(ids)-1])
		if err != nil {
			slog.Warn("payload fetch for token resolution failed",
				"payload_id", ids[len(ids)-1], "error", err)
			continue
		}
		if detail.Application.IssuedUserToken != "" {
			return detail.Application.IssuedUserToken
		}
	}
	return ""
}

// persistCorrelation re-fetches the payload detail for its expiry and writes
// the correlation record. Failures are logged only; the submission already
// succeeded.
func (o *Orchestrator) persistCorrelation(t *domain.Tenant, payloadID, origin, referer string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	detail, err := o.wallet.GetPayload(ctx, t.AppID, t.APISecret, payloadID)
	if err != nil {
		slog.Error("correlation fetch failed", "payload_id", payloadID, "error", err)
		return
	}

	rec := &domain.CorrelationRecord{
		PayloadID:     payloadID,
		ApplicationID: t.AppID,
		Origin:        origin,
		Referer:       referer,
		UserToken:     detail.Application.IssuedUserToken,
		Expires:       detail.Payload.ExpiresAt,
	}
	if err := o.correlations.Put(ctx, rec); err != nil {
		slog.Error("correlation persist failed", "payload_id", payloadID, "error", err)
	}
}
