package vanity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/infra/oracle"
	"github.com/nixer89/vanity-search-backend/internal/infra/storage"
	"github.com/nixer89/vanity-search-backend/internal/metrics"
)

// oracleValidator is the slice of the ledger oracle the workflow needs.
type oracleValidator interface {
	ValidatePayment(ctx context.Context, txid string, expected oracle.ExpectedPayment) domain.TransactionValidation
	ValidateTransaction(ctx context.Context, txid string) domain.TransactionValidation
}

// ledgerMutator performs the two ledger mutations of the activation branch.
type ledgerMutator interface {
	SetRegularKey(ctx context.Context, account, secret, regularKey string) domain.TransactionValidation
	DisableMasterKey(ctx context.Context, account, secret string) domain.TransactionValidation
}

// poolAPI is the reservation pool.
type poolAPI interface {
	Secret(ctx context.Context, address string) (string, error)
	Purge(ctx context.Context, address string) error
}

// Workflow settles vanity purchases and activations. Every step leaves the
// pool state resumable: an address is only purged after its master key is
// confirmed disabled.
type Workflow struct {
	oracle    oracleValidator
	ledger    ledgerMutator
	pool      poolAPI
	purchases storage.PurchaseRepository

	// strictLivenet rejects payments that only confirmed on the test network.
	strictLivenet bool

	// confirmDelay is how long to wait for ledger consensus before checking a
	// submitted rekey transaction.
	confirmDelay time.Duration
}

// NewWorkflow creates a vanity settlement workflow.
func NewWorkflow(
	oracleClient oracleValidator,
	ledgerClient ledgerMutator,
	pool poolAPI,
	purchases storage.PurchaseRepository,
	strictLivenet bool,
	confirmDelay time.Duration,
) *Workflow {
	return &Workflow{
		oracle:        oracleClient,
		ledger:        ledgerClient,
		pool:          pool,
		purchases:     purchases,
		strictLivenet: strictLivenet,
		confirmDelay:  confirmDelay,
	}
}

// accepted applies the livenet strictness policy to an oracle verdict.
func (w *Workflow) accepted(v domain.TransactionValidation) bool {
	if !v.Success {
		return false
	}
	if w.strictLivenet && v.Testnet {
		return false
	}
	return true
}

// validatePayment re-validates the settled payment against the original
// request's destination and amount.
func (w *Workflow) validatePayment(ctx context.Context, p *domain.SignedPayload) bool {
	account, tag := p.Payload.RequestJSON.Destination()
	v := w.oracle.ValidatePayment(ctx, p.Response.TxID, oracle.ExpectedPayment{
		Destination: account,
		Tag:         tag,
		Amount:      p.Payload.RequestJSON.Amount(),
	})
	return w.accepted(v)
}

// SettlePurchase reserves the vanity address for the buyer once the purchase
// payment is confirmed on the ledger. An unconfirmed payment leaves the
// address untouched.
func (w *Workflow) SettlePurchase(
	ctx context.Context,
	p *domain.SignedPayload,
	rec *domain.CorrelationRecord,
) error {
	blob := p.Blob()
	if blob == nil || blob.VanityAddress == "" {
		metrics.Settlements.WithLabelValues("purchase", "failed").Inc()
		return fmt.Errorf("payload %s carries no vanity address", p.Meta.UUID)
	}
	if !w.validatePayment(ctx, p) {
		metrics.Settlements.WithLabelValues("purchase", "rejected").Inc()
		return fmt.Errorf("purchase payment %s not confirmed", p.Response.TxID)
	}

	err := w.purchases.Reserve(ctx, &domain.Purchase{
		Origin:        rec.Origin,
		ApplicationID: rec.ApplicationID,
		BuyerAccount:  p.Response.Account,
		VanityAddress: blob.VanityAddress,
	})
	if err != nil {
		metrics.Settlements.WithLabelValues("purchase", "failed").Inc()
		return fmt.Errorf("reserve %s: %w", blob.VanityAddress, err)
	}

	metrics.Settlements.WithLabelValues("purchase", "success").Inc()
	slog.Info("vanity address reserved",
		"address", blob.VanityAddress, "buyer", p.Response.Account)
	return nil
}

// SettleActivation rekeys the vanity account to the buyer and schedules the
// delayed confirmation that eventually disables the master key and purges the
// address. The scheduled part runs in the background; the webhook response
// never waits for ledger consensus.
func (w *Workflow) SettleActivation(
	ctx context.Context,
	p *domain.SignedPayload,
) error {
	blob := p.Blob()
	if blob == nil || blob.VanityAddress == "" {
		metrics.Settlements.WithLabelValues("activation", "failed").Inc()
		return fmt.Errorf("payload %s carries no vanity address", p.Meta.UUID)
	}
	if !w.validatePayment(ctx, p) {
		metrics.Settlements.WithLabelValues("activation", "rejected").Inc()
		return fmt.Errorf("activation payment %s not confirmed", p.Response.TxID)
	}

	secret, err := w.pool.Secret(ctx, blob.VanityAddress)
	if err != nil {
		metrics.Settlements.WithLabelValues("activation", "failed").Inc()
		return fmt.Errorf("resolve pool secret: %w", err)
	}

	rekey := w.ledger.SetRegularKey(ctx, blob.VanityAddress, secret, p.Response.Account)
	if !rekey.Success {
		metrics.Settlements.WithLabelValues("activation", "failed").Inc()
		return fmt.Errorf("rekey %s: %s", blob.VanityAddress, rekey.Message)
	}

	// The rekey needs a ledger close before the oracle can see it. The
	// finalize step captures everything it needs now and reports only
	// through logs and the pool.
	go func(address, secret, txid, buyer string) {
		time.Sleep(w.confirmDelay)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		w.finalizeActivation(ctx, address, secret, txid, buyer)
	}(blob.VanityAddress, secret, rekey.TxID, p.Response.Account)

	return nil
}

// finalizeActivation confirms the rekey on the ledger, disables the master
// key and purges the address from the pool. Any failure leaves the address
// reserved so the activation can be re-driven.
func (w *Workflow) finalizeActivation(ctx context.Context, address, secret, rekeyTxID, buyer string) {
	confirm := w.oracle.ValidateTransaction(ctx, rekeyTxID)
	if !w.accepted(confirm) {
		metrics.Settlements.WithLabelValues("activation", "unconfirmed").Inc()
		slog.Error("rekey transaction not confirmed",
			"address", address, "txid", rekeyTxID)
		return
	}

	disable := w.ledger.DisableMasterKey(ctx, address, secret)
	if !disable.Success {
		metrics.Settlements.WithLabelValues("activation", "failed").Inc()
		slog.Error("master key disable failed",
			"address", address, "message", disable.Message)
		return
	}

	if err := w.pool.Purge(ctx, address); err != nil {
		// Ownership transferred but the pool still holds the seed. Needs
		// operator attention, not a retry of the ledger steps.
		metrics.Settlements.WithLabelValues("activation", "purge_failed").Inc()
		slog.Error("pool purge failed", "address", address, "error", err)
		return
	}

	metrics.Settlements.WithLabelValues("activation", "success").Inc()
	slog.Info("vanity activation settled", "address", address, "buyer", buyer)
}
