package payload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/infra/storage"
)

type fakeRegistry struct {
	tenant *domain.Tenant
}

func (f *fakeRegistry) ResolveOrigin(ctx context.Context, origin string) (*domain.Tenant, error) {
	if f.tenant == nil {
		return nil, storage.ErrTenantNotFound
	}
	return f.tenant, nil
}

type fakeWallet struct {
	created   *domain.PayloadDraft
	createErr error
	response  *domain.SubmitResponse
	detail    *domain.SignedPayload
	detailErr error
}

func (f *fakeWallet) CreatePayload(ctx context.Context, appID, apiSecret string, draft *domain.PayloadDraft) (*domain.SubmitResponse, error) {
	f.created = draft
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.response != nil {
		return f.response, nil
	}
	return &domain.SubmitResponse{UUID: "payload-1"}, nil
}

func (f *fakeWallet) GetPayload(ctx context.Context, appID, apiSecret, payloadID string) (*domain.SignedPayload, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if f.detail != nil {
		return f.detail, nil
	}
	return &domain.SignedPayload{}, nil
}

type fakeOracle struct {
	err   error
	pings int
}

func (f *fakeOracle) Ping(ctx context.Context) error {
	f.pings++
	return f.err
}

type fakeRates struct {
	rate float64
	err  error
}

func (f *fakeRates) TrustlineLimit(ctx context.Context) (float64, error) {
	return f.rate, f.err
}

type fakePutter struct {
	records chan *domain.CorrelationRecord
}

func (f *fakePutter) Put(ctx context.Context, rec *domain.CorrelationRecord) error {
	select {
	case f.records <- rec:
	default:
	}
	return nil
}

type fakeHistory struct {
	token    string
	payloads map[string][]string
}

func (f *fakeHistory) TokenForAccount(ctx context.Context, appID, account string) (string, error) {
	return f.token, nil
}

func (f *fakeHistory) PayloadIDsByAccountAndType(ctx context.Context, appID, account, txType string) ([]string, error) {
	return f.payloads[txType], nil
}

func testTenant() *domain.Tenant {
	tag := int64(100)
	return &domain.Tenant{
		AppID:     "app-1",
		APISecret: "secret-1",
		Origins:   []string{"https://x"},
		Destinations: map[string]domain.Destination{
			"https://x/*": {Account: "rDest", Tag: &tag},
		},
		FixedPrices: map[int]float64{5: 10},
	}
}

func newTestOrchestrator(
	registry *fakeRegistry,
	w *fakeWallet,
	o *fakeOracle,
	rates *fakeRates,
	putter *fakePutter,
	history *fakeHistory,
) *Orchestrator {
	if putter == nil {
		putter = &fakePutter{records: make(chan *domain.CorrelationRecord, 1)}
	}
	if history == nil {
		history = &fakeHistory{}
	}
	return NewOrchestrator(
		registry, w, o, rates, putter, history,
		"Thank you for your donation!", "20001000",
	)
}

func purchaseDraft() *domain.PayloadDraft {
	return &domain.PayloadDraft{
		TxJSON: domain.TxJSON{"TransactionType": "Payment"},
		CustomMeta: &domain.CustomMeta{
			Blob: &domain.VanityBlob{
				IsPurchase:    true,
				VanityAddress: "rVanity",
				VanityLength:  5,
			},
		},
	}
}

func TestSubmitPurchaseInjection(t *testing.T) {
	w := &fakeWallet{}
	o := &fakeOracle{}
	orc := newTestOrchestrator(&fakeRegistry{tenant: testTenant()}, w, o, &fakeRates{rate: 100}, nil, nil)

	res, err := orc.Submit(context.Background(), purchaseDraft(), "https://x", "https://x/checkout", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.UUID != "payload-1" {
		t.Errorf("unexpected response %+v", res)
	}
	if o.pings != 1 {
		t.Errorf("expected one oracle probe, got %d", o.pings)
	}

	tx := w.created.TxJSON
	if tx["Destination"] != "rDest" {
		t.Errorf("expected injected destination, got %v", tx["Destination"])
	}
	if tag, _ := tx["DestinationTag"].(int64); tag != 100 {
		t.Errorf("expected injected tag 100, got %v", tx["DestinationTag"])
	}
	if tx["Amount"] != "100000" {
		t.Errorf("expected amount of 100000 drops, got %v", tx["Amount"])
	}
}

func TestSubmitDestinationPrecedence(t *testing.T) {
	tenant := testTenant()
	tenant.Destinations = map[string]domain.Destination{
		"https://x/checkout": {Account: "rReferer"},
		"https://x/*":        {Account: "rOriginWildcard"},
		"*":                  {Account: "rGlobal"},
	}

	w := &fakeWallet{}
	orc := newTestOrchestrator(&fakeRegistry{tenant: tenant}, w, &fakeOracle{}, &fakeRates{rate: 100}, nil, nil)

	if _, err := orc.Submit(context.Background(), purchaseDraft(), "https://x", "https://x/checkout", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if w.created.TxJSON["Destination"] != "rReferer" {
		t.Errorf("exact referer entry must win, got %v", w.created.TxJSON["Destination"])
	}

	delete(tenant.Destinations, "https://x/checkout")
	if _, err := orc.Submit(context.Background(), purchaseDraft(), "https://x", "https://x/checkout", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if w.created.TxJSON["Destination"] != "rOriginWildcard" {
		t.Errorf("origin wildcard must win over global, got %v", w.created.TxJSON["Destination"])
	}
}

func TestSubmitActivationInjection(t *testing.T) {
	draft := purchaseDraft()
	draft.CustomMeta.Blob.IsPurchase = false
	draft.CustomMeta.Blob.IsActivation = true

	w := &fakeWallet{}
	orc := newTestOrchestrator(&fakeRegistry{tenant: testTenant()}, w, &fakeOracle{}, &fakeRates{}, nil, nil)

	if _, err := orc.Submit(context.Background(), draft, "https://x", "", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	tx := w.created.TxJSON
	if tx["Destination"] != "rVanity" {
		t.Errorf("activation must pay the vanity address, got %v", tx["Destination"])
	}
	if tx["Amount"] != "20001000" {
		t.Errorf("activation must use the fixed amount, got %v", tx["Amount"])
	}
	if _, ok := tx["DestinationTag"]; ok {
		t.Error("activation must not carry a destination tag")
	}
}

func TestSubmitPaymentWithoutPurposeRejected(t *testing.T) {
	drafts := map[string]*domain.PayloadDraft{
		"no blob": {
			TxJSON: domain.TxJSON{"TransactionType": "Payment", "Destination": "rClient", "Amount": "1"},
		},
		"blob without address": {
			TxJSON:     domain.TxJSON{"TransactionType": "Payment", "Destination": "rClient", "Amount": "1"},
			CustomMeta: &domain.CustomMeta{Blob: &domain.VanityBlob{}},
		},
	}

	for name, draft := range drafts {
		w := &fakeWallet{}
		orc := newTestOrchestrator(&fakeRegistry{tenant: testTenant()}, w, &fakeOracle{}, &fakeRates{rate: 100}, nil, nil)

		if _, err := orc.Submit(context.Background(), draft, "https://x", "", nil); !errors.Is(err, ErrUndeclaredPurpose) {
			t.Errorf("%s: expected ErrUndeclaredPurpose, got %v", name, err)
		}
		if w.created != nil {
			t.Errorf("%s: draft must not reach the wallet API", name)
		}
	}
}

func TestSubmitAmbiguousIntent(t *testing.T) {
	draft := purchaseDraft()
	draft.CustomMeta.Blob.IsActivation = true // both flags

	orc := newTestOrchestrator(&fakeRegistry{tenant: testTenant()}, &fakeWallet{}, &fakeOracle{}, &fakeRates{rate: 100}, nil, nil)

	if _, err := orc.Submit(context.Background(), draft, "https://x", "", nil); !errors.Is(err, domain.ErrAmbiguousIntent) {
		t.Errorf("expected ErrAmbiguousIntent, got %v", err)
	}
}

func TestSubmitMissingPrice(t *testing.T) {
	draft := purchaseDraft()
	draft.CustomMeta.Blob.VanityLength = 9

	orc := newTestOrchestrator(&fakeRegistry{tenant: testTenant()}, &fakeWallet{}, &fakeOracle{}, &fakeRates{rate: 100}, nil, nil)

	if _, err := orc.Submit(context.Background(), draft, "https://x", "", nil); err == nil {
		t.Error("missing price table entry must fail")
	}
}

func TestSubmitUnknownOriginPlaceholder(t *testing.T) {
	orc := newTestOrchestrator(&fakeRegistry{}, &fakeWallet{}, &fakeOracle{}, &fakeRates{}, nil, nil)

	res, err := orc.Submit(context.Background(), purchaseDraft(), "https://unknown", "", nil)
	if err != nil {
		t.Fatalf("unknown origin must not error: %v", err)
	}
	if res.UUID != "error" {
		t.Errorf("expected placeholder response, got %+v", res)
	}
}

func TestSubmitOracleGate(t *testing.T) {
	o := &fakeOracle{err: errors.New("down")}
	orc := newTestOrchestrator(&fakeRegistry{tenant: testTenant()}, &fakeWallet{}, o, &fakeRates{rate: 100}, nil, nil)

	if _, err := orc.Submit(context.Background(), purchaseDraft(), "https://x", "", nil); !errors.Is(err, ErrOracleUnavailable) {
		t.Errorf("expected ErrOracleUnavailable, got %v", err)
	}
}

func TestSubmitDonationSkipsOracleGate(t *testing.T) {
	o := &fakeOracle{err: errors.New("down")}
	w := &fakeWallet{}
	orc := newTestOrchestrator(&fakeRegistry{tenant: testTenant()}, w, o, &fakeRates{}, nil, nil)

	draft := &domain.PayloadDraft{
		TxJSON:     domain.TxJSON{"TransactionType": "Payment", "Destination": "rSomeone"},
		CustomMeta: &domain.CustomMeta{Instruction: "Thank you for your donation!"},
	}
	if _, err := orc.Submit(context.Background(), draft, "https://x", "", nil); err != nil {
		t.Fatalf("donation must skip the oracle gate: %v", err)
	}
	if o.pings != 0 {
		t.Error("donation must not probe the oracle")
	}
}

func TestSubmitUserTokenFallback(t *testing.T) {
	w := &fakeWallet{}
	history := &fakeHistory{token: "tok-1"}
	orc := newTestOrchestrator(&fakeRegistry{tenant: testTenant()}, w, &fakeOracle{}, &fakeRates{rate: 100}, nil, history)

	opts := &domain.SubmitOptions{XRPLAccount: "rSigner"}
	if _, err := orc.Submit(context.Background(), purchaseDraft(), "https://x", "", opts); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if w.created.UserToken != "tok-1" {
		t.Errorf("expected resolved user token, got %q", w.created.UserToken)
	}
}

func TestSubmitUserTokenFromSignInPayload(t *testing.T) {
	w := &fakeWallet{
		detail: &domain.SignedPayload{
			Application: domain.ApplicationMeta{IssuedUserToken: "tok-signin"},
		},
	}
	history := &fakeHistory{payloads: map[string][]string{"signin": {"old", "recent"}}}
	orc := newTestOrchestrator(&fakeRegistry{tenant: testTenant()}, w, &fakeOracle{}, &fakeRates{rate: 100}, nil, history)

	opts := &domain.SubmitOptions{XRPLAccount: "rSigner"}
	if _, err := orc.Submit(context.Background(), purchaseDraft(), "https://x", "", opts); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if w.created.UserToken != "tok-signin" {
		t.Errorf("expected sign-in token fallback, got %q", w.created.UserToken)
	}
}

func TestSubmitPersistsCorrelation(t *testing.T) {
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	w := &fakeWallet{
		detail: &domain.SignedPayload{
			Application: domain.ApplicationMeta{IssuedUserToken: "tok-1"},
			Payload:     domain.PayloadDetail{ExpiresAt: expiry},
		},
	}
	putter := &fakePutter{records: make(chan *domain.CorrelationRecord, 1)}
	orc := newTestOrchestrator(&fakeRegistry{tenant: testTenant()}, w, &fakeOracle{}, &fakeRates{rate: 100}, putter, nil)

	if _, err := orc.Submit(context.Background(), purchaseDraft(), "https://x", "https://x/checkout", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case rec := <-putter.records:
		if rec.PayloadID != "payload-1" || rec.ApplicationID != "app-1" {
			t.Errorf("unexpected correlation record %+v", rec)
		}
		if rec.Origin != "https://x" || rec.Referer != "https://x/checkout" {
			t.Errorf("unexpected correlation origin %+v", rec)
		}
		if rec.UserToken != "tok-1" || !rec.Expires.Equal(expiry) {
			t.Errorf("unexpected correlation detail %+v", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("correlation record was never persisted")
	}
}
