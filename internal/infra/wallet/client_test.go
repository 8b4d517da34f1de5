package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
)

func walletServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "app-1" || r.Header.Get("x-api-secret") != "secret-1" {
			t.Errorf("missing credentials on %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
}

func TestCreatePayload(t *testing.T) {
	srv := walletServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/platform/payload" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var draft domain.PayloadDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			t.Errorf("decode draft: %v", err)
		}
		if draft.TxJSON["TransactionType"] != "Payment" {
			t.Errorf("unexpected draft %+v", draft)
		}
		w.Write([]byte(`{"uuid":"payload-1","pushed":true}`))
	})
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	res, err := c.CreatePayload(context.Background(), "app-1", "secret-1", &domain.PayloadDraft{
		TxJSON: domain.TxJSON{"TransactionType": "Payment"},
	})
	if err != nil {
		t.Fatalf("CreatePayload: %v", err)
	}
	if res.UUID != "payload-1" || !res.Pushed {
		t.Errorf("unexpected response %+v", res)
	}
}

func TestGetPayload(t *testing.T) {
	srv := walletServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/platform/payload/payload-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"meta":{"uuid":"payload-1","exists":true,"signed":true},
			"payload":{"tx_type":"Payment"},
			"response":{"txid":"TX1","account":"rSigner"}
		}`))
	})
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	p, err := c.GetPayload(context.Background(), "app-1", "secret-1", "payload-1")
	if err != nil {
		t.Fatalf("GetPayload: %v", err)
	}
	if !p.Meta.Signed || p.Response == nil || p.Response.TxID != "TX1" {
		t.Errorf("unexpected payload %+v", p)
	}
	if p.TxType() != domain.TxTypePayment {
		t.Errorf("TxType = %q", p.TxType())
	}
}

func TestErrorStatusSurfaces(t *testing.T) {
	srv := walletServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
	})
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.GetPayload(context.Background(), "app-1", "secret-1", "nope"); err == nil {
		t.Fatal("http error status must surface as an error")
	}
}

func TestPing(t *testing.T) {
	srv := walletServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/platform/ping" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"pong":true}`))
	})
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if err := c.Ping(context.Background(), "app-1", "secret-1"); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
