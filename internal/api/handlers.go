package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	payloadsvc "github.com/nixer89/vanity-search-backend/internal/payload"
	"github.com/nixer89/vanity-search-backend/internal/settlement/validate"
)

// submitRequest is the frontend submission body: the payload draft plus
// backend-level options that never reach the wallet API.
type submitRequest struct {
	Options *domain.SubmitOptions `json:"options"`
	Payload *domain.PayloadDraft  `json:"payload"`
}

// stripQuery drops the query string from a referer value so it can be used as
// a destination-map key.
func stripQuery(referer string) string {
	if i := strings.IndexByte(referer, '?'); i >= 0 {
		return referer[:i]
	}
	return referer
}

func (s *Server) handleSubmitPayload(w http.ResponseWriter, r *http.Request) {
	// Frontends attach a request hash; submissions without one are bots.
	if r.Header.Get("x-hash") == "" {
		writeFailure(w, http.StatusForbidden, "you are not allowed")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Payload == nil {
		writeFailure(w, http.StatusBadRequest, "invalid payload request")
		return
	}

	origin := r.Header.Get("Origin")
	referer := r.Header.Get("Referer")
	if req.Options != nil && req.Options.Referer != "" {
		referer = req.Options.Referer
	}
	referer = stripQuery(referer)

	res, err := s.orchestrator.Submit(r.Context(), req.Payload, origin, referer, req.Options)
	if err != nil {
		if errors.Is(err, payloadsvc.ErrOracleUnavailable) {
			writeFailure(w, http.StatusServiceUnavailable, "ledger oracle unavailable")
			return
		}
		if errors.Is(err, payloadsvc.ErrUndeclaredPurpose) || errors.Is(err, domain.ErrAmbiguousIntent) {
			writeFailure(w, http.StatusBadRequest, "payment draft must declare its purpose")
			return
		}
		slog.Error("payload submission failed", "origin", origin, "error", err)
		writeFailure(w, http.StatusInternalServerError, "payload could not be submitted")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// resolveTenant maps the request origin to a tenant or writes the structured
// failure.
func (s *Server) resolveTenant(w http.ResponseWriter, r *http.Request) (*domain.Tenant, bool) {
	t, err := s.registry.ResolveOrigin(r.Context(), r.Header.Get("Origin"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "unknown origin")
		return nil, false
	}
	return t, true
}

func (s *Server) handleGetPayload(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}
	res, err := s.wallet.GetPayloadRaw(r.Context(), t.AppID, t.APISecret, r.PathValue("id"))
	if err != nil {
		writeFailure(w, http.StatusBadGateway, "payload could not be fetched")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeletePayload(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}
	res, err := s.wallet.DeletePayload(r.Context(), t.AppID, t.APISecret, r.PathValue("id"))
	if err != nil {
		writeFailure(w, http.StatusBadGateway, "payload could not be deleted")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetOTT(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}
	res, err := s.wallet.GetAppOTT(r.Context(), t.AppID, t.APISecret, r.PathValue("token"))
	if err != nil {
		writeFailure(w, http.StatusBadGateway, "token could not be resolved")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSendEvent(w http.ResponseWriter, r *http.Request) {
	s.forward(w, r, s.wallet.SendEvent)
}

func (s *Server) handleSendPush(w http.ResponseWriter, r *http.Request) {
	s.forward(w, r, s.wallet.SendPush)
}

// forward relays a request body through a wallet API call for the resolved
// tenant.
func (s *Server) forward(
	w http.ResponseWriter,
	r *http.Request,
	call func(ctx context.Context, appID, apiSecret string, body json.RawMessage) (json.RawMessage, error),
) {
	t, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := call(r.Context(), t.AppID, t.APISecret, body)
	if err != nil {
		writeFailure(w, http.StatusBadGateway, "request could not be forwarded")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCheckPayment(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}
	p, err := s.wallet.GetPayload(r.Context(), t.AppID, t.APISecret, r.PathValue("id"))
	if err != nil {
		writeFailure(w, http.StatusBadGateway, "payload could not be fetched")
		return
	}
	if !validate.SignedPayment(p) {
		writeJSON(w, http.StatusOK, domain.TransactionValidation{Success: false})
		return
	}
	v := s.oracle.ValidateTransaction(r.Context(), p.Response.TxID)
	v.Account = p.Response.Account
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCheckSignIn(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}
	p, err := s.wallet.GetPayload(r.Context(), t.AppID, t.APISecret, r.PathValue("id"))
	if err != nil {
		writeFailure(w, http.StatusBadGateway, "payload could not be fetched")
		return
	}
	if !validate.SignedSignIn(p) {
		writeJSON(w, http.StatusOK, domain.TransactionValidation{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, domain.TransactionValidation{
		Success: true,
		TxID:    p.Response.TxID,
		Account: p.Response.Account,
	})
}

func (s *Server) handleValidateTx(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}
	p, err := s.wallet.GetPayload(r.Context(), t.AppID, t.APISecret, r.PathValue("id"))
	if err != nil {
		writeFailure(w, http.StatusBadGateway, "payload could not be fetched")
		return
	}
	if !validate.Basic(p) || p.Response.TxID == "" {
		writeJSON(w, http.StatusOK, domain.TransactionValidation{Success: false})
		return
	}
	v := s.oracle.ValidateTransaction(r.Context(), p.Response.TxID)
	v.Account = p.Response.Account
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleVanitySearch(w http.ResponseWriter, r *http.Request) {
	res, err := s.pool.Search(r.Context(), r.PathValue("word"))
	if err != nil {
		slog.Error("vanity search failed", "error", err)
		writeFailure(w, http.StatusBadGateway, "vanity search unavailable")
		return
	}

	purchased, err := s.purchases.GetAllAddresses(r.Context())
	if err != nil {
		slog.Error("purchased address lookup failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "vanity search unavailable")
		return
	}

	available := make([]string, 0, len(res.Addresses))
	for _, addr := range res.Addresses {
		if !slices.Contains(purchased, addr) {
			available = append(available, addr)
		}
	}
	writeJSON(w, http.StatusOK, domain.AddressResult{Addresses: available})
}

func (s *Server) handleVanityPurchased(w http.ResponseWriter, r *http.Request) {
	addresses, err := s.purchases.GetByBuyer(r.Context(), r.PathValue("account"))
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "purchases could not be listed")
		return
	}
	writeJSON(w, http.StatusOK, domain.AddressResult{Addresses: addresses})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}
	counts, err := s.stats.CountByOrigin(r.Context(), r.Header.Get("Origin"), t.AppID)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "statistics unavailable")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fixedPrices":      t.FixedPrices,
		"activationAmount": s.settle.ActivationAmount,
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]bool{"success": false})
		return
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.Meta.PayloadID == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"success": false})
		return
	}

	// The wallet API only needs an acknowledgment; internal failures never
	// surface as transport errors.
	writeJSON(w, http.StatusOK, s.pipeline.Process(r.Context(), &event))
}
