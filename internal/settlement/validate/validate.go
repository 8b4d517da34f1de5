package validate

import (
	"log/slog"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/xrpl"
)

// Basic reports whether a fetched payload is structurally valid: it exists,
// was resolved and signed, and carries a signing result.
func Basic(p *domain.SignedPayload) bool {
	return p != nil &&
		p.Meta.Exists &&
		p.Meta.Resolved &&
		p.Meta.Signed &&
		p.Response != nil
}

// SignedPayment reports whether a payload is a fully signed, successfully
// dispatched payment with a cryptographically valid signed blob. Failing any
// clause fails the predicate.
func SignedPayment(p *domain.SignedPayload) bool {
	if !Basic(p) {
		return false
	}
	if p.TxType() != domain.TxTypePayment {
		return false
	}
	if !p.Meta.Submit {
		return false
	}
	if p.Response.DispatchedResult != domain.ResultSuccess {
		return false
	}
	return verifiedBlob(p.Response.Hex)
}

// SignedSignIn reports whether a payload is a fully signed sign-in carrying a
// transaction id, signed blob and signer account.
func SignedSignIn(p *domain.SignedPayload) bool {
	if !Basic(p) {
		return false
	}
	if p.TxType() != domain.TxTypeSignIn {
		return false
	}
	if p.Response.TxID == "" || p.Response.Hex == "" || p.Response.Account == "" {
		return false
	}
	return verifiedBlob(p.Response.Hex)
}

func verifiedBlob(hex string) bool {
	if hex == "" {
		return false
	}
	ok, err := xrpl.VerifySignature(hex)
	if err != nil {
		slog.Warn("signature verification failed", "error", err)
		return false
	}
	return ok
}
