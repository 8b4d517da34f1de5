package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// ResultSuccess is the ledger engine result code for a fully applied transaction.
const ResultSuccess = "tesSUCCESS"

// Transaction types the backend cares about.
const (
	TxTypePayment = "payment"
	TxTypeSignIn  = "signin"
)

// TxJSON is the raw transaction document sent to the wallet-signing API.
// It stays a loose map because the backend only ever touches a handful of
// fields and must pass everything else through untouched.
type TxJSON map[string]any

// TransactionType returns the lowercased transaction type, or "" if unset.
func (t TxJSON) TransactionType() string {
	v, _ := t["TransactionType"].(string)
	return strings.ToLower(strings.TrimSpace(v))
}

// IsPayment reports whether the draft is a payment transaction.
func (t TxJSON) IsPayment() bool {
	return t.TransactionType() == TxTypePayment
}

// SetDestination sets the destination account and, if tag is non-nil, the
// destination tag. A nil tag removes any tag previously present.
func (t TxJSON) SetDestination(account string, tag *int64) {
	t["Destination"] = account
	if tag != nil {
		t["DestinationTag"] = *tag
	} else {
		delete(t, "DestinationTag")
	}
}

// Amount returns the raw amount field. It is either a string (drops of the
// native asset) or an object with currency/issuer/value for issued currencies.
func (t TxJSON) Amount() any {
	return t["Amount"]
}

// Destination returns the destination account and tag (if any).
func (t TxJSON) Destination() (account string, tag *int64) {
	account, _ = t["Destination"].(string)
	switch v := t["DestinationTag"].(type) {
	case int64:
		tag = &v
	case float64:
		n := int64(v)
		tag = &n
	case json.Number:
		if n, err := v.Int64(); err == nil {
			tag = &n
		}
	}
	return account, tag
}

// CustomMeta is the free-form metadata blob attached to every payload. The
// blob carries the vanity markers that drive settlement.
type CustomMeta struct {
	Identifier  string      `json:"identifier,omitempty"`
	Instruction string      `json:"instruction,omitempty"`
	Blob        *VanityBlob `json:"blob,omitempty"`
}

// PayloadDraft is an outbound signing request before submission.
type PayloadDraft struct {
	TxJSON     TxJSON      `json:"txjson"`
	CustomMeta *CustomMeta `json:"custom_meta,omitempty"`
	UserToken  string      `json:"user_token,omitempty"`
}

// Blob returns the vanity blob of the draft, or nil.
func (d *PayloadDraft) Blob() *VanityBlob {
	if d == nil || d.CustomMeta == nil {
		return nil
	}
	return d.CustomMeta.Blob
}

// SubmitOptions are backend-level options accompanying a payload draft. They
// never reach the wallet API.
type SubmitOptions struct {
	Web          *bool  `json:"web,omitempty"`
	PushDisabled bool   `json:"pushDisabled,omitempty"`
	XRPLAccount  string `json:"xrplAccount,omitempty"`
	Referer      string `json:"referer,omitempty"`
}

// SubmitResponse is the wallet API's answer to a payload submission. An
// unresolvable tenant yields the placeholder response with UUID "error".
type SubmitResponse struct {
	UUID   string          `json:"uuid"`
	Next   json.RawMessage `json:"next,omitempty"`
	Refs   json.RawMessage `json:"refs,omitempty"`
	Pushed bool            `json:"pushed"`
}

// PlaceholderResponse is returned when no tenant matches the request origin.
func PlaceholderResponse() *SubmitResponse {
	return &SubmitResponse{UUID: "error"}
}

// PayloadMeta is the status block of a fetched payload.
type PayloadMeta struct {
	UUID     string `json:"uuid"`
	Exists   bool   `json:"exists"`
	Resolved bool   `json:"resolved"`
	Signed   bool   `json:"signed"`
	Submit   bool   `json:"submit"`
}

// ApplicationMeta identifies the tenant application a payload belongs to.
type ApplicationMeta struct {
	UUIDv4          string `json:"uuidv4"`
	IssuedUserToken string `json:"issued_user_token"`
}

// PayloadDetail is the original request as stored by the wallet API.
type PayloadDetail struct {
	TxType      string    `json:"tx_type"`
	RequestJSON TxJSON    `json:"request_json"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PayloadOutcome is the signing result reported by the wallet API.
type PayloadOutcome struct {
	TxID             string `json:"txid"`
	Hex              string `json:"hex"`
	Account          string `json:"account"`
	DispatchedResult string `json:"dispatched_result"`
}

// SignedPayload is the full payload detail fetched from the wallet API after
// a webhook event. It is read on demand and never cached.
type SignedPayload struct {
	Meta        PayloadMeta     `json:"meta"`
	Application ApplicationMeta `json:"application"`
	Payload     PayloadDetail   `json:"payload"`
	Response    *PayloadOutcome `json:"response"`
	CustomMeta  *CustomMeta     `json:"custom_meta"`
}

// TxType returns the lowercased transaction type of the payload.
func (p *SignedPayload) TxType() string {
	return strings.ToLower(strings.TrimSpace(p.Payload.TxType))
}

// Blob returns the vanity blob of the payload, or nil.
func (p *SignedPayload) Blob() *VanityBlob {
	if p == nil || p.CustomMeta == nil {
		return nil
	}
	return p.CustomMeta.Blob
}

// WebhookEvent is the asynchronous completion event posted by the wallet API.
// Only the identifiers are trusted; the full payload is re-fetched.
type WebhookEvent struct {
	Meta struct {
		ApplicationID string `json:"application_uuidv4"`
		PayloadID     string `json:"payload_uuidv4"`
	} `json:"meta"`
	UserToken struct {
		Token string `json:"user_token"`
	} `json:"userToken"`
}

// TransactionValidation is the verdict type produced by the ledger oracle and
// by the vanity settlement steps.
type TransactionValidation struct {
	Success bool   `json:"success"`
	Testnet bool   `json:"testnet"`
	TxID    string `json:"txid,omitempty"`
	Account string `json:"account,omitempty"`
	Message string `json:"message,omitempty"`
}
