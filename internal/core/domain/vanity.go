package domain

import "errors"

// ErrAmbiguousIntent is returned when a vanity blob carries both or neither of
// the purchase/activation markers. The webhook pipeline treats this as a hard
// failure instead of guessing a default.
var ErrAmbiguousIntent = errors.New("vanity blob must carry exactly one of isPurchase/isActivation")

// VanityBlob is the custom-metadata marker attached to vanity payloads.
type VanityBlob struct {
	IsPurchase    bool   `json:"isPurchase,omitempty"`
	IsActivation  bool   `json:"isActivation,omitempty"`
	VanityAddress string `json:"vanityAddress,omitempty"`
	VanityLength  int    `json:"vanityLength,omitempty"`
}

// IntentKind discriminates what a vanity payment is for.
type IntentKind int

const (
	IntentPurchase IntentKind = iota + 1
	IntentActivation
)

// VanityIntent is the decoded, unambiguous form of a VanityBlob.
type VanityIntent struct {
	Kind    IntentKind
	Address string
	Length  int
}

// Intent decodes the blob into a tagged intent. Blobs without a vanity
// address are not vanity payloads at all and yield (nil, nil).
func (b *VanityBlob) Intent() (*VanityIntent, error) {
	if b == nil || b.VanityAddress == "" {
		return nil, nil
	}
	if b.IsPurchase == b.IsActivation {
		return nil, ErrAmbiguousIntent
	}
	kind := IntentPurchase
	if b.IsActivation {
		kind = IntentActivation
	}
	return &VanityIntent{Kind: kind, Address: b.VanityAddress, Length: b.VanityLength}, nil
}

// VanityAccount is an address/secret pair held in the reservation pool.
type VanityAccount struct {
	Address string `json:"address"`
	Secret  string `json:"secret"`
}

// AddressResult is the answer of a vanity pool search.
type AddressResult struct {
	Addresses []string `json:"addresses"`
}

// Purchase records a reserved vanity address for a buyer.
type Purchase struct {
	ID            string `db:"id"`
	Origin        string `db:"origin"`
	ApplicationID string `db:"application_id"`
	BuyerAccount  string `db:"buyer_account"`
	VanityAddress string `db:"vanity_address"`
}
