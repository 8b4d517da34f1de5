package domain

// Destination is a configured receiving account, with an optional tag.
type Destination struct {
	Account string `json:"account"`
	Tag     *int64 `json:"tag,omitempty"`
}

// Tenant is a registered application: its wallet-API credentials and the
// per-origin configuration used for destination/amount injection. Immutable
// during a request's lifetime.
type Tenant struct {
	AppID     string
	APISecret string

	// Origins are allowed-origin patterns, matched exactly first and as
	// regular expressions second.
	Origins []string

	// Destinations maps a referer key, "<origin>/*" or the wildcard "*" to
	// a receiving account.
	Destinations map[string]Destination

	// FixedPrices maps a vanity address length to its price in the
	// reference currency.
	FixedPrices map[int]float64
}

// Destination resolves the receiving account for a purchase, preferring an
// exact referer match over "<origin>/*" over the "*" wildcard.
func (t *Tenant) Destination(origin, referer string) (Destination, bool) {
	if d, ok := t.Destinations[referer]; ok {
		return d, true
	}
	if d, ok := t.Destinations[origin+"/*"]; ok {
		return d, true
	}
	if d, ok := t.Destinations["*"]; ok {
		return d, true
	}
	return Destination{}, false
}

// Price looks up the fixed price for a vanity address length.
func (t *Tenant) Price(length int) (float64, bool) {
	p, ok := t.FixedPrices[length]
	return p, ok
}
