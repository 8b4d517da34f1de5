package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/metrics"
	"github.com/nixer89/vanity-search-backend/internal/xrpl"
)

// Config holds ledger-data oracle settings.
type Config struct {
	Token      string        `yaml:"token"`
	LivenetURL string        `yaml:"livenet_url"`
	TestnetURL string        `yaml:"testnet_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Client queries the external ledger-data service for transactions, on both
// the production and the test network. Lookup failures are swallowed and
// reported as a non-match: oracle unavailability must never read as a
// positive validation.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new oracle client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// ExpectedPayment carries the parameters a ledger payment must match.
type ExpectedPayment struct {
	Destination string
	Tag         *int64

	// Amount is the raw amount of the original request: a drops string for
	// native payments or a currency/issuer/value object for issued
	// currencies. nil accepts any delivered amount.
	Amount any
}

// ledgerTx is the oracle's transaction document, reduced to the fields the
// validation needs.
type ledgerTx struct {
	Type          string `json:"type"`
	Specification struct {
		Destination *struct {
			Address string `json:"address"`
			Tag     *int64 `json:"tag"`
		} `json:"destination"`
	} `json:"specification"`
	Outcome *struct {
		Result          string `json:"result"`
		DeliveredAmount *struct {
			Currency     string `json:"currency"`
			Counterparty string `json:"counterparty"`
			Value        string `json:"value"`
		} `json:"deliveredAmount"`
	} `json:"outcome"`
}

// Ping probes oracle liveness.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.LivenetURL+"/api/v2/services/lastUpdate", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-bithomp-token", c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("oracle ping: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oracle ping: http %d", resp.StatusCode)
	}
	return nil
}

// ValidateTransaction checks whether a transaction exists and succeeded on
// either network, production first.
func (c *Client) ValidateTransaction(ctx context.Context, txid string) domain.TransactionValidation {
	if c.check(ctx, txid, false, nil) {
		return domain.TransactionValidation{Success: true, Testnet: false, TxID: txid}
	}
	if c.check(ctx, txid, true, nil) {
		return domain.TransactionValidation{Success: true, Testnet: true, TxID: txid}
	}
	return domain.TransactionValidation{Success: false, Testnet: false}
}

// ValidatePayment checks whether a payment matching the expected parameters
// succeeded on either network, production first.
func (c *Client) ValidatePayment(
	ctx context.Context,
	txid string,
	expected ExpectedPayment,
) domain.TransactionValidation {
	if txid == "" {
		return domain.TransactionValidation{Success: false, Testnet: false}
	}
	if c.check(ctx, txid, false, &expected) {
		return domain.TransactionValidation{Success: true, Testnet: false, TxID: txid}
	}
	if c.check(ctx, txid, true, &expected) {
		return domain.TransactionValidation{Success: true, Testnet: true, TxID: txid}
	}
	return domain.TransactionValidation{Success: false, Testnet: false}
}

// check queries one network and reports whether the transaction matches.
// Every failure mode is a non-match.
func (c *Client) check(ctx context.Context, txid string, testnet bool, expected *ExpectedPayment) bool {
	network, base := "livenet", c.cfg.LivenetURL
	if testnet {
		network, base = "testnet", c.cfg.TestnetURL
	}

	start := time.Now()
	tx, err := c.fetch(ctx, base, txid)
	metrics.ExternalCallDuration.WithLabelValues("oracle").Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("oracle lookup failed", "network", network, "txid", txid, "error", err)
		metrics.OracleLookups.WithLabelValues(network, "error").Inc()
		return false
	}

	ok := matches(tx, expected)
	result := "no_match"
	if ok {
		result = "match"
	}
	metrics.OracleLookups.WithLabelValues(network, result).Inc()
	return ok
}

func (c *Client) fetch(ctx context.Context, base, txid string) (*ledgerTx, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		base+"/api/v2/transaction/"+txid, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-bithomp-token", c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	var tx ledgerTx
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &tx, nil
}

func matches(tx *ledgerTx, expected *ExpectedPayment) bool {
	if tx == nil || tx.Outcome == nil || tx.Outcome.Result != domain.ResultSuccess {
		return false
	}
	if expected == nil {
		// No expectations beyond a successful outcome
		return true
	}
	if tx.Type != domain.TxTypePayment {
		return false
	}
	dest := tx.Specification.Destination
	if dest == nil || dest.Address != expected.Destination {
		return false
	}
	if expected.Tag != nil && (dest.Tag == nil || *dest.Tag != *expected.Tag) {
		return false
	}
	return amountMatches(tx, expected.Amount)
}

func amountMatches(tx *ledgerTx, amount any) bool {
	if amount == nil {
		// No amount in the request, accept any delivered amount
		return true
	}
	delivered := tx.Outcome.DeliveredAmount
	if delivered == nil {
		return false
	}

	if s, ok := amount.(string); ok {
		drops, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			if delivered.Currency != "XRP" {
				return false
			}
			v, err := strconv.ParseFloat(delivered.Value, 64)
			if err != nil {
				return false
			}
			return int64(math.Round(v*xrpl.DropsPerXRP)) == drops
		}
		return false
	}

	// Issued currency: currency, issuer and value must be exactly equal,
	// with no numeric coercion
	currency, issuer, value := issuedAmount(amount)
	return currency != "" &&
		delivered.Currency == currency &&
		delivered.Counterparty == issuer &&
		delivered.Value == value
}

func issuedAmount(amount any) (currency, issuer, value string) {
	m, ok := amount.(map[string]any)
	if !ok {
		return "", "", ""
	}
	currency, _ = m["currency"].(string)
	issuer, _ = m["issuer"].(string)
	value, _ = m["value"].(string)
	return currency, issuer, value
}
