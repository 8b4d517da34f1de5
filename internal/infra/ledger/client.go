package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/metrics"
)

// Config holds XRPL node settings.
type Config struct {
	// SubmitURL is the JSON-RPC endpoint used for ledger-mutating
	// operations.
	SubmitURL string `yaml:"submit_url"`

	// RateURL is the JSON-RPC endpoint holding the reference trustline used
	// for price conversion.
	RateURL      string `yaml:"rate_url"`
	RateAccount  string `yaml:"rate_account"`
	RateCurrency string `yaml:"rate_currency"`

	Timeout time.Duration `yaml:"timeout"`
}

// Client talks JSON-RPC to XRPL nodes. Mutating operations use the node's
// sign-and-submit mode, so account secrets never need local key handling.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new ledger client.
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

// call makes a single JSON-RPC call against the given endpoint.
func (c *Client) call(
	ctx context.Context,
	endpoint, method string,
	params map[string]any,
) (json.RawMessage, error) {
	reqBody := map[string]any{
		"method": method,
		"params": []any{params},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ExternalCallDuration.WithLabelValues("ledger").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var status struct {
		Status       string `json:"status"`
		Error        string `json:"error"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(rpcResp.Result, &status); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	if status.Status == "error" {
		if status.ErrorMessage != "" {
			return nil, fmt.Errorf("rpc error: %s (%s)", status.Error, status.ErrorMessage)
		}
		return nil, fmt.Errorf("rpc error: %s", status.Error)
	}

	return rpcResp.Result, nil
}

// checkAlive is the connection-health guard invoked before each mutating
// call.
func (c *Client) checkAlive(ctx context.Context) error {
	_, err := c.call(ctx, c.cfg.SubmitURL, "server_info", map[string]any{})
	if err != nil {
		return fmt.Errorf("ledger node unavailable: %w", err)
	}
	return nil
}

type submitResult struct {
	EngineResult string `json:"engine_result"`
	TxJSON       struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

// submit sends one sign-and-submit request.
func (c *Client) submit(ctx context.Context, secret string, txJSON map[string]any) (*submitResult, error) {
	raw, err := c.call(ctx, c.cfg.SubmitURL, "submit", map[string]any{
		"secret":  secret,
		"tx_json": txJSON,
	})
	if err != nil {
		return nil, err
	}

	var res submitResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("parse submit result: %w", err)
	}
	return &res, nil
}

// submitWithRetry submits a transaction with exactly one same-process retry
// on a non-success engine result. Transport errors are not retried.
func (c *Client) submitWithRetry(
	ctx context.Context,
	operation, secret string,
	txJSON map[string]any,
) (*submitResult, error) {
	if err := c.checkAlive(ctx); err != nil {
		metrics.LedgerSubmits.WithLabelValues(operation, "unavailable").Inc()
		return nil, err
	}

	var res *submitResult
	backoff := retry.WithMaxRetries(1, retry.NewConstant(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := c.submit(ctx, secret, txJSON)
		if err != nil {
			return err
		}
		res = r
		if r.EngineResult != domain.ResultSuccess {
			slog.Warn("ledger submit returned non-success result",
				"operation", operation, "result", r.EngineResult)
			return retry.RetryableError(fmt.Errorf("engine result %s", r.EngineResult))
		}
		return nil
	})
	if err != nil {
		metrics.LedgerSubmits.WithLabelValues(operation, "failed").Inc()
		return res, err
	}

	metrics.LedgerSubmits.WithLabelValues(operation, "success").Inc()
	return res, nil
}

// SetRegularKey rekeys an account to the given regular key, signed with the
// account's own secret.
func (c *Client) SetRegularKey(
	ctx context.Context,
	account, secret, regularKey string,
) domain.TransactionValidation {
	res, err := c.submitWithRetry(ctx, "set_regular_key", secret, map[string]any{
		"TransactionType": "SetRegularKey",
		"Account":         account,
		"RegularKey":      regularKey,
	})
	if err != nil {
		slog.Error("rekey failed", "account", account, "regular_key", regularKey, "error", err)
		return domain.TransactionValidation{
			Success: false,
			Account: regularKey,
			Message: fmt.Sprintf("Account %s could not be rekeyed with %s", account, regularKey),
		}
	}

	return domain.TransactionValidation{
		Success: true,
		TxID:    res.TxJSON.Hash,
		Account: regularKey,
		Message: fmt.Sprintf("Account %s rekeyed with: %s", account, regularKey),
	}
}

// DisableMasterKey disables the master key of an account, signed with the
// account's own secret. Only valid once a regular key is in place.
func (c *Client) DisableMasterKey(
	ctx context.Context,
	account, secret string,
) domain.TransactionValidation {
	// asfDisableMaster
	res, err := c.submitWithRetry(ctx, "disable_master_key", secret, map[string]any{
		"TransactionType": "AccountSet",
		"Account":         account,
		"SetFlag":         4,
	})
	if err != nil {
		slog.Error("disable master key failed", "account", account, "error", err)
		return domain.TransactionValidation{
			Success: false,
			Message: fmt.Sprintf("Can not disable master key of account: %s", account),
		}
	}

	return domain.TransactionValidation{
		Success: true,
		TxID:    res.TxJSON.Hash,
		Message: fmt.Sprintf("Master Key disabled for account: %s", account),
	}
}

// TrustlineLimit reads the limit of the reference trustline, which doubles as
// the reference-currency/XRP conversion rate.
func (c *Client) TrustlineLimit(ctx context.Context) (float64, error) {
	raw, err := c.call(ctx, c.cfg.RateURL, "account_lines", map[string]any{
		"account": c.cfg.RateAccount,
	})
	if err != nil {
		return 0, err
	}

	var res struct {
		Lines []struct {
			Currency string `json:"currency"`
			Limit    string `json:"limit"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return 0, fmt.Errorf("parse account lines: %w", err)
	}

	for _, line := range res.Lines {
		if line.Currency != c.cfg.RateCurrency {
			continue
		}
		limit, err := strconv.ParseFloat(line.Limit, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid trustline limit %q: %w", line.Limit, err)
		}
		return limit, nil
	}

	return 0, fmt.Errorf("no %s trustline on %s", c.cfg.RateCurrency, c.cfg.RateAccount)
}
