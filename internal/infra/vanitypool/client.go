package vanitypool

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/metrics"
)

// Config holds vanity pool settings. The secret signs every request.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client talks to the pre-generated vanity address pool. Requests are
// authenticated with a request hash tied to the queried value.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new vanity pool client.
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

// requestHash derives the x-hash header for one operation and value.
func (c *Client) requestHash(op, value string) string {
	sum := sha256.Sum256([]byte(op + value + c.cfg.Secret))
	return hex.EncodeToString(sum[:])
}

func (c *Client) get(ctx context.Context, op, value string, out any) error {
	endpoint := c.cfg.BaseURL + "/" + op + "/" + url.PathEscape(value)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-hash", c.requestHash(op, value))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ExternalCallDuration.WithLabelValues("vanity_pool").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("vanity pool call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vanity pool %s: http %d: %s", op, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Search returns pool addresses containing the given search word.
func (c *Client) Search(ctx context.Context, searchWord string) (*domain.AddressResult, error) {
	var res domain.AddressResult
	if err := c.get(ctx, "search", searchWord, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Secret returns the seed of a reserved pool address. The seed is handed to
// the ledger once during activation and never persisted.
func (c *Client) Secret(ctx context.Context, address string) (string, error) {
	var res struct {
		Secret string `json:"secret"`
	}
	if err := c.get(ctx, "secret", address, &res); err != nil {
		return "", err
	}
	if res.Secret == "" {
		return "", fmt.Errorf("no secret for address %s", address)
	}
	return res.Secret, nil
}

// Purge removes an address from the pool after its activation settled.
func (c *Client) Purge(ctx context.Context, address string) error {
	return c.get(ctx, "purge", address, nil)
}
