package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/metrics"
)

// Config holds wallet API settings. Credentials are per tenant, so only the
// endpoint and timeout live here.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client talks to the wallet-signing API. Every call carries a tenant's key
// pair, so the same client serves all tenants.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new wallet API client.
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

// do performs one authenticated call and decodes the response into out. A nil
// out discards the body.
func (c *Client) do(
	ctx context.Context,
	method, path, appID, apiSecret string,
	body, out any,
) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", appID)
	req.Header.Set("x-api-secret", apiSecret)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ExternalCallDuration.WithLabelValues("wallet").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("wallet api call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("wallet api %s %s: http %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Ping verifies the endpoint and credentials of one tenant.
func (c *Client) Ping(ctx context.Context, appID, apiSecret string) error {
	return c.do(ctx, http.MethodGet, "/platform/ping", appID, apiSecret, nil, nil)
}

// CreatePayload submits a payload draft for signing.
func (c *Client) CreatePayload(
	ctx context.Context,
	appID, apiSecret string,
	draft *domain.PayloadDraft,
) (*domain.SubmitResponse, error) {
	var res domain.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/platform/payload", appID, apiSecret, draft, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetPayload fetches the full detail of a previously submitted payload.
func (c *Client) GetPayload(
	ctx context.Context,
	appID, apiSecret, payloadID string,
) (*domain.SignedPayload, error) {
	var res domain.SignedPayload
	if err := c.do(ctx, http.MethodGet, "/platform/payload/"+payloadID, appID, apiSecret, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetPayloadRaw fetches a payload detail without interpreting it. Used by the
// pass-through endpoints.
func (c *Client) GetPayloadRaw(
	ctx context.Context,
	appID, apiSecret, payloadID string,
) (json.RawMessage, error) {
	var res json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/platform/payload/"+payloadID, appID, apiSecret, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// DeletePayload cancels a pending payload.
func (c *Client) DeletePayload(
	ctx context.Context,
	appID, apiSecret, payloadID string,
) (json.RawMessage, error) {
	var res json.RawMessage
	if err := c.do(ctx, http.MethodDelete, "/platform/payload/"+payloadID, appID, apiSecret, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetAppOTT resolves an in-app one-time token.
func (c *Client) GetAppOTT(
	ctx context.Context,
	appID, apiSecret, token string,
) (json.RawMessage, error) {
	var res json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/platform/xapp/ott/"+token, appID, apiSecret, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// SendEvent forwards an in-app event notification.
func (c *Client) SendEvent(
	ctx context.Context,
	appID, apiSecret string,
	body json.RawMessage,
) (json.RawMessage, error) {
	var res json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/platform/xapp/event", appID, apiSecret, body, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// SendPush forwards a push notification request.
func (c *Client) SendPush(
	ctx context.Context,
	appID, apiSecret string,
	body json.RawMessage,
) (json.RawMessage, error) {
	var res json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/platform/xapp/push", appID, apiSecret, body, &res); err != nil {
		return nil, err
	}
	return res, nil
}
