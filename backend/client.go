package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pozitronik/viscrapper/internal/types"
)

// Client is an HTTP Store with rate limiting and retries.
type Client struct {
	baseURL string
	client  *http.Client
	config  *types.Config
	logger  types.Logger
	limiter *time.Ticker
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, config *types.Config, logger types.Logger) *Client {
	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		config:  config,
		logger:  logger,
		limiter: time.NewTicker(config.RequestDelay),
	}
}

// FindBySKU fetches a record by SKU. Returns ErrRecordNotFound when the
// backend has none.
func (c *Client) FindBySKU(ctx context.Context, sku string) (*types.ProductVariant, error) {
	endpoint := fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, url.PathEscape(sku))

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var variant types.ProductVariant
	if err := json.Unmarshal(body, &variant); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}

	return &variant, nil
}

// Submit posts an extracted record to the backend.
func (c *Client) Submit(ctx context.Context, variant types.ProductVariant) error {
	payload, err := json.Marshal(variant)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/products"
	if _, err := c.do(ctx, http.MethodPost, endpoint, payload); err != nil {
		return err
	}

	return nil
}

// do performs a rate-limited request with retries. Server errors and
// transport failures are retried; client errors are terminal.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		select {
		case <-c.limiter.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.logger.Debugf("%s %s (attempt %d/%d)", method, endpoint, attempt+1, c.config.MaxRetries+1)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.Warnf("Backend request failed (attempt %d): %v", attempt+1, err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrRecordNotFound
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("backend returned status %d", resp.StatusCode)
			c.logger.Warnf("Backend returned status %d (attempt %d)", resp.StatusCode, attempt+1)
			continue
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("backend rejected request: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)
			c.logger.Warnf("Failed to read backend response (attempt %d): %v", attempt+1, readErr)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("all retry attempts failed: %w", lastErr)
}

// Close stops the rate limiter.
func (c *Client) Close() {
	c.limiter.Stop()
}
