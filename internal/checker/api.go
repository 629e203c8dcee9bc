package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"visa-appointment-backend/config"
	"visa-appointment-backend/internal/store"
)

// Client fetches the visa-list payload from the upstream API.
type Client struct {
	url    string
	client *http.Client
}

// NewClient builds the upstream API client with the configured timeout and
// optional proxy.
func NewClient(cfg *config.CheckerConfig, log zerolog.Logger) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn().Err(err).Str("proxy", cfg.HTTPProxy).Msg("invalid proxy URL, fetching without a proxy")
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Client{
		url: cfg.URL,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// FetchVisaList performs one GET against the appointments API. It returns
// the raw body (archived verbatim on novelty) alongside the decoded
// entries. A non-200 status or transport error is a fetch failure.
func (c *Client) FetchVisaList(ctx context.Context) ([]byte, []store.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var entries []store.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal visa list: %w", err)
	}

	return body, entries, nil
}
