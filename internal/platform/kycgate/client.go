// Package kycgate is the REST client for the KYC gateway, which owns
// identity verification state. This service only reads verdicts and proxies
// submission payloads; document storage and review happen in the gateway.
package kycgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// Client talks to the KYC gateway REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a KYC gateway client. apiKey may be empty when the gateway
// does not require service authentication.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// statusResponse is the gateway's verdict payload for one address.
type statusResponse struct {
	Address             string `json:"address"`
	KYCValid            bool   `json:"kyc_valid"`
	HasJurisdictionPermit bool `json:"has_jurisdiction_permit"`
}

// GetIdentityFacts fetches the verified-identity status for an address.
func (c *Client) GetIdentityFacts(ctx context.Context, address string) (*domain.IdentityFacts, error) {
	path := "/kyc/status/" + url.PathEscape(address)
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("kycgate: status for %q: %w", address, err)
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kycgate: decode status: %w", err)
	}

	return &domain.IdentityFacts{
		Address:   address,
		Valid:     resp.KYCValid,
		HasPermit: resp.HasJurisdictionPermit,
	}, nil
}

// SubmitVerification forwards a verification submission to the gateway on
// behalf of the UI. The payload is passed through opaque; the gateway
// validates and stores it.
func (c *Client) SubmitVerification(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodPost, "/kyc/submit", payload)
	if err != nil {
		return nil, fmt.Errorf("kycgate: submit verification: %w", err)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, respBody)
	}

	return respBody, nil
}

var _ domain.IdentityService = (*Client)(nil)
