// Package offerings is the REST client for the property/offering service,
// which owns and mutates property sale state.
package offerings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// Client talks to the offerings REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an offerings client for the given API root.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetProperty fetches the sale state for one property.
func (c *Client) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	body, err := c.get(ctx, "/properties/"+url.PathEscape(id))
	if err != nil {
		return domain.Property{}, fmt.Errorf("offerings: get property %q: %w", id, err)
	}

	var p domain.Property
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Property{}, fmt.Errorf("offerings: decode property %q: %w", id, err)
	}
	return p, nil
}

// ListLive fetches all properties currently in a live sale.
func (c *Client) ListLive(ctx context.Context) ([]domain.Property, error) {
	body, err := c.get(ctx, "/properties?status=live")
	if err != nil {
		return nil, fmt.Errorf("offerings: list live: %w", err)
	}

	var resp struct {
		Properties []domain.Property `json:"properties"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("offerings: decode property list: %w", err)
	}
	return resp.Properties, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, body)
	}

	return body, nil
}

var _ domain.PropertyService = (*Client)(nil)
