package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/brickvest-labs/brickvest/internal/crypto"
	"github.com/brickvest-labs/brickvest/internal/domain"
)

// Relayer is a TxSubmitter that submits real purchase transactions through
// an HMAC-authenticated relayer service, which signs and broadcasts the
// contract call on the platform's behalf.
type Relayer struct {
	baseURL    string
	auth       *crypto.HMACAuth
	httpClient *http.Client
}

// NewRelayer creates a Relayer client. auth may be nil when the relayer
// does not require request signing (local development).
func NewRelayer(baseURL string, auth *crypto.HMACAuth) *Relayer {
	return &Relayer{
		baseURL: baseURL,
		auth:    auth,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// submitResponse is the relayer's acceptance payload.
type submitResponse struct {
	TransactionHash string `json:"transaction_hash"`
	Error           string `json:"error"`
}

// Submit sends the purchase request to the relayer and returns the
// transaction hash as the attempt reference.
func (r *Relayer) Submit(ctx context.Context, req domain.SubmitRequest) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"property_id":    req.PropertyID,
		"token_amount":   req.TokenAmount,
		"wallet_address": req.Wallet,
	})
	if err != nil {
		return "", fmt.Errorf("chain: relayer marshal: %w", err)
	}

	body, err := r.do(ctx, http.MethodPost, "/transactions/purchase", payload)
	if err != nil {
		return "", fmt.Errorf("chain: relayer submit: %w", err)
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("chain: relayer decode submit: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("chain: relayer rejected: %s", resp.Error)
	}
	if !isTxHash(resp.TransactionHash) {
		return "", fmt.Errorf("chain: relayer returned malformed hash %q", resp.TransactionHash)
	}
	return resp.TransactionHash, nil
}

// statusResponse is the relayer's confirmation payload.
type statusResponse struct {
	Status      string `json:"status"`
	BlockNumber int64  `json:"block_number"`
}

// Status asks the relayer for the confirmation state of a transaction.
func (r *Relayer) Status(ctx context.Context, reference string) (domain.TxStatus, error) {
	body, err := r.do(ctx, http.MethodGet, "/transactions/status/"+url.PathEscape(reference), nil)
	if err != nil {
		return "", fmt.Errorf("chain: relayer status %s: %w", reference, err)
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("chain: relayer decode status: %w", err)
	}

	switch resp.Status {
	case "pending":
		return domain.TxStatusPending, nil
	case "success", "succeeded":
		return domain.TxStatusSucceeded, nil
	case "failed", "reverted":
		return domain.TxStatusFailed, nil
	default:
		return "", fmt.Errorf("chain: relayer status %s: unknown status %q", reference, resp.Status)
	}
}

func (r *Relayer) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.auth != nil {
		for k, v := range r.auth.Headers(method, path, string(payload)) {
			req.Header.Set(k, v)
		}
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
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

// isTxHash reports whether s parses as a 32-byte transaction hash.
func isTxHash(s string) bool {
	b, err := hexutil.Decode(s)
	return err == nil && len(b) == common.HashLength
}

var _ domain.TxSubmitter = (*Relayer)(nil)
