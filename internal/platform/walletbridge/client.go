// Package walletbridge is the REST client for the wallet-bridge service,
// the process that holds the actual wallet-provider session on behalf of the
// UI. Provider error codes follow EIP-1193 conventions and are mapped onto
// domain sentinel errors.
package walletbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// EIP-1193 provider error codes surfaced by the bridge.
const (
	codeUserRejected   = 4001
	codeUnknownNetwork = 4902
)

// Client talks to the wallet-bridge REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a wallet-bridge client for the given API root.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// walletResponse is the bridge's wallet snapshot payload.
type walletResponse struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address"`
	ChainID   int64  `json:"chain_id"`
}

// providerError is the bridge's error envelope for wallet-provider failures.
type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetWalletFacts fetches the current wallet connection snapshot.
func (c *Client) GetWalletFacts(ctx context.Context) (domain.WalletFacts, error) {
	body, err := c.do(ctx, http.MethodGet, "/wallet", nil)
	if err != nil {
		return domain.WalletFacts{}, fmt.Errorf("walletbridge: get facts: %w", err)
	}

	var resp walletResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.WalletFacts{}, fmt.Errorf("walletbridge: decode facts: %w", err)
	}

	facts := domain.WalletFacts{
		Connected: resp.Connected,
		NetworkID: resp.ChainID,
	}
	if resp.Address != "" && common.IsHexAddress(resp.Address) {
		facts.Address = common.HexToAddress(resp.Address).Hex()
	}
	return facts, nil
}

// SwitchNetwork asks the bridge to change the wallet's active network.
func (c *Client) SwitchNetwork(ctx context.Context, networkID int64) error {
	payload := map[string]any{
		"chain_id": hexutil.EncodeBig(big.NewInt(networkID)),
	}
	if _, err := c.do(ctx, http.MethodPost, "/wallet/switch", payload); err != nil {
		return fmt.Errorf("walletbridge: switch to %d: %w", networkID, err)
	}
	return nil
}

// RegisterNetwork asks the bridge to add the network to the wallet. A
// successful registration also activates the network.
func (c *Client) RegisterNetwork(ctx context.Context, desc domain.NetworkDescriptor) error {
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("walletbridge: register network: %w", err)
	}

	// wallet_addEthereumChain-shaped payload.
	payload := map[string]any{
		"chain_id":   hexutil.EncodeBig(big.NewInt(desc.ChainID)),
		"chain_name": desc.Name,
		"native_currency": map[string]any{
			"name":     desc.Currency.Name,
			"symbol":   desc.Currency.Symbol,
			"decimals": desc.Currency.Decimals,
		},
		"rpc_urls":            desc.RPCURLs,
		"block_explorer_urls": []string{desc.ExplorerURL},
		"icon_urls":           []string{desc.IconURL},
	}
	if _, err := c.do(ctx, http.MethodPost, "/wallet/register", payload); err != nil {
		return fmt.Errorf("walletbridge: register %d: %w", desc.ChainID, err)
	}
	return nil
}

// do issues a request and maps provider error codes onto domain sentinels.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var pe providerError
		if json.Unmarshal(respBody, &pe) == nil {
			switch pe.Error.Code {
			case codeUserRejected:
				return nil, fmt.Errorf("%w: %s", domain.ErrUserDeclined, pe.Error.Message)
			case codeUnknownNetwork:
				return nil, fmt.Errorf("%w: %s", domain.ErrUnknownNetwork, pe.Error.Message)
			}
			if pe.Error.Message != "" {
				return nil, fmt.Errorf("provider error %d: %s", pe.Error.Code, pe.Error.Message)
			}
		}
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, respBody)
	}

	return respBody, nil
}

var _ domain.WalletProvider = (*Client)(nil)
