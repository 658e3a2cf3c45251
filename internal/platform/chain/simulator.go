// Package chain provides TxSubmitter implementations: a latency-faithful
// simulator and an HTTP relayer for real on-chain submission.
package chain

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// SimulatorConfig tunes the simulated chain latencies.
type SimulatorConfig struct {
	// SubmitLatency is how long Submit blocks before returning a reference,
	// mimicking the wallet prompt plus mempool acceptance.
	SubmitLatency time.Duration
	// ConfirmLatency is how long after submission Status starts reporting
	// the transaction as settled.
	ConfirmLatency time.Duration
	// RejectSubmissions makes every Submit fail as a user decline.
	RejectSubmissions bool
	// RevertConfirmations makes every settled transaction report failed.
	RevertConfirmations bool
}

// Simulator is a TxSubmitter that mimics chain behavior without touching a
// network: submissions yield deterministic-looking references and settle
// after a configurable delay.
type Simulator struct {
	cfg SimulatorConfig

	mu        sync.Mutex
	submitted map[string]time.Time // reference -> submission time
}

// NewSimulator creates a Simulator. Zero latencies default to values that
// feel like a fast testnet.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.SubmitLatency <= 0 {
		cfg.SubmitLatency = 2 * time.Second
	}
	if cfg.ConfirmLatency <= 0 {
		cfg.ConfirmLatency = 5 * time.Second
	}
	return &Simulator{
		cfg:       cfg,
		submitted: make(map[string]time.Time),
	}
}

// Submit accepts the purchase request after the configured latency and
// returns a fresh transaction reference.
func (s *Simulator) Submit(ctx context.Context, req domain.SubmitRequest) (string, error) {
	if req.TokenAmount <= 0 {
		return "", domain.ErrInvalidAmount
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(s.cfg.SubmitLatency):
	}

	if s.cfg.RejectSubmissions {
		return "", domain.ErrUserDeclined
	}

	var buf [common.HashLength]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("chain: simulator reference: %w", err)
	}
	reference := common.BytesToHash(buf[:]).Hex()

	s.mu.Lock()
	s.submitted[reference] = time.Now()
	s.mu.Unlock()

	return reference, nil
}

// Status reports pending until the confirmation latency has elapsed, then
// settles the transaction.
func (s *Simulator) Status(ctx context.Context, reference string) (domain.TxStatus, error) {
	s.mu.Lock()
	at, ok := s.submitted[reference]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("chain: simulator status %q: %w", reference, domain.ErrNotFound)
	}

	if time.Since(at) < s.cfg.ConfirmLatency {
		return domain.TxStatusPending, nil
	}
	if s.cfg.RevertConfirmations {
		return domain.TxStatusFailed, nil
	}
	return domain.TxStatusSucceeded, nil
}

var _ domain.TxSubmitter = (*Simulator)(nil)
