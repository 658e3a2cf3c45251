package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// IdentityFactsService fetches verified-identity status from the KYC
// gateway. Results are not cached here: facts live only for the evaluation
// that requested them, and the gateway owns the durable record.
type IdentityFactsService struct {
	gateway domain.IdentityService
	logger  *slog.Logger
}

// NewIdentityFactsService creates an IdentityFactsService.
func NewIdentityFactsService(gateway domain.IdentityService, logger *slog.Logger) *IdentityFactsService {
	return &IdentityFactsService{
		gateway: gateway,
		logger:  logger.With(slog.String("component", "identity_service")),
	}
}

// GetIdentityFacts returns the facts for an address. An empty address or a
// gateway failure yields an error; callers treat that as unknown facts,
// which fail closed during eligibility evaluation.
func (s *IdentityFactsService) GetIdentityFacts(ctx context.Context, address string) (*domain.IdentityFacts, error) {
	if address == "" {
		return nil, domain.ErrWalletNotConnected
	}
	facts, err := s.gateway.GetIdentityFacts(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("identity_service: facts for %q: %w", address, err)
	}
	return facts, nil
}

var _ domain.IdentityService = (*IdentityFactsService)(nil)
