package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

const testAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

func liveProperty() *domain.Property {
	return &domain.Property{
		ID:              "prop-1",
		Name:            "Harborview Lofts",
		Status:          domain.SaleStatusLive,
		TokensRemaining: 1000,
		TotalTokens:     5000,
		TokenPriceUSD:   50,
		KYCRequirement:  domain.KYCNone,
	}
}

func connectedWallet() domain.WalletFacts {
	return domain.WalletFacts{
		Connected: true,
		Address:   testAddress,
		NetworkID: 84532,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEvaluateAllChecksPass(t *testing.T) {
	e := NewEvaluator()

	verdict := e.Evaluate(liveProperty(), connectedWallet(), nil)

	assert.True(t, verdict.CanInvest)
	assert.Empty(t, verdict.Reason)
	assert.False(t, verdict.RequiresIdentityVerification)
}

func TestEvaluateFirstFailureWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		property func() *domain.Property
		wallet   domain.WalletFacts
		identity *domain.IdentityFacts
		reason   string
	}{
		{
			name:     "missing property",
			property: func() *domain.Property { return nil },
			wallet:   connectedWallet(),
			reason:   "Property not found",
		},
		{
			name:     "disconnected wallet",
			property: liveProperty,
			wallet:   domain.WalletFacts{},
			reason:   "Wallet not connected",
		},
		{
			name:     "connected wallet without address",
			property: liveProperty,
			wallet:   domain.WalletFacts{Connected: true},
			reason:   "Wallet not connected",
		},
		{
			name: "paused sale",
			property: func() *domain.Property {
				p := liveProperty()
				p.Status = domain.SaleStatusPaused
				return p
			},
			wallet: connectedWallet(),
			reason: "Property is paused",
		},
		{
			name: "sold out property reports its status",
			property: func() *domain.Property {
				p := liveProperty()
				p.Status = domain.SaleStatusSoldOut
				return p
			},
			wallet: connectedWallet(),
			reason: "Property is sold-out",
		},
		{
			name: "zero supply",
			property: func() *domain.Property {
				p := liveProperty()
				p.TokensRemaining = 0
				return p
			},
			wallet: connectedWallet(),
			reason: "No tokens available",
		},
		{
			name: "sale window not yet open",
			property: func() *domain.Property {
				p := liveProperty()
				p.SaleWindow = &domain.SaleWindow{
					Start: now.Add(time.Hour),
					End:   now.Add(48 * time.Hour),
				}
				return p
			},
			wallet: connectedWallet(),
			reason: "Token sale is not active",
		},
		{
			name: "sale window closed",
			property: func() *domain.Property {
				p := liveProperty()
				p.SaleWindow = &domain.SaleWindow{
					Start: now.Add(-48 * time.Hour),
					End:   now.Add(-time.Hour),
				}
				return p
			},
			wallet: connectedWallet(),
			reason: "Token sale is not active",
		},
		{
			name: "permit required with unknown identity",
			property: func() *domain.Property {
				p := liveProperty()
				p.KYCRequirement = domain.KYCJurisdictionPermit
				return p
			},
			wallet: connectedWallet(),
			reason: "Jurisdiction permit required for this property",
		},
		{
			name: "permit required without permit",
			property: func() *domain.Property {
				p := liveProperty()
				p.KYCRequirement = domain.KYCJurisdictionPermit
				return p
			},
			wallet:   connectedWallet(),
			identity: &domain.IdentityFacts{Address: testAddress, Valid: true, HasPermit: false},
			reason:   "Jurisdiction permit required for this property",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluatorAt(fixedClock(now))

			verdict := e.Evaluate(tt.property(), tt.wallet, tt.identity)

			require.False(t, verdict.CanInvest)
			assert.Equal(t, tt.reason, verdict.Reason)
		})
	}
}

func TestEvaluateWalletPrecedesStatus(t *testing.T) {
	// A disconnected wallet and a paused sale at the same time must report
	// the wallet problem: the user's next step is connecting, not waiting.
	p := liveProperty()
	p.Status = domain.SaleStatusPaused

	e := NewEvaluator()
	verdict := e.Evaluate(p, domain.WalletFacts{}, nil)

	require.False(t, verdict.CanInvest)
	assert.Equal(t, "Wallet not connected", verdict.Reason)
}

func TestEvaluatePermitSatisfied(t *testing.T) {
	p := liveProperty()
	p.KYCRequirement = domain.KYCJurisdictionPermit
	identity := &domain.IdentityFacts{Address: testAddress, Valid: true, HasPermit: true}

	e := NewEvaluator()
	verdict := e.Evaluate(p, connectedWallet(), identity)

	assert.True(t, verdict.CanInvest)
	assert.Empty(t, verdict.Reason)
}

func TestEvaluatePermitVerdictLinksToVerification(t *testing.T) {
	p := liveProperty()
	p.KYCRequirement = domain.KYCJurisdictionPermit

	e := NewEvaluator()
	verdict := e.Evaluate(p, connectedWallet(), nil)

	require.False(t, verdict.CanInvest)
	assert.True(t, verdict.RequiresIdentityVerification)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEvaluatorAt(fixedClock(now))
	p := liveProperty()
	w := connectedWallet()

	first := e.Evaluate(p, w, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Evaluate(p, w, nil))
	}
}

func TestEvaluateOpenEndedSaleWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEvaluatorAt(fixedClock(now))

	p := liveProperty()
	p.SaleWindow = &domain.SaleWindow{Start: now.Add(-time.Hour)}

	verdict := e.Evaluate(p, connectedWallet(), nil)
	assert.True(t, verdict.CanInvest)
}
