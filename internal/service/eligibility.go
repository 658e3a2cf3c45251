package service

import (
	"fmt"
	"time"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// eligibilityCheck is one veto in the evaluation chain. Checks run in
// declaration order and the first failing one decides the verdict, so the
// ordering below is a contract with the UI: "Wallet not connected" must be
// reported before any KYC prompt, and so on.
type eligibilityCheck struct {
	name string
	run  func(in eligibilityInput) *domain.EligibilityVerdict
}

type eligibilityInput struct {
	property *domain.Property
	wallet   domain.WalletFacts
	identity *domain.IdentityFacts
	now      time.Time
}

// Evaluator computes investment-eligibility verdicts. It is a pure function
// over its inputs: no I/O, no stored state, never an error return. The clock
// is injectable for sale-window tests.
type Evaluator struct {
	now    func() time.Time
	checks []eligibilityCheck
}

// NewEvaluator creates an Evaluator using the wall clock.
func NewEvaluator() *Evaluator {
	return NewEvaluatorAt(time.Now)
}

// NewEvaluatorAt creates an Evaluator with an injected clock.
func NewEvaluatorAt(now func() time.Time) *Evaluator {
	e := &Evaluator{now: now}
	e.checks = []eligibilityCheck{
		{name: "property", run: checkPropertyPresent},
		{name: "wallet", run: checkWalletConnected},
		{name: "status", run: checkSaleLive},
		{name: "supply", run: checkTokensAvailable},
		{name: "window", run: checkSaleWindow},
		{name: "kyc", run: checkKYCRequirement},
	}
	return e
}

// Evaluate returns the verdict for investing in property with the given
// wallet and identity snapshots. identity may be nil (unknown facts); the
// KYC check fails closed in that case.
func (e *Evaluator) Evaluate(property *domain.Property, wallet domain.WalletFacts, identity *domain.IdentityFacts) domain.EligibilityVerdict {
	in := eligibilityInput{
		property: property,
		wallet:   wallet,
		identity: identity,
		now:      e.now(),
	}
	for _, c := range e.checks {
		if v := c.run(in); v != nil {
			return *v
		}
	}
	return domain.EligibilityVerdict{CanInvest: true}
}

func deny(reason string) *domain.EligibilityVerdict {
	return &domain.EligibilityVerdict{CanInvest: false, Reason: reason}
}

func checkPropertyPresent(in eligibilityInput) *domain.EligibilityVerdict {
	if in.property == nil {
		return deny("Property not found")
	}
	return nil
}

func checkWalletConnected(in eligibilityInput) *domain.EligibilityVerdict {
	if !in.wallet.HasAddress() {
		return deny("Wallet not connected")
	}
	return nil
}

func checkSaleLive(in eligibilityInput) *domain.EligibilityVerdict {
	if in.property.Status != domain.SaleStatusLive {
		return deny(fmt.Sprintf("Property is %s", in.property.Status))
	}
	return nil
}

func checkTokensAvailable(in eligibilityInput) *domain.EligibilityVerdict {
	if in.property.TokensRemaining <= 0 {
		return deny("No tokens available")
	}
	return nil
}

func checkSaleWindow(in eligibilityInput) *domain.EligibilityVerdict {
	if w := in.property.SaleWindow; w != nil && !w.Contains(in.now) {
		return deny("Token sale is not active")
	}
	return nil
}

func checkKYCRequirement(in eligibilityInput) *domain.EligibilityVerdict {
	if in.property.KYCRequirement != domain.KYCJurisdictionPermit {
		return nil
	}
	if !in.identity.MeetsPermitRequirement() {
		return &domain.EligibilityVerdict{
			CanInvest:                    false,
			Reason:                       "Jurisdiction permit required for this property",
			RequiresIdentityVerification: true,
		}
	}
	return nil
}
