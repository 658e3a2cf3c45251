package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

const (
	// defaultPollInterval is how often a Pending attempt asks the submitter
	// for confirmation.
	defaultPollInterval = 2 * time.Second

	// purchase-start rate limit per wallet.
	startLimit  = 5
	startWindow = time.Minute
)

// PurchaseService drives purchase attempts through their lifecycle:
// Idle -> Gating -> Submitting -> Pending -> Succeeded | Failed.
// It enforces the eligibility gate before submission and at most one
// in-flight attempt per wallet session. Terminal states are sticky; a new
// purchase always allocates a new attempt identity.
type PurchaseService struct {
	eval       *Evaluator
	provider   domain.WalletProvider
	properties domain.PropertyService
	identities domain.IdentityService
	submitter  domain.TxSubmitter
	store      domain.PurchaseStore
	audit      domain.AuditStore
	bus        domain.SignalBus
	limiter    domain.RateLimiter
	archiver   domain.ReceiptArchiver
	logger     *slog.Logger

	pollInterval time.Duration

	mu       sync.Mutex
	attempts map[string]*domain.PurchaseAttempt // by attempt ID
	sessions map[string]string                  // wallet -> latest attempt ID
}

// NewPurchaseService creates a PurchaseService with all required
// collaborators. The receipt archiver is optional and attached with
// WithArchiver.
func NewPurchaseService(
	eval *Evaluator,
	provider domain.WalletProvider,
	properties domain.PropertyService,
	identities domain.IdentityService,
	submitter domain.TxSubmitter,
	store domain.PurchaseStore,
	audit domain.AuditStore,
	bus domain.SignalBus,
	limiter domain.RateLimiter,
	logger *slog.Logger,
) *PurchaseService {
	return &PurchaseService{
		eval:         eval,
		provider:     provider,
		properties:   properties,
		identities:   identities,
		submitter:    submitter,
		store:        store,
		audit:        audit,
		bus:          bus,
		limiter:      limiter,
		logger:       logger.With(slog.String("component", "purchase_service")),
		pollInterval: defaultPollInterval,
		attempts:     make(map[string]*domain.PurchaseAttempt),
		sessions:     make(map[string]string),
	}
}

// WithArchiver attaches a receipt archiver; terminal attempts are then
// exported to cold storage.
func (s *PurchaseService) WithArchiver(a domain.ReceiptArchiver) *PurchaseService {
	s.archiver = a
	return s
}

// SetPollInterval overrides the Pending confirmation poll interval. Must be
// called before Start.
func (s *PurchaseService) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.pollInterval = d
	}
}

// Start initiates a purchase attempt for the connected wallet. It returns
// the new attempt in its initial state; the lifecycle advances in the
// background and is observed through Get. A second Start while an attempt
// is non-terminal returns domain.ErrPurchaseInFlight.
func (s *PurchaseService) Start(ctx context.Context, propertyID string, tokenAmount int64) (domain.PurchaseAttempt, error) {
	if tokenAmount <= 0 {
		return domain.PurchaseAttempt{}, domain.ErrInvalidAmount
	}

	facts, err := s.provider.GetWalletFacts(ctx)
	if err != nil {
		return domain.PurchaseAttempt{}, fmt.Errorf("purchase_service: wallet facts: %w", err)
	}
	if !facts.HasAddress() {
		return domain.PurchaseAttempt{}, domain.ErrWalletNotConnected
	}
	wallet := strings.ToLower(facts.Address)

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "purchase:"+wallet, startLimit, startWindow)
		if err != nil {
			return domain.PurchaseAttempt{}, fmt.Errorf("purchase_service: rate limiter: %w", err)
		}
		if !allowed {
			return domain.PurchaseAttempt{}, domain.ErrRateLimited
		}
	}

	s.mu.Lock()
	if prevID, ok := s.sessions[wallet]; ok {
		if prev, ok := s.attempts[prevID]; ok && prev.InFlight() {
			s.mu.Unlock()
			return domain.PurchaseAttempt{}, domain.ErrPurchaseInFlight
		}
	}
	attempt := &domain.PurchaseAttempt{
		ID:          uuid.New().String(),
		PropertyID:  propertyID,
		Wallet:      wallet,
		TokenAmount: tokenAmount,
		State:       domain.PurchaseIdle,
		CreatedAt:   time.Now().UTC(),
	}
	s.attempts[attempt.ID] = attempt
	s.sessions[wallet] = attempt.ID
	snapshot := *attempt
	s.mu.Unlock()

	if err := s.store.Create(ctx, snapshot); err != nil {
		// Release the session slot; the attempt never ran.
		s.mu.Lock()
		delete(s.attempts, attempt.ID)
		delete(s.sessions, wallet)
		s.mu.Unlock()
		return domain.PurchaseAttempt{}, fmt.Errorf("purchase_service: persist attempt: %w", err)
	}

	s.logger.InfoContext(ctx, "purchase_service: attempt started",
		slog.String("attempt_id", attempt.ID),
		slog.String("property", propertyID),
		slog.Int64("amount", tokenAmount),
		slog.String("wallet", wallet),
	)

	// The caller's request finishes immediately; the attempt keeps running
	// until it reaches a terminal state.
	go s.run(context.WithoutCancel(ctx), attempt.ID, facts)

	return snapshot, nil
}

// Get returns the current snapshot of an attempt, falling back to the
// durable store for attempts no longer held in memory.
func (s *PurchaseService) Get(ctx context.Context, id string) (domain.PurchaseAttempt, error) {
	s.mu.Lock()
	if a, ok := s.attempts[id]; ok {
		snapshot := *a
		s.mu.Unlock()
		return snapshot, nil
	}
	s.mu.Unlock()

	attempt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.PurchaseAttempt{}, fmt.Errorf("purchase_service: get attempt %q: %w", id, err)
	}
	return attempt, nil
}

// Dismiss drops a terminal attempt from the in-memory session, freeing the
// caller to start fresh. Dismissing a non-terminal attempt is rejected; an
// in-flight transaction cannot be cancelled, only abandoned by not watching.
func (s *PurchaseService) Dismiss(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.InFlight() {
		return domain.ErrPurchaseInFlight
	}
	delete(s.attempts, id)
	if s.sessions[a.Wallet] == id {
		delete(s.sessions, a.Wallet)
	}
	return nil
}

// ListByWallet returns the wallet's purchase history from the durable store.
func (s *PurchaseService) ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.PurchaseAttempt, error) {
	attempts, err := s.store.ListByWallet(ctx, strings.ToLower(wallet), opts)
	if err != nil {
		return nil, fmt.Errorf("purchase_service: list for %q: %w", wallet, err)
	}
	return attempts, nil
}

// run executes the attempt lifecycle. Transitions are strictly sequential:
// gating completes before submission begins, and the transaction reference
// is recorded before the attempt becomes Pending.
func (s *PurchaseService) run(ctx context.Context, id string, facts domain.WalletFacts) {
	a, ok := s.snapshot(id)
	if !ok {
		return
	}
	log := s.logger.With(
		slog.String("attempt_id", id),
		slog.String("property", a.PropertyID),
	)

	// Gate: eligibility is a synchronous check over one consistent snapshot
	// of property, wallet, and identity facts.
	s.advance(ctx, id, domain.PurchaseGating)

	var property *domain.Property
	if p, err := s.properties.GetProperty(ctx, a.PropertyID); err != nil {
		log.WarnContext(ctx, "purchase_service: property fetch failed",
			slog.String("error", err.Error()),
		)
	} else {
		property = &p
	}

	var identity *domain.IdentityFacts
	if property != nil && property.KYCRequirement != domain.KYCNone {
		idf, err := s.identities.GetIdentityFacts(ctx, a.Wallet)
		if err != nil {
			// Unknown identity facts fail closed in the evaluator.
			log.WarnContext(ctx, "purchase_service: identity fetch failed",
				slog.String("error", err.Error()),
			)
		} else {
			identity = idf
		}
	}

	verdict := s.eval.Evaluate(property, facts, identity)
	if !verdict.CanInvest {
		log.InfoContext(ctx, "purchase_service: attempt gated",
			slog.String("reason", verdict.Reason),
		)
		s.fail(ctx, id, verdict.Reason)
		return
	}

	// Submit to the chain boundary.
	s.advance(ctx, id, domain.PurchaseSubmitting)

	reference, err := s.submitter.Submit(ctx, domain.SubmitRequest{
		PropertyID:  a.PropertyID,
		TokenAmount: a.TokenAmount,
		Wallet:      a.Wallet,
	})
	if err != nil {
		log.WarnContext(ctx, "purchase_service: submission rejected",
			slog.String("error", err.Error()),
		)
		s.fail(ctx, id, submitFailureReason(err))
		return
	}

	s.setReference(ctx, id, reference)
	s.advance(ctx, id, domain.PurchasePending)

	log.InfoContext(ctx, "purchase_service: transaction pending",
		slog.String("reference", reference),
	)

	// Await confirmation. No timeout is enforced here: confirmation latency
	// is bounded by the submitter, and a never-resolving transaction leaves
	// the attempt Pending for a manual re-check.
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := s.submitter.Status(ctx, reference)
		if err != nil {
			log.WarnContext(ctx, "purchase_service: status poll failed",
				slog.String("error", err.Error()),
			)
			continue
		}

		switch status {
		case domain.TxStatusSucceeded:
			s.advance(ctx, id, domain.PurchaseSucceeded)
			log.InfoContext(ctx, "purchase_service: purchase confirmed",
				slog.String("reference", reference),
			)
			s.archive(ctx, id)
			return
		case domain.TxStatusFailed:
			s.fail(ctx, id, "Transaction failed on-chain")
			return
		case domain.TxStatusPending:
			// keep polling
		}
	}
}

// submitFailureReason maps submitter errors to user-facing failure reasons.
func submitFailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserDeclined):
		return "Transaction rejected in wallet"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "Transaction service unavailable, please try again"
	default:
		return err.Error()
	}
}

// snapshot returns a copy of the attempt with the given ID.
func (s *PurchaseService) snapshot(id string) (domain.PurchaseAttempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return domain.PurchaseAttempt{}, false
	}
	return *a, true
}

// advance moves the attempt forward to next, persists the change, and
// publishes a lifecycle event. Regressions and terminal escapes are dropped.
func (s *PurchaseService) advance(ctx context.Context, id string, next domain.PurchaseState) {
	s.mu.Lock()
	a, ok := s.attempts[id]
	if !ok || !a.State.CanAdvance(next) {
		s.mu.Unlock()
		return
	}
	a.State = next
	if next.Terminal() {
		now := time.Now().UTC()
		a.CompletedAt = &now
	}
	snapshot := *a
	s.mu.Unlock()

	if err := s.store.UpdateState(ctx, id, next); err != nil {
		s.logger.WarnContext(ctx, "purchase_service: persist state failed",
			slog.String("attempt_id", id),
			slog.String("state", string(next)),
			slog.String("error", err.Error()),
		)
	}
	s.publish(ctx, snapshot)
	s.auditLog(ctx, "purchase_"+string(next), snapshot)
}

// fail marks the attempt Failed with the given reason.
func (s *PurchaseService) fail(ctx context.Context, id string, reason string) {
	s.mu.Lock()
	a, ok := s.attempts[id]
	if !ok || !a.State.CanAdvance(domain.PurchaseFailed) {
		s.mu.Unlock()
		return
	}
	a.State = domain.PurchaseFailed
	a.FailureReason = reason
	now := time.Now().UTC()
	a.CompletedAt = &now
	snapshot := *a
	s.mu.Unlock()

	if err := s.store.MarkFailed(ctx, id, reason); err != nil {
		s.logger.WarnContext(ctx, "purchase_service: persist failure failed",
			slog.String("attempt_id", id),
			slog.String("error", err.Error()),
		)
	}
	s.publish(ctx, snapshot)
	s.auditLog(ctx, "purchase_failed", snapshot)
	s.archive(ctx, id)
}

// setReference records the transaction reference on the attempt.
func (s *PurchaseService) setReference(ctx context.Context, id string, reference string) {
	s.mu.Lock()
	if a, ok := s.attempts[id]; ok {
		a.TxReference = reference
	}
	s.mu.Unlock()

	if err := s.store.SetReference(ctx, id, reference); err != nil {
		s.logger.WarnContext(ctx, "purchase_service: persist reference failed",
			slog.String("attempt_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// publish emits the attempt snapshot on the purchases channel.
func (s *PurchaseService) publish(ctx context.Context, a domain.PurchaseAttempt) {
	if s.bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"event":      "purchase_state",
		"attempt_id": a.ID,
		"property":   a.PropertyID,
		"state":      string(a.State),
		"reference":  a.TxReference,
		"reason":     a.FailureReason,
	})
	if err := s.bus.Publish(ctx, "purchases", payload); err != nil {
		s.logger.WarnContext(ctx, "purchase_service: publish event failed",
			slog.String("attempt_id", a.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PurchaseService) auditLog(ctx context.Context, event string, a domain.PurchaseAttempt) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, map[string]any{
		"attempt_id": a.ID,
		"property":   a.PropertyID,
		"wallet":     a.Wallet,
		"amount":     a.TokenAmount,
		"reference":  a.TxReference,
		"reason":     a.FailureReason,
	}); err != nil {
		s.logger.WarnContext(ctx, "purchase_service: audit log failed",
			slog.String("attempt_id", a.ID),
			slog.String("error", err.Error()),
		)
	}
}

// archive exports a terminal attempt's receipt to cold storage.
func (s *PurchaseService) archive(ctx context.Context, id string) {
	if s.archiver == nil {
		return
	}
	a, ok := s.snapshot(id)
	if !ok || a.InFlight() {
		return
	}
	if err := s.archiver.ArchiveReceipt(ctx, a); err != nil {
		s.logger.WarnContext(ctx, "purchase_service: receipt archive failed",
			slog.String("attempt_id", id),
			slog.String("error", err.Error()),
		)
	}
}
