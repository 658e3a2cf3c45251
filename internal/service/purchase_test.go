package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// fakeProperties serves a fixed property set.
type fakeProperties struct {
	mu         sync.Mutex
	properties map[string]domain.Property
	err        error
}

func newFakeProperties(props ...domain.Property) *fakeProperties {
	f := &fakeProperties{properties: make(map[string]domain.Property)}
	for _, p := range props {
		f.properties[p.ID] = p
	}
	return f
}

func (f *fakeProperties) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Property{}, f.err
	}
	p, ok := f.properties[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProperties) ListLive(ctx context.Context) ([]domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Property
	for _, p := range f.properties {
		if p.Status == domain.SaleStatusLive {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeIdentities serves fixed identity facts.
type fakeIdentities struct {
	facts *domain.IdentityFacts
	err   error
}

func (f *fakeIdentities) GetIdentityFacts(ctx context.Context, address string) (*domain.IdentityFacts, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.facts, nil
}

// fakeSubmitter is a scripted TxSubmitter.
type fakeSubmitter struct {
	mu        sync.Mutex
	submitErr error
	reference string
	statuses  []domain.TxStatus // consumed one per Status call; last repeats
	statusErr error
	polls     int
}

func (f *fakeSubmitter) Submit(ctx context.Context, req domain.SubmitRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.reference == "" {
		f.reference = "0xabc123"
	}
	return f.reference, nil
}

func (f *fakeSubmitter) Status(ctx context.Context, reference string) (domain.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.statusErr != nil {
		return "", f.statusErr
	}
	if len(f.statuses) == 0 {
		return domain.TxStatusPending, nil
	}
	status := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return status, nil
}

// memPurchaseStore is an in-memory PurchaseStore that records state history.
type memPurchaseStore struct {
	mu       sync.Mutex
	attempts map[string]domain.PurchaseAttempt
	history  map[string][]domain.PurchaseState
}

func newMemPurchaseStore() *memPurchaseStore {
	return &memPurchaseStore{
		attempts: make(map[string]domain.PurchaseAttempt),
		history:  make(map[string][]domain.PurchaseState),
	}
}

func (m *memPurchaseStore) Create(ctx context.Context, attempt domain.PurchaseAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[attempt.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.attempts[attempt.ID] = attempt
	m.history[attempt.ID] = []domain.PurchaseState{attempt.State}
	return nil
}

func (m *memPurchaseStore) UpdateState(ctx context.Context, id string, state domain.PurchaseState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.State = state
	m.attempts[id] = a
	m.history[id] = append(m.history[id], state)
	return nil
}

func (m *memPurchaseStore) SetReference(ctx context.Context, id string, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.TxReference = reference
	m.attempts[id] = a
	return nil
}

func (m *memPurchaseStore) MarkFailed(ctx context.Context, id string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.State = domain.PurchaseFailed
	a.FailureReason = reason
	m.attempts[id] = a
	m.history[id] = append(m.history[id], domain.PurchaseFailed)
	return nil
}

func (m *memPurchaseStore) GetByID(ctx context.Context, id string) (domain.PurchaseAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return domain.PurchaseAttempt{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *memPurchaseStore) ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.PurchaseAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PurchaseAttempt
	for _, a := range m.attempts {
		if a.Wallet == wallet {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memPurchaseStore) statesFor(id string) []domain.PurchaseState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PurchaseState(nil), m.history[id]...)
}

type purchaseFixture struct {
	svc       *PurchaseService
	wallet    *fakeWallet
	props     *fakeProperties
	ids       *fakeIdentities
	submitter *fakeSubmitter
	store     *memPurchaseStore
}

func newPurchaseFixture(t *testing.T) *purchaseFixture {
	t.Helper()
	f := &purchaseFixture{
		wallet:    &fakeWallet{facts: connectedWallet()},
		props:     newFakeProperties(*liveProperty()),
		ids:       &fakeIdentities{},
		submitter: &fakeSubmitter{statuses: []domain.TxStatus{domain.TxStatusSucceeded}},
		store:     newMemPurchaseStore(),
	}
	f.svc = NewPurchaseService(
		NewEvaluator(),
		f.wallet,
		f.props,
		f.ids,
		f.submitter,
		f.store,
		nil,
		nil,
		nil,
		testLogger(),
	)
	f.svc.SetPollInterval(5 * time.Millisecond)
	return f
}

func awaitTerminal(t *testing.T, svc *PurchaseService, id string) domain.PurchaseAttempt {
	t.Helper()
	var attempt domain.PurchaseAttempt
	require.Eventually(t, func() bool {
		a, err := svc.Get(context.Background(), id)
		if err != nil {
			return false
		}
		attempt = a
		return a.State.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return attempt
}

func TestPurchaseHappyPath(t *testing.T) {
	f := newPurchaseFixture(t)

	attempt, err := f.svc.Start(context.Background(), "prop-1", 10)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseIdle, attempt.State)
	assert.NotEmpty(t, attempt.ID)

	final := awaitTerminal(t, f.svc, attempt.ID)
	assert.Equal(t, domain.PurchaseSucceeded, final.State)
	assert.Equal(t, "0xabc123", final.TxReference)
	assert.Empty(t, final.FailureReason)
	require.NotNil(t, final.CompletedAt)

	// The durable record saw every transition in order.
	assert.Equal(t, []domain.PurchaseState{
		domain.PurchaseIdle,
		domain.PurchaseGating,
		domain.PurchaseSubmitting,
		domain.PurchasePending,
		domain.PurchaseSucceeded,
	}, f.store.statesFor(attempt.ID))

	// Reference was durably recorded.
	stored, err := f.store.GetByID(context.Background(), attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", stored.TxReference)
}

func TestPurchaseGateFailure(t *testing.T) {
	f := newPurchaseFixture(t)
	p := *liveProperty()
	p.ID = "prop-paused"
	p.Status = domain.SaleStatusPaused
	f.props.properties[p.ID] = p

	attempt, err := f.svc.Start(context.Background(), "prop-paused", 10)
	require.NoError(t, err)

	final := awaitTerminal(t, f.svc, attempt.ID)
	assert.Equal(t, domain.PurchaseFailed, final.State)
	assert.Equal(t, "Property is paused", final.FailureReason)
	assert.Empty(t, final.TxReference, "gated attempt must never reach submission")

	// Submission was never attempted.
	assert.Equal(t, []domain.PurchaseState{
		domain.PurchaseIdle,
		domain.PurchaseGating,
		domain.PurchaseFailed,
	}, f.store.statesFor(attempt.ID))
}

func TestPurchaseUnknownPropertyGates(t *testing.T) {
	f := newPurchaseFixture(t)

	attempt, err := f.svc.Start(context.Background(), "no-such-property", 10)
	require.NoError(t, err)

	final := awaitTerminal(t, f.svc, attempt.ID)
	assert.Equal(t, domain.PurchaseFailed, final.State)
	assert.Equal(t, "Property not found", final.FailureReason)
}

func TestPurchaseUserDecline(t *testing.T) {
	f := newPurchaseFixture(t)
	f.submitter.submitErr = domain.ErrUserDeclined

	attempt, err := f.svc.Start(context.Background(), "prop-1", 10)
	require.NoError(t, err)

	final := awaitTerminal(t, f.svc, attempt.ID)
	assert.Equal(t, domain.PurchaseFailed, final.State)
	assert.Equal(t, "Transaction rejected in wallet", final.FailureReason)
}

func TestPurchaseProviderUnavailable(t *testing.T) {
	f := newPurchaseFixture(t)
	f.submitter.submitErr = domain.ErrProviderUnavailable

	attempt, err := f.svc.Start(context.Background(), "prop-1", 10)
	require.NoError(t, err)

	final := awaitTerminal(t, f.svc, attempt.ID)
	assert.Equal(t, domain.PurchaseFailed, final.State)
	assert.Equal(t, "Transaction service unavailable, please try again", final.FailureReason)
}

func TestPurchaseOnChainRevert(t *testing.T) {
	f := newPurchaseFixture(t)
	f.submitter.statuses = []domain.TxStatus{
		domain.TxStatusPending,
		domain.TxStatusPending,
		domain.TxStatusFailed,
	}

	attempt, err := f.svc.Start(context.Background(), "prop-1", 10)
	require.NoError(t, err)

	final := awaitTerminal(t, f.svc, attempt.ID)
	assert.Equal(t, domain.PurchaseFailed, final.State)
	assert.Equal(t, "Transaction failed on-chain", final.FailureReason)
	assert.NotEmpty(t, final.TxReference, "reference recorded before confirmation resolved")
}

func TestPurchaseStatusPollErrorsKeepPolling(t *testing.T) {
	f := newPurchaseFixture(t)
	f.submitter.statusErr = errors.New("rpc hiccup")

	attempt, err := f.svc.Start(context.Background(), "prop-1", 10)
	require.NoError(t, err)

	// Still Pending after several failed polls.
	require.Eventually(t, func() bool {
		f.submitter.mu.Lock()
		defer f.submitter.mu.Unlock()
		return f.submitter.polls >= 3
	}, 2*time.Second, 5*time.Millisecond)

	a, err := f.svc.Get(context.Background(), attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchasePending, a.State)

	// Once the submitter recovers, the attempt completes.
	f.submitter.mu.Lock()
	f.submitter.statusErr = nil
	f.submitter.mu.Unlock()

	final := awaitTerminal(t, f.svc, attempt.ID)
	assert.Equal(t, domain.PurchaseSucceeded, final.State)
}

func TestPurchaseInvalidAmount(t *testing.T) {
	f := newPurchaseFixture(t)

	_, err := f.svc.Start(context.Background(), "prop-1", 0)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Start(context.Background(), "prop-1", -5)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestPurchaseRequiresConnectedWallet(t *testing.T) {
	f := newPurchaseFixture(t)
	f.wallet.facts = domain.WalletFacts{Connected: false}

	_, err := f.svc.Start(context.Background(), "prop-1", 10)
	require.ErrorIs(t, err, domain.ErrWalletNotConnected)
}

func TestPurchaseAtMostOneInFlight(t *testing.T) {
	f := newPurchaseFixture(t)
	// Never confirms: the first attempt stays Pending.
	f.submitter.statuses = nil

	first, err := f.svc.Start(context.Background(), "prop-1", 10)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		a, err := f.svc.Get(context.Background(), first.ID)
		return err == nil && a.State == domain.PurchasePending
	}, 2*time.Second, 5*time.Millisecond)

	_, err = f.svc.Start(context.Background(), "prop-1", 10)
	require.ErrorIs(t, err, domain.ErrPurchaseInFlight)
}

func TestPurchaseNewAttemptAfterTerminal(t *testing.T) {
	f := newPurchaseFixture(t)
	f.submitter.statuses = []domain.TxStatus{domain.TxStatusSucceeded}

	first, err := f.svc.Start(context.Background(), "prop-1", 10)
	require.NoError(t, err)
	awaitTerminal(t, f.svc, first.ID)

	f.submitter.mu.Lock()
	f.submitter.statuses = []domain.TxStatus{domain.TxStatusSucceeded}
	f.submitter.mu.Unlock()

	second, err := f.svc.Start(context.Background(), "prop-1", 5)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID, "terminal attempts are never reused")

	final := awaitTerminal(t, f.svc, second.ID)
	assert.Equal(t, domain.PurchaseSucceeded, final.State)
}

func TestPurchaseDismiss(t *testing.T) {
	f := newPurchaseFixture(t)
	// Never confirms: the attempt stays Pending.
	f.submitter.statuses = nil

	attempt, err := f.svc.Start(context.Background(), "prop-1", 10)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		a, err := f.svc.Get(context.Background(), attempt.ID)
		return err == nil && a.State == domain.PurchasePending
	}, 2*time.Second, 5*time.Millisecond)

	// In-flight attempts cannot be dismissed.
	require.ErrorIs(t, f.svc.Dismiss(attempt.ID), domain.ErrPurchaseInFlight)

	// Let it settle, then dismiss.
	f.submitter.mu.Lock()
	f.submitter.statuses = []domain.TxStatus{domain.TxStatusSucceeded}
	f.submitter.mu.Unlock()
	awaitTerminal(t, f.svc, attempt.ID)

	require.NoError(t, f.svc.Dismiss(attempt.ID))

	// Dismissed attempts are still readable from the durable store.
	a, err := f.svc.Get(context.Background(), attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseSucceeded, a.State)

	require.ErrorIs(t, f.svc.Dismiss(attempt.ID), domain.ErrNotFound)
}

func TestPurchaseKYCGateFetchesIdentity(t *testing.T) {
	f := newPurchaseFixture(t)
	p := *liveProperty()
	p.ID = "prop-kyc"
	p.KYCRequirement = domain.KYCJurisdictionPermit
	f.props.properties[p.ID] = p
	f.ids.facts = &domain.IdentityFacts{Address: testAddress, Valid: true, HasPermit: true}

	attempt, err := f.svc.Start(context.Background(), "prop-kyc", 10)
	require.NoError(t, err)

	final := awaitTerminal(t, f.svc, attempt.ID)
	assert.Equal(t, domain.PurchaseSucceeded, final.State)
}

func TestPurchaseKYCIdentityLookupFailsClosed(t *testing.T) {
	f := newPurchaseFixture(t)
	p := *liveProperty()
	p.ID = "prop-kyc"
	p.KYCRequirement = domain.KYCJurisdictionPermit
	f.props.properties[p.ID] = p
	f.ids.err = errors.New("kyc gateway down")

	attempt, err := f.svc.Start(context.Background(), "prop-kyc", 10)
	require.NoError(t, err)

	final := awaitTerminal(t, f.svc, attempt.ID)
	assert.Equal(t, domain.PurchaseFailed, final.State)
	assert.Equal(t, "Jurisdiction permit required for this property", final.FailureReason)
}

func TestPurchaseRateLimited(t *testing.T) {
	f := newPurchaseFixture(t)
	limited := limiterFunc(func(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
		return false, nil
	})
	f.svc = NewPurchaseService(
		NewEvaluator(), f.wallet, f.props, f.ids, f.submitter, f.store,
		nil, nil, limited, testLogger(),
	)

	_, err := f.svc.Start(context.Background(), "prop-1", 10)
	require.ErrorIs(t, err, domain.ErrRateLimited)
}

// limiterFunc adapts a function to domain.RateLimiter.
type limiterFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

func (f limiterFunc) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return f(ctx, key, limit, window)
}
