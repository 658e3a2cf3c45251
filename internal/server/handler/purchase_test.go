package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

type stubPurchases struct {
	attempt    domain.PurchaseAttempt
	startErr   error
	getErr     error
	dismissErr error
	list       []domain.PurchaseAttempt
	listErr    error

	lastWallet string
	lastOpts   domain.ListOpts
}

func (s *stubPurchases) Start(_ context.Context, propertyID string, tokenAmount int64) (domain.PurchaseAttempt, error) {
	if s.startErr != nil {
		return domain.PurchaseAttempt{}, s.startErr
	}
	a := s.attempt
	a.PropertyID = propertyID
	a.TokenAmount = tokenAmount
	return a, nil
}

func (s *stubPurchases) Get(_ context.Context, id string) (domain.PurchaseAttempt, error) {
	if s.getErr != nil {
		return domain.PurchaseAttempt{}, s.getErr
	}
	a := s.attempt
	a.ID = id
	return a, nil
}

func (s *stubPurchases) Dismiss(string) error { return s.dismissErr }

func (s *stubPurchases) ListByWallet(_ context.Context, wallet string, opts domain.ListOpts) ([]domain.PurchaseAttempt, error) {
	s.lastWallet = wallet
	s.lastOpts = opts
	return s.list, s.listErr
}

func purchaseMux(s *stubPurchases) *http.ServeMux {
	h := NewPurchaseHandler(s, discardLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/purchases", h.StartPurchase)
	mux.HandleFunc("GET /api/purchases", h.ListPurchases)
	mux.HandleFunc("GET /api/purchases/{id}", h.GetPurchase)
	mux.HandleFunc("DELETE /api/purchases/{id}", h.DismissPurchase)
	return mux
}

func TestStartPurchase(t *testing.T) {
	stub := &stubPurchases{attempt: domain.PurchaseAttempt{
		ID:        "att-1",
		Wallet:    testWallet,
		State:     domain.PurchaseIdle,
		CreatedAt: time.Now(),
	}}
	mux := purchaseMux(stub)

	body := `{"property_id":"prop-1","token_amount":10}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var attempt domain.PurchaseAttempt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attempt))
	assert.Equal(t, "att-1", attempt.ID)
	assert.Equal(t, "prop-1", attempt.PropertyID)
	assert.Equal(t, int64(10), attempt.TokenAmount)
}

func TestStartPurchaseErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"wallet not connected", domain.ErrWalletNotConnected, http.StatusConflict},
		{"purchase in flight", domain.ErrPurchaseInFlight, http.StatusConflict},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"provider unavailable", domain.ErrProviderUnavailable, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := purchaseMux(&stubPurchases{startErr: tt.err})
			rec := httptest.NewRecorder()
			body := `{"property_id":"prop-1","token_amount":10}`
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestStartPurchaseRejectsBadBody(t *testing.T) {
	mux := purchaseMux(&stubPurchases{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader("not-json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(`{"token_amount":5}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPurchaseNotFound(t *testing.T) {
	mux := purchaseMux(&stubPurchases{getErr: domain.ErrNotFound})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/purchases/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPurchasesRequiresWallet(t *testing.T) {
	mux := purchaseMux(&stubPurchases{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/purchases", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPurchasesPassesOptions(t *testing.T) {
	stub := &stubPurchases{}
	mux := purchaseMux(stub)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/purchases?wallet="+testWallet+"&limit=10&offset=20", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testWallet, stub.lastWallet)
	assert.Equal(t, domain.ListOpts{Limit: 10, Offset: 20}, stub.lastOpts)
	assert.JSONEq(t, `{"purchases":[]}`, rec.Body.String())
}

func TestDismissPurchase(t *testing.T) {
	mux := purchaseMux(&stubPurchases{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/purchases/att-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"dismissed","purchase_id":"att-1"}`, rec.Body.String())
}

func TestDismissPurchaseInFlight(t *testing.T) {
	mux := purchaseMux(&stubPurchases{dismissErr: domain.ErrPurchaseInFlight})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/purchases/att-1", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}
