package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// PurchaseLifecycle defines the methods that the purchase handler requires
// from the purchase service.
type PurchaseLifecycle interface {
	Start(ctx context.Context, propertyID string, tokenAmount int64) (domain.PurchaseAttempt, error)
	Get(ctx context.Context, id string) (domain.PurchaseAttempt, error)
	Dismiss(id string) error
	ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.PurchaseAttempt, error)
}

// PurchaseHandler serves purchase lifecycle HTTP endpoints.
type PurchaseHandler struct {
	purchases PurchaseLifecycle
	logger    *slog.Logger
}

// NewPurchaseHandler creates a PurchaseHandler with the given service and
// logger.
func NewPurchaseHandler(purchases PurchaseLifecycle, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		purchases: purchases,
		logger:    logHandler(logger, "purchase"),
	}
}

// startPurchaseRequest is the JSON body for starting a purchase.
type startPurchaseRequest struct {
	PropertyID  string `json:"property_id"`
	TokenAmount int64  `json:"token_amount"`
}

// listPurchasesResponse wraps the list purchases response.
type listPurchasesResponse struct {
	Purchases []domain.PurchaseAttempt `json:"purchases"`
}

// StartPurchase begins a new purchase attempt for the connected wallet.
// POST /api/purchases
func (h *PurchaseHandler) StartPurchase(w http.ResponseWriter, r *http.Request) {
	var req startPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.PropertyID == "" {
		writeError(w, http.StatusBadRequest, "property_id is required")
		return
	}

	attempt, err := h.purchases.Start(r.Context(), req.PropertyID, req.TokenAmount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "token_amount must be positive")
		case errors.Is(err, domain.ErrWalletNotConnected):
			writeError(w, http.StatusConflict, "wallet not connected")
		case errors.Is(err, domain.ErrPurchaseInFlight):
			writeError(w, http.StatusConflict, "a purchase is already in flight for this wallet")
		case errors.Is(err, domain.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "rate limited")
		case errors.Is(err, domain.ErrProviderUnavailable):
			writeError(w, http.StatusBadGateway, "wallet provider unavailable")
		default:
			h.logger.ErrorContext(r.Context(), "handler: start purchase failed",
				slog.String("property_id", req.PropertyID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to start purchase")
		}
		return
	}

	writeJSON(w, http.StatusCreated, attempt)
}

// GetPurchase returns the current snapshot of a purchase attempt.
// GET /api/purchases/{id}
func (h *PurchaseHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing purchase id")
		return
	}

	attempt, err := h.purchases.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "purchase not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get purchase failed",
			slog.String("purchase_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get purchase")
		return
	}

	writeJSON(w, http.StatusOK, attempt)
}

// ListPurchases returns purchase attempts for a wallet, newest first.
// GET /api/purchases?wallet=0x...&limit=50&offset=0
func (h *PurchaseHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet query parameter required")
		return
	}

	opts := parseListOpts(r)
	purchases, err := h.purchases.ListByWallet(r.Context(), wallet, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list purchases failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list purchases")
		return
	}

	if purchases == nil {
		purchases = []domain.PurchaseAttempt{}
	}

	writeJSON(w, http.StatusOK, listPurchasesResponse{Purchases: purchases})
}

// DismissPurchase clears a terminal purchase attempt from its session slot.
// DELETE /api/purchases/{id}
func (h *PurchaseHandler) DismissPurchase(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing purchase id")
		return
	}

	if err := h.purchases.Dismiss(id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "purchase not found")
		case errors.Is(err, domain.ErrPurchaseInFlight):
			writeError(w, http.StatusConflict, "purchase is still in flight")
		default:
			h.logger.ErrorContext(r.Context(), "handler: dismiss purchase failed",
				slog.String("purchase_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to dismiss purchase")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "dismissed",
		"purchase_id": id,
	})
}
