package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// maxKYCBodySize caps the KYC submission payload at 1 MiB.
const maxKYCBodySize = 1 << 20

// IdentityGateway extends the identity read model with the verification
// submission proxy the KYC handler needs.
type IdentityGateway interface {
	domain.IdentityService
	SubmitVerification(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}

// KYCHandler serves identity verification HTTP endpoints.
type KYCHandler struct {
	gateway IdentityGateway
	logger  *slog.Logger
}

// NewKYCHandler creates a KYCHandler with the given gateway and logger.
func NewKYCHandler(gateway IdentityGateway, logger *slog.Logger) *KYCHandler {
	return &KYCHandler{
		gateway: gateway,
		logger:  logHandler(logger, "kyc"),
	}
}

// kycStatusResponse is the JSON shape of an identity facts snapshot.
type kycStatusResponse struct {
	Address   string `json:"address"`
	Valid     bool   `json:"valid"`
	HasPermit bool   `json:"has_permit"`
}

// GetStatus returns the identity verification facts for a wallet address.
// GET /api/kyc/status?address=0x...
func (h *KYCHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address query parameter required")
		return
	}
	if !common.IsHexAddress(address) {
		writeError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	facts, err := h.gateway.GetIdentityFacts(r.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) {
			writeError(w, http.StatusBadGateway, "identity service unavailable")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: kyc status failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get kyc status")
		return
	}

	writeJSON(w, http.StatusOK, kycStatusResponse{
		Address:   facts.Address,
		Valid:     facts.Valid,
		HasPermit: facts.HasPermit,
	})
}

// SubmitVerification forwards a verification submission to the identity
// gateway and relays its response. The payload is opaque to this service.
// POST /api/kyc/submit
func (h *KYCHandler) SubmitVerification(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxKYCBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	resp, err := h.gateway.SubmitVerification(r.Context(), body)
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) {
			writeError(w, http.StatusBadGateway, "identity service unavailable")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: kyc submit failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to submit verification")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusAccepted)
	w.Write(resp)
}
