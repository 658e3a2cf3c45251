package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// EligibilityEvaluator defines the eligibility evaluation method the property
// handler requires.
type EligibilityEvaluator interface {
	Evaluate(property *domain.Property, wallet domain.WalletFacts, identity *domain.IdentityFacts) domain.EligibilityVerdict
}

// PropertyHandler serves property and eligibility HTTP endpoints.
type PropertyHandler struct {
	properties domain.PropertyService
	identities domain.IdentityService
	evaluator  EligibilityEvaluator
	logger     *slog.Logger
}

// NewPropertyHandler creates a PropertyHandler with the given services.
func NewPropertyHandler(
	properties domain.PropertyService,
	identities domain.IdentityService,
	evaluator EligibilityEvaluator,
	logger *slog.Logger,
) *PropertyHandler {
	return &PropertyHandler{
		properties: properties,
		identities: identities,
		evaluator:  evaluator,
		logger:     logHandler(logger, "property"),
	}
}

// listPropertiesResponse wraps the list properties response.
type listPropertiesResponse struct {
	Properties []domain.Property `json:"properties"`
}

// ListProperties returns all live property offerings.
// GET /api/properties
func (h *PropertyHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.properties.ListLive(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list properties failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list properties")
		return
	}

	if properties == nil {
		properties = []domain.Property{}
	}

	writeJSON(w, http.StatusOK, listPropertiesResponse{Properties: properties})
}

// GetProperty returns a single property offering by ID.
// GET /api/properties/{id}
func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing property id")
		return
	}

	property, err := h.properties.GetProperty(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "property not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get property failed",
			slog.String("property_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get property")
		return
	}

	writeJSON(w, http.StatusOK, property)
}

// GetEligibility evaluates whether the given wallet address can invest in the
// property right now. The address query parameter is optional; omitting it
// evaluates the disconnected-wallet case.
// GET /api/properties/{id}/eligibility?address=0x...
func (h *PropertyHandler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing property id")
		return
	}

	address := r.URL.Query().Get("address")
	if address != "" && !common.IsHexAddress(address) {
		writeError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	var property *domain.Property
	p, err := h.properties.GetProperty(r.Context(), id)
	switch {
	case err == nil:
		property = &p
	case errors.Is(err, domain.ErrNotFound):
		// Leave property nil; the evaluator reports the not-found verdict.
	default:
		h.logger.ErrorContext(r.Context(), "handler: eligibility property fetch failed",
			slog.String("property_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to evaluate eligibility")
		return
	}

	facts := domain.WalletFacts{
		Connected: address != "",
		Address:   address,
	}

	identity := h.identityFor(r.Context(), property, facts)
	verdict := h.evaluator.Evaluate(property, facts, identity)
	writeJSON(w, http.StatusOK, verdict)
}

// identityFor fetches identity facts only when the property actually gates on
// them. Lookup failures yield nil facts, which the evaluator treats as not
// verified.
func (h *PropertyHandler) identityFor(ctx context.Context, property *domain.Property, facts domain.WalletFacts) *domain.IdentityFacts {
	if property == nil || property.KYCRequirement == domain.KYCNone || !facts.HasAddress() {
		return nil
	}

	identity, err := h.identities.GetIdentityFacts(ctx, facts.Address)
	if err != nil {
		h.logger.WarnContext(ctx, "handler: identity lookup failed",
			slog.String("address", facts.Address),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return identity
}
