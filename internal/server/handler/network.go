package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// NetworkReconciler defines the methods that the network handler requires
// from the reconciliation service.
type NetworkReconciler interface {
	State() domain.NetworkRepairState
	Reconcile(ctx context.Context, facts domain.WalletFacts) domain.NetworkRepairState
}

// NetworkHandler serves network reconciliation HTTP endpoints.
type NetworkHandler struct {
	reconciler NetworkReconciler
	wallet     domain.WalletProvider
	target     domain.NetworkDescriptor
	logger     *slog.Logger
}

// NewNetworkHandler creates a NetworkHandler with the given reconciler,
// wallet provider, and target descriptor.
func NewNetworkHandler(reconciler NetworkReconciler, wallet domain.WalletProvider, target domain.NetworkDescriptor, logger *slog.Logger) *NetworkHandler {
	return &NetworkHandler{
		reconciler: reconciler,
		wallet:     wallet,
		target:     target,
		logger:     logHandler(logger, "network"),
	}
}

// networkResponse wraps the current wallet and repair state for API clients.
type networkResponse struct {
	Target   domain.NetworkDescriptor  `json:"target"`
	Wallet   *walletFactsView          `json:"wallet,omitempty"`
	Repair   domain.NetworkRepairState `json:"repair"`
	OnTarget bool                      `json:"on_target"`
}

// walletFactsView is the JSON shape of a wallet snapshot.
type walletFactsView struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	NetworkID int64  `json:"network_id,omitempty"`
}

// GetNetwork returns the target network, the latest wallet snapshot, and the
// current repair state.
// GET /api/network
func (h *NetworkHandler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	resp := networkResponse{
		Target: h.target,
		Repair: h.reconciler.State(),
	}

	facts, err := h.wallet.GetWalletFacts(r.Context())
	if err != nil {
		// The wallet bridge being down is not an API failure; report what
		// we do know.
		h.logger.WarnContext(r.Context(), "handler: wallet facts unavailable",
			slog.String("error", err.Error()),
		)
	} else {
		resp.Wallet = &walletFactsView{
			Connected: facts.Connected,
			Address:   facts.Address,
			NetworkID: facts.NetworkID,
		}
		resp.OnTarget = facts.Connected && facts.NetworkID == h.target.ChainID
	}

	writeJSON(w, http.StatusOK, resp)
}

// Reconcile fetches a fresh wallet snapshot and runs network repair
// immediately, skipping the settle delay. Returns the resulting repair state.
// POST /api/network/reconcile
func (h *NetworkHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	facts, err := h.wallet.GetWalletFacts(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: reconcile failed to read wallet",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "wallet provider unavailable")
		return
	}

	state := h.reconciler.Reconcile(r.Context(), facts)
	writeJSON(w, http.StatusOK, networkResponse{
		Target: h.target,
		Wallet: &walletFactsView{
			Connected: facts.Connected,
			Address:   facts.Address,
			NetworkID: facts.NetworkID,
		},
		Repair:   state,
		OnTarget: facts.Connected && facts.NetworkID == h.target.ChainID,
	})
}
