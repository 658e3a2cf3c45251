package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// manualFixHint is the terminal user-facing instruction shown when both
// repair strategies fail.
const manualFixHint = "Automatic network switch failed. Add the network to your wallet manually and retry."

// repairStrategy is one entry in the ordered repair list. Strategies are
// tried in order until one succeeds.
type repairStrategy struct {
	name  domain.RepairStrategy
	apply func(ctx context.Context) error
}

// Reconciler drives the connected wallet toward the target network. A
// mismatch observed on a wallet-state change is repaired with a two-phase
// protocol: switch, else register-and-switch. Every failure is non-fatal to
// the host application; the worst outcome is a recorded manual-fix hint.
type Reconciler struct {
	provider domain.WalletProvider
	target   domain.NetworkDescriptor
	settle   time.Duration
	audit    domain.AuditStore
	bus      domain.SignalBus
	logger   *slog.Logger

	mu        sync.Mutex
	state     domain.NetworkRepairState
	timer     *time.Timer
	lastEvent string // debounce key for the last attempted (address, network) event
}

// NewReconciler creates a Reconciler for the given target network. settle is
// the delay between observing a mismatch and the first repair attempt; it
// absorbs wallet providers that report a stale network id mid-handshake.
func NewReconciler(
	provider domain.WalletProvider,
	target domain.NetworkDescriptor,
	settle time.Duration,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) (*Reconciler, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("reconciler: target descriptor: %w", err)
	}
	if settle <= 0 {
		settle = time.Second
	}
	return &Reconciler{
		provider: provider,
		target:   target,
		settle:   settle,
		audit:    audit,
		bus:      bus,
		logger:   logger.With(slog.String("component", "reconciler")),
		state:    domain.NetworkRepairState{TargetNetwork: target.ChainID, LastStrategy: domain.RepairNone},
	}, nil
}

// State returns a snapshot of the current repair state.
func (r *Reconciler) State() domain.NetworkRepairState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Observe is called on every wallet-state change. A disconnect or a correct
// network cancels any scheduled repair and resets the repair state. A
// mismatch schedules one repair attempt after the settle delay, debounced
// per (address, network) event so a repeated observation of the same state
// does not pile up attempts.
func (r *Reconciler) Observe(ctx context.Context, facts domain.WalletFacts) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !facts.Connected || facts.NetworkID == r.target.ChainID {
		r.cancelTimerLocked()
		r.resetLocked()
		return
	}

	key := fmt.Sprintf("%s#%d", facts.Address, facts.NetworkID)
	if key == r.lastEvent {
		// Already attempted (or scheduled) for this exact event.
		return
	}
	r.lastEvent = key
	r.cancelTimerLocked()

	r.logger.InfoContext(ctx, "reconciler: network mismatch observed",
		slog.Int64("current", facts.NetworkID),
		slog.Int64("target", r.target.ChainID),
	)

	r.timer = time.AfterFunc(r.settle, func() {
		r.Reconcile(ctx, facts)
	})
}

// Reconcile runs the repair protocol immediately. It never returns an error
// to the caller: outcomes are reflected in the returned repair state, and
// provider failures are logged and audited.
func (r *Reconciler) Reconcile(ctx context.Context, facts domain.WalletFacts) domain.NetworkRepairState {
	r.mu.Lock()
	if !facts.Connected {
		r.resetLocked()
		st := r.state
		r.mu.Unlock()
		return st
	}
	if facts.NetworkID == r.target.ChainID {
		r.resetLocked()
		st := r.state
		r.mu.Unlock()
		return st
	}
	r.state.Reconciling = true
	r.state.FailureHint = ""
	r.mu.Unlock()

	strategies := []repairStrategy{
		{
			name: domain.RepairSwitch,
			apply: func(ctx context.Context) error {
				return r.provider.SwitchNetwork(ctx, r.target.ChainID)
			},
		},
		{
			name: domain.RepairRegisterAndSwitch,
			apply: func(ctx context.Context) error {
				// Registration also activates the network on success.
				return r.provider.RegisterNetwork(ctx, r.target)
			},
		},
	}

	for _, strat := range strategies {
		r.setStrategy(strat.name)
		err := strat.apply(ctx)
		if err == nil {
			r.logger.InfoContext(ctx, "reconciler: network repaired",
				slog.String("strategy", string(strat.name)),
				slog.Int64("network", r.target.ChainID),
			)
			r.finish("", strat.name)
			r.report(ctx, "network_repaired", strat.name, "")
			return r.State()
		}
		r.logger.WarnContext(ctx, "reconciler: repair strategy failed",
			slog.String("strategy", string(strat.name)),
			slog.String("error", err.Error()),
		)
	}

	// Both strategies failed. Degrade to a visible wrong-network indicator
	// plus a manual-fix instruction; the rest of the API keeps working.
	r.finish(manualFixHint, domain.RepairRegisterAndSwitch)
	r.report(ctx, "network_repair_failed", domain.RepairRegisterAndSwitch, manualFixHint)
	return r.State()
}

func (r *Reconciler) setStrategy(s domain.RepairStrategy) {
	r.mu.Lock()
	r.state.LastStrategy = s
	r.mu.Unlock()
}

func (r *Reconciler) finish(hint string, last domain.RepairStrategy) {
	r.mu.Lock()
	r.state.Reconciling = false
	r.state.LastStrategy = last
	r.state.FailureHint = hint
	r.mu.Unlock()
}

// report publishes the repair outcome on the signal bus and writes an audit
// entry. Both are best effort.
func (r *Reconciler) report(ctx context.Context, event string, strat domain.RepairStrategy, hint string) {
	payload, _ := json.Marshal(map[string]any{
		"event":    event,
		"strategy": string(strat),
		"network":  r.target.ChainID,
		"hint":     hint,
	})
	if r.bus != nil {
		if err := r.bus.Publish(ctx, "network", payload); err != nil {
			r.logger.WarnContext(ctx, "reconciler: publish event failed",
				slog.String("error", err.Error()),
			)
		}
	}
	if r.audit != nil {
		if err := r.audit.Log(ctx, event, map[string]any{
			"strategy": string(strat),
			"network":  r.target.ChainID,
		}); err != nil {
			r.logger.WarnContext(ctx, "reconciler: audit log failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

// cancelTimerLocked stops a scheduled repair. Callers hold r.mu.
func (r *Reconciler) cancelTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// resetLocked returns the repair state to idle. Callers hold r.mu.
func (r *Reconciler) resetLocked() {
	r.lastEvent = ""
	r.state = domain.NetworkRepairState{
		TargetNetwork: r.target.ChainID,
		LastStrategy:  domain.RepairNone,
	}
}
