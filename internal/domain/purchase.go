package domain

import "time"

// PurchaseState tags where a purchase attempt is in its lifecycle.
// Transitions are strictly forward; Succeeded and Failed are sticky.
type PurchaseState string

const (
	PurchaseIdle       PurchaseState = "idle"
	PurchaseGating     PurchaseState = "gating"
	PurchaseSubmitting PurchaseState = "submitting"
	PurchasePending    PurchaseState = "pending"
	PurchaseSucceeded  PurchaseState = "succeeded"
	PurchaseFailed     PurchaseState = "failed"
)

// Terminal reports whether the state is sticky. A new purchase always gets a
// new attempt identity rather than mutating a terminal one.
func (s PurchaseState) Terminal() bool {
	return s == PurchaseSucceeded || s == PurchaseFailed
}

// purchaseOrder encodes the forward-only ordering of lifecycle states.
var purchaseOrder = map[PurchaseState]int{
	PurchaseIdle:       0,
	PurchaseGating:     1,
	PurchaseSubmitting: 2,
	PurchasePending:    3,
	PurchaseSucceeded:  4,
	PurchaseFailed:     4,
}

// CanAdvance reports whether a transition from s to next respects the
// monotonic lifecycle (no regressing, no leaving a terminal state).
func (s PurchaseState) CanAdvance(next PurchaseState) bool {
	if s.Terminal() {
		return false
	}
	return purchaseOrder[next] > purchaseOrder[s]
}

// PurchaseAttempt is one caller-initiated purchase flow. It is owned
// exclusively by the purchase service for its duration and dismissed (not
// mutated back) once terminal.
type PurchaseAttempt struct {
	ID            string        `json:"id"`
	PropertyID    string        `json:"property_id"`
	Wallet        string        `json:"wallet"`
	TokenAmount   int64         `json:"token_amount"`
	State         PurchaseState `json:"state"`
	TxReference   string        `json:"tx_reference,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// InFlight reports whether the attempt still occupies its session's
// at-most-one-in-flight slot.
func (a PurchaseAttempt) InFlight() bool {
	return !a.State.Terminal()
}
