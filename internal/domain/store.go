package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PurchaseStore persists purchase attempts. The in-memory attempt owned by
// the purchase service is authoritative while in flight; the store is the
// durable record for history and receipts.
type PurchaseStore interface {
	Create(ctx context.Context, attempt PurchaseAttempt) error
	UpdateState(ctx context.Context, id string, state PurchaseState) error
	SetReference(ctx context.Context, id string, reference string) error
	MarkFailed(ctx context.Context, id string, reason string) error
	GetByID(ctx context.Context, id string) (PurchaseAttempt, error)
	ListByWallet(ctx context.Context, wallet string, opts ListOpts) ([]PurchaseAttempt, error)
}

// AuditStore records significant lifecycle events (purchase transitions,
// network repairs) for operational forensics.
type AuditStore interface {
	Log(ctx context.Context, event string, details map[string]any) error
}
