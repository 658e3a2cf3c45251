package domain

import "context"

// WalletProvider is the wallet-bridge collaborator. SwitchNetwork and
// RegisterNetwork report failure through typed errors (ErrUnknownNetwork,
// ErrUserDeclined, ErrProviderUnavailable) so the reconciler can pick the
// next repair strategy.
type WalletProvider interface {
	GetWalletFacts(ctx context.Context) (WalletFacts, error)
	SwitchNetwork(ctx context.Context, networkID int64) error
	RegisterNetwork(ctx context.Context, desc NetworkDescriptor) error
}

// IdentityService fetches the verified-identity status for an address.
// A failed fetch must surface as an error, never as fabricated facts; the
// caller converts errors into unknown (nil) facts, which fail closed.
type IdentityService interface {
	GetIdentityFacts(ctx context.Context, address string) (*IdentityFacts, error)
}

// PropertyService reads offering sale state from the offerings service.
type PropertyService interface {
	GetProperty(ctx context.Context, id string) (Property, error)
	ListLive(ctx context.Context) ([]Property, error)
}

// SubmitRequest is the payload handed to the transaction submitter when a
// purchase clears its eligibility gate.
type SubmitRequest struct {
	PropertyID  string
	TokenAmount int64
	Wallet      string
}

// TxStatus is the submitter's view of a submitted transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusSucceeded TxStatus = "succeeded"
	TxStatusFailed    TxStatus = "failed"
)

// TxSubmitter is the transaction-submission collaborator: the boundary to
// the chain (real relayer or simulator). Submit returns an opaque reference;
// Status is polled until the transaction settles. Neither call exposes a
// cancel primitive, so callers may only abandon observing an attempt.
type TxSubmitter interface {
	Submit(ctx context.Context, req SubmitRequest) (reference string, err error)
	Status(ctx context.Context, reference string) (TxStatus, error)
}
