package domain

// WalletFacts is a read-only snapshot of the wallet-bridge connection state.
// It is produced by the wallet provider on every poll and never mutated by
// this service; when Connected is false all derived facts (identity, balance)
// must be treated as unknown.
type WalletFacts struct {
	Connected bool
	Address   string // hex address, empty when no account is exposed
	NetworkID int64  // chain ID the wallet is currently on
}

// HasAddress reports whether the snapshot carries a usable account address.
func (w WalletFacts) HasAddress() bool {
	return w.Connected && w.Address != ""
}

// RepairStrategy names the network-repair path last attempted by the
// reconciler.
type RepairStrategy string

const (
	RepairNone              RepairStrategy = "none"
	RepairSwitch            RepairStrategy = "switch"
	RepairRegisterAndSwitch RepairStrategy = "register-and-switch"
)

// NetworkRepairState is the reconciler's transient view of an in-progress or
// recently finished network repair. It resets whenever the wallet connection
// or the target network changes.
type NetworkRepairState struct {
	Reconciling   bool           `json:"reconciling"`
	TargetNetwork int64          `json:"target_network"`
	LastStrategy  RepairStrategy `json:"last_strategy,omitempty"`
	// FailureHint is a user-facing instruction set when both repair
	// strategies failed. Non-fatal: the rest of the API keeps working.
	FailureHint string `json:"failure_hint,omitempty"`
}

// NativeCurrency describes the network's gas currency for wallet
// registration payloads.
type NativeCurrency struct {
	Name     string `toml:"name" json:"name"`
	Symbol   string `toml:"symbol" json:"symbol"`
	Decimals int    `toml:"decimals" json:"decimals"`
}

// NetworkDescriptor is the full descriptor the wallet bridge needs to
// register a network it does not yet know. Partial descriptors are a
// contract violation; Validate rejects them before any provider call.
type NetworkDescriptor struct {
	ChainID        int64          `toml:"chain_id" json:"chain_id"`
	Name           string         `toml:"name" json:"name"`
	Currency       NativeCurrency `toml:"currency" json:"currency"`
	RPCURLs        []string       `toml:"rpc_urls" json:"rpc_urls"`
	ExplorerURL    string         `toml:"explorer_url" json:"explorer_url"`
	IconURL        string         `toml:"icon_url" json:"icon_url"`
}

// Validate checks that every descriptor field required by the wallet bridge
// is present.
func (d NetworkDescriptor) Validate() error {
	switch {
	case d.ChainID <= 0:
		return ErrPartialDescriptor
	case d.Name == "":
		return ErrPartialDescriptor
	case d.Currency.Name == "" || d.Currency.Symbol == "" || d.Currency.Decimals <= 0:
		return ErrPartialDescriptor
	case len(d.RPCURLs) == 0:
		return ErrPartialDescriptor
	case d.ExplorerURL == "":
		return ErrPartialDescriptor
	case d.IconURL == "":
		return ErrPartialDescriptor
	}
	return nil
}
