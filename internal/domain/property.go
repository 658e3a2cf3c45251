package domain

import "time"

// SaleStatus tracks where a property offering is in its sale lifecycle.
type SaleStatus string

const (
	SaleStatusDraft   SaleStatus = "draft"
	SaleStatusLive    SaleStatus = "live"
	SaleStatusPaused  SaleStatus = "paused"
	SaleStatusSoldOut SaleStatus = "sold-out"
	SaleStatusClosed  SaleStatus = "closed"
)

// KYCRequirement is the identity-verification level a property demands from
// investors.
type KYCRequirement string

const (
	KYCNone               KYCRequirement = "none"
	KYCJurisdictionPermit KYCRequirement = "jurisdiction-permit"
)

// SaleWindow bounds the period during which tokens may be purchased. A zero
// bound means unbounded on that side.
type SaleWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w SaleWindow) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Property is the sale state of one tokenized offering as reported by the
// offerings service. This service only reads it; the offerings service owns
// and mutates the record.
type Property struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Status          SaleStatus     `json:"status"`
	TokensRemaining int64          `json:"tokens_remaining"`
	TotalTokens     int64          `json:"total_tokens"`
	TokenPriceUSD   float64        `json:"token_price_usd"`
	KYCRequirement  KYCRequirement `json:"kyc_requirement"`
	SaleWindow      *SaleWindow    `json:"sale_window,omitempty"`
	ContractAddress string         `json:"contract_address"`
}
