package domain

// EligibilityVerdict is the computed answer to "may this identity invest in
// this property right now". Computed fresh on every call and immutable once
// returned.
type EligibilityVerdict struct {
	CanInvest bool `json:"can_invest"`
	// Reason is the first failing check's user-facing message, empty when
	// CanInvest is true.
	Reason string `json:"reason"`
	// RequiresIdentityVerification marks verdicts where completing identity
	// verification is the remediation, so the UI can link to the KYC flow
	// instead of showing a dead end.
	RequiresIdentityVerification bool `json:"requires_identity_verification"`
}
