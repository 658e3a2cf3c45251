package domain

// IdentityFacts is the externally verified identity status for one wallet
// address. It is fetched on demand and lives only for the evaluation that
// requested it; the KYC gateway owns the durable record.
//
// A nil *IdentityFacts means the status is unknown (no address, or the
// gateway was unreachable) and eligibility checks treat it as failing.
type IdentityFacts struct {
	Address   string
	Valid     bool
	HasPermit bool // jurisdiction-specific permit
}

// MeetsPermitRequirement reports whether these facts satisfy a
// jurisdiction-permit KYC requirement. Unknown facts fail closed.
func (f *IdentityFacts) MeetsPermitRequirement() bool {
	if f == nil {
		return false
	}
	return f.Valid || f.HasPermit
}
