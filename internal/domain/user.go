package domain

import "time"

// PlanTier enumerates subscription levels.
type PlanTier string

const (
	PlanFree      PlanTier = "free"
	PlanStandard  PlanTier = "standard"
	PlanUnlimited PlanTier = "unlimited"
)

const (
	FreeQuota     = 1
	StandardQuota = 5
)

// Quota returns the generation limit for the tier. Unlimited has no finite
// limit and reports unbounded=true; limit must be ignored in that case.
func (t PlanTier) Quota() (limit int, unbounded bool) {
	switch t {
	case PlanUnlimited:
		return 0, true
	case PlanStandard:
		return StandardQuota, false
	default:
		return FreeQuota, false
	}
}

// IsFree reports whether the tier receives watermarked output.
func (t PlanTier) IsFree() bool {
	return t != PlanStandard && t != PlanUnlimited
}

// Metadata keys stored on the identity record owned by the auth provider.
const (
	MetaGenerationsUsed = "generationsUsed"
	MetaLastResetDate   = "lastResetDate"
)

// Metadata is the small key/value record persisted per identity.
type Metadata map[string]any

// Clone returns a shallow copy so callers can mutate without touching the source.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// UsageRecord mirrors the usage fields of an identity's metadata.
type UsageRecord struct {
	IdentityID      string
	Tier            PlanTier
	GenerationsUsed int
	LastResetDate   *time.Time
}

// CanGenerate reports whether another generation fits in the tier's quota.
func (r UsageRecord) CanGenerate() bool {
	limit, unbounded := r.Tier.Quota()
	if unbounded {
		return true
	}
	return r.GenerationsUsed < limit
}

// Remaining returns how many generations are left. ok is false for unbounded tiers.
func (r UsageRecord) Remaining() (remaining int, ok bool) {
	limit, unbounded := r.Tier.Quota()
	if unbounded {
		return 0, false
	}
	remaining = limit - r.GenerationsUsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
