// Package usage keeps the per-identity generation counter and the quota
// rules that gate the generation workflow.
package usage

import (
	"context"
	"fmt"

	"headshot/internal/domain"
	"headshot/internal/identity"
)

// QuotaFor returns the generation limit of a tier. unbounded is true for the
// unlimited tier, whose limit must never be compared numerically.
func QuotaFor(tier domain.PlanTier) (limit int, unbounded bool) {
	return tier.Quota()
}

// PlanResolver maps billing plan keys to a tier. Providers have spelled the
// same plan several ways over time, so each tier carries an ordered alias list.
type PlanResolver struct {
	dir       identity.Directory
	unlimited []string
	standard  []string
}

func NewPlanResolver(dir identity.Directory, unlimited, standard []string) *PlanResolver {
	return &PlanResolver{
		dir:       dir,
		unlimited: append([]string(nil), unlimited...),
		standard:  append([]string(nil), standard...),
	}
}

// Resolve checks unlimited aliases first, then standard; the first match wins.
func (r *PlanResolver) Resolve(ctx context.Context, id string) (domain.PlanTier, error) {
	tiers := []struct {
		tier    domain.PlanTier
		aliases []string
	}{
		{domain.PlanUnlimited, r.unlimited},
		{domain.PlanStandard, r.standard},
	}
	for _, t := range tiers {
		for _, alias := range t.aliases {
			has, err := r.dir.HasPlan(ctx, id, alias)
			if err != nil {
				return domain.PlanFree, fmt.Errorf("usage: resolve plan %q: %w", alias, err)
			}
			if has {
				return t.tier, nil
			}
		}
	}
	return domain.PlanFree, nil
}

// Aliases returns every configured plan key, unlimited first.
func (r *PlanResolver) Aliases(tier domain.PlanTier) []string {
	switch tier {
	case domain.PlanUnlimited:
		return append([]string(nil), r.unlimited...)
	case domain.PlanStandard:
		return append([]string(nil), r.standard...)
	}
	return nil
}
