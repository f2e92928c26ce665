package handlers

import (
	"net/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"headshot/internal/domain"
	"headshot/internal/usage"
)

type planView struct {
	Tier             domain.PlanTier `json:"tier"`
	Name             string          `json:"name"`
	PriceUSD         int             `json:"priceUsd"`
	Interval         string          `json:"interval,omitempty"`
	Generations      *int            `json:"generations"`
	Unlimited        bool            `json:"unlimited"`
	Watermarked      bool            `json:"watermarked"`
	Description      string          `json:"description"`
	UpgradeAvailable bool            `json:"upgradeAvailable"`
}

var titleCase = cases.Title(language.English)

// planTable lists the tiers in display order. Prices are shown only; billing
// happens at the provider.
func planTable(current domain.PlanTier) []planView {
	tiers := []struct {
		tier  domain.PlanTier
		price int
		desc  string
	}{
		{domain.PlanFree, 0, "1 headshot with watermark"},
		{domain.PlanStandard, 10, "5 headshots per month"},
		{domain.PlanUnlimited, 15, "Unlimited headshots"},
	}
	rank := map[domain.PlanTier]int{domain.PlanFree: 0, domain.PlanStandard: 1, domain.PlanUnlimited: 2}
	out := make([]planView, 0, len(tiers))
	for _, t := range tiers {
		limit, unbounded := usage.QuotaFor(t.tier)
		v := planView{
			Tier:             t.tier,
			Name:             titleCase.String(string(t.tier)),
			PriceUSD:         t.price,
			Unlimited:        unbounded,
			Watermarked:      t.tier.IsFree(),
			Description:      t.desc,
			UpgradeAvailable: current != "" && rank[t.tier] > rank[current],
		}
		if t.price > 0 {
			v.Interval = "month"
		}
		if !unbounded {
			n := limit
			v.Generations = &n
		}
		out = append(out, v)
	}
	return out
}

// Pricing returns the plan table and, for a signed-in caller, the current plan.
func (a *App) Pricing(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{}
	var current domain.PlanTier
	if id := a.currentIdentity(r); id != "" {
		summary, err := a.Ledger.Summary(r.Context(), id)
		if err != nil {
			a.domainError(w, r, err)
			return
		}
		current = summary.Tier
		resp["currentPlan"] = titleCase.String(string(summary.Tier))
		resp["usage"] = summary
	}
	resp["plans"] = planTable(current)
	a.json(w, http.StatusOK, resp)
}
