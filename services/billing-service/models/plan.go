package models

import "strings"

// Plan is a subscription tier label.
type Plan string

const (
	PlanFree       Plan = "Free"
	PlanPro        Plan = "Pro"
	PlanTeam       Plan = "Team"
	PlanEnterprise Plan = "Enterprise"
)

var knownPlans = []Plan{PlanFree, PlanPro, PlanTeam, PlanEnterprise}

// NormalizePlan maps arbitrary input onto a Plan. Known labels match
// case-insensitively; empty input yields ""; any other non-empty value is
// passed through trimmed.
func NormalizePlan(s string) Plan {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, p := range knownPlans {
		if strings.EqualFold(s, string(p)) {
			return p
		}
	}
	return Plan(s)
}

// Known reports whether p is one of the four product tiers.
func (p Plan) Known() bool {
	for _, k := range knownPlans {
		if p == k {
			return true
		}
	}
	return false
}

// Paid reports whether p can be bought through checkout.
func (p Plan) Paid() bool {
	return p == PlanPro || p == PlanTeam || p == PlanEnterprise
}

func (p Plan) String() string { return string(p) }
