// Package classifier scores generated parlay sets: variety, template risk,
// pairwise conflicts, and combined odds. All functions are pure and
// advisory; the engine never rejects output based on them.
package classifier

import (
	"sort"
	"strings"

	"parlaygen/internal/types"
)

// Risk grades how closely a set matches a known generic pattern.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// templatePatterns are sorted multisets of bet types that show up over and
// over in generic parlay output.
var templatePatterns = [][]types.BetType{
	{types.BetPlayerRushing, types.BetSpread, types.BetTotal},
	{types.BetPlayerPassing, types.BetPlayerReceiving, types.BetPlayerRushing},
	{types.BetMoneyline, types.BetSpread, types.BetTotal},
}

// VarietyScore measures bet-type diversity across a set: unique bet types
// over total legs, plus 0.1 per additional distinct category beyond the
// first, capped at 1.0.
func VarietyScore(legs []types.Leg) float64 {
	if len(legs) == 0 {
		return 0
	}

	uniqueTypes := make(map[types.BetType]struct{})
	uniqueCategories := make(map[types.Category]struct{})
	for i := range legs {
		uniqueTypes[legs[i].BetType] = struct{}{}
		uniqueCategories[legs[i].BetType.Category()] = struct{}{}
	}

	score := float64(len(uniqueTypes)) / float64(len(legs))
	if len(uniqueCategories) > 1 {
		score += 0.1 * float64(len(uniqueCategories)-1)
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// IsTemplatePattern reports whether the set's sorted bet-type multiset
// matches a known template, or all legs fall in one category.
func IsTemplatePattern(legs []types.Leg) bool {
	if len(legs) == 0 {
		return false
	}

	sorted := make([]string, len(legs))
	for i := range legs {
		sorted[i] = string(legs[i].BetType)
	}
	sort.Strings(sorted)
	key := strings.Join(sorted, "|")

	for _, pattern := range templatePatterns {
		if len(pattern) != len(sorted) {
			continue
		}
		names := make([]string, len(pattern))
		for i, bt := range pattern {
			names[i] = string(bt)
		}
		sort.Strings(names)
		if strings.Join(names, "|") == key {
			return true
		}
	}

	first := legs[0].BetType.Category()
	for i := 1; i < len(legs); i++ {
		if legs[i].BetType.Category() != first {
			return false
		}
	}
	return true
}

// TemplateRisk grades a matched template inversely to the variety score.
// Unmatched sets are low risk.
func TemplateRisk(legs []types.Leg) Risk {
	if !IsTemplatePattern(legs) {
		return RiskLow
	}
	variety := VarietyScore(legs)
	switch {
	case variety >= 0.8:
		return RiskLow
	case variety >= 0.6:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Conflict records a pair of legs that cannot be sensibly combined.
type Conflict struct {
	LegA   int    `json:"legA"`
	LegB   int    `json:"legB"`
	Reason string `json:"reason"`
}

// ConflictsWith applies the pairwise rule set: spread conflicts with
// moneyline, total conflicts with team total, and two player props on the
// same selection with different bet types conflict.
func ConflictsWith(a, b types.Leg) bool {
	pair := func(x, y types.BetType) bool {
		return (a.BetType == x && b.BetType == y) || (a.BetType == y && b.BetType == x)
	}
	if pair(types.BetSpread, types.BetMoneyline) {
		return true
	}
	if pair(types.BetTotal, types.BetTeamTotal) {
		return true
	}
	if a.BetType.IsPlayerProp() && b.BetType.IsPlayerProp() &&
		a.BetType != b.BetType &&
		strings.EqualFold(strings.TrimSpace(a.Selection), strings.TrimSpace(b.Selection)) {
		return true
	}
	return false
}

// Conflicts returns every conflicting pair in the set.
func Conflicts(legs []types.Leg) []Conflict {
	var out []Conflict
	for i := 0; i < len(legs); i++ {
		for j := i + 1; j < len(legs); j++ {
			if ConflictsWith(legs[i], legs[j]) {
				out = append(out, Conflict{
					LegA:   i,
					LegB:   j,
					Reason: string(legs[i].BetType) + " vs " + string(legs[j].BetType),
				})
			}
		}
	}
	return out
}

// Classification is the full advisory report for a generated set.
type Classification struct {
	VarietyScore        float64    `json:"varietyScore"`
	TemplateRisk        Risk       `json:"templateRisk"`
	IsTemplate          bool       `json:"isTemplate"`
	Conflicts           []Conflict `json:"conflicts,omitempty"`
	ValidForCombination bool       `json:"validForCombination"`
}

// Assess runs the full classifier over a set.
func Assess(set *types.GeneratedSet) Classification {
	conflicts := Conflicts(set.Legs)
	return Classification{
		VarietyScore:        VarietyScore(set.Legs),
		TemplateRisk:        TemplateRisk(set.Legs),
		IsTemplate:          IsTemplatePattern(set.Legs),
		Conflicts:           conflicts,
		ValidForCombination: len(conflicts) == 0,
	}
}
