package rules

import "github.com/yourusername/lay-engine/internal/models"

// RuleInfo describes one staking rule for display surfaces
type RuleInfo struct {
	ID          models.RuleID `json:"id"`
	Band        string        `json:"band"`
	BasePoints  int           `json:"base_points"`
	Description string        `json:"description"`
}

// Describe returns the active rule set in evaluation order
func Describe() []RuleInfo {
	return []RuleInfo{
		{models.Rule1, "fav < 2.0", rule1Points, "3 points lay on the favourite"},
		{models.Rule2, "2.0 <= fav <= 5.0", rule2Points, "2 points lay on the favourite"},
		{models.Rule3A, "fav > 5.0, gap < 2.0", rule3APoints, "1 point lay on favourite and second favourite"},
		{models.Rule3B, "fav > 5.0, gap >= 2.0", rule3BPoints, "1 point lay on the favourite"},
	}
}
