// Package rules implements the lay staking rule set. Evaluation is a
// pure function of (market, config): no state, no I/O, no clock.
package rules

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/lay-engine/internal/models"
)

// Base stakes in points per rule
const (
	rule1Points  = 3
	rule2Points  = 2
	rule3APoints = 1
	rule3BPoints = 1
)

// Odds band boundaries for rule selection
const (
	rule1UpperOdds = 2.0
	rule2UpperOdds = 5.0
	rule3AGap      = 2.0
)

// Evaluate runs the decision ladder against a market's current book.
// Guards first, then rule selection, then the spread gate and JOFS
// split when enabled.
func Evaluate(m models.Market, cfg models.EngineConfig) models.RuleDecision {
	if m.InPlay || m.Status != models.MarketOpen {
		return skip(models.SkipInPlayOrClosed, nil, nil)
	}

	fav := m.Favourite()
	if fav == nil || !fav.HasLayPrice() {
		return skip(models.SkipNoPrice, nil, nil)
	}
	favView := viewOf(fav)

	second := m.SecondFavourite()
	var secondView *models.RunnerView
	if second != nil && second.HasLayPrice() {
		secondView = viewOf(second)
	}

	favOdds := *fav.BestAvailableToLay
	if favOdds > cfg.MaxLayOdds {
		return skip(models.SkipMaxOddsExceeded, favView, secondView)
	}
	if favOdds < cfg.MinOdds {
		return skip(models.SkipBelowMinOdds, favView, secondView)
	}

	ruleID, stakes := selectRule(favView, secondView)

	decision := models.RuleDecision{
		RuleID:          ruleID,
		Favourite:       favView,
		SecondFavourite: secondView,
	}

	pointValue := decimal.NewFromInt(int64(cfg.PointValue))
	for _, s := range stakes {
		size := decimal.NewFromInt(int64(s.points)).Mul(pointValue).Round(2)
		if size.LessThan(models.ExchangeMinStake) {
			size = models.ExchangeMinStake
		}
		decision.Instructions = append(decision.Instructions, models.BetInstruction{
			MarketID:    m.MarketID,
			SelectionID: s.runner.SelectionID,
			RunnerName:  s.runner.Name,
			Price:       s.runner.Odds,
			Size:        size,
			RuleID:      ruleID,
		})
	}

	if cfg.SpreadControlEnabled {
		applySpreadGate(&decision, m)
		if decision.Skipped {
			return decision
		}
	}

	if cfg.JOFSEnabled {
		applyJOFS(&decision, m, fav)
	}

	return decision
}

type stake struct {
	runner *models.RunnerView
	points int
}

// selectRule picks the rule band for the favourite's odds. Bands are
// left-inclusive; the 2.0 and 5.0 boundaries both fall to RULE_2.
func selectRule(fav, second *models.RunnerView) (models.RuleID, []stake) {
	switch {
	case fav.Odds < rule1UpperOdds:
		return models.Rule1, []stake{{runner: fav, points: rule1Points}}
	case fav.Odds <= rule2UpperOdds:
		return models.Rule2, []stake{{runner: fav, points: rule2Points}}
	default:
		if second != nil && second.Odds-fav.Odds < rule3AGap {
			return models.Rule3A, []stake{
				{runner: fav, points: rule3APoints},
				{runner: second, points: rule3APoints},
			}
		}
		return models.Rule3B, []stake{{runner: fav, points: rule3BPoints}}
	}
}

func viewOf(r *models.Runner) *models.RunnerView {
	v := models.RunnerView{SelectionID: r.SelectionID, Name: r.Name}
	if r.BestAvailableToLay != nil {
		v.Odds = *r.BestAvailableToLay
	}
	return &v
}

func skip(reason string, fav, second *models.RunnerView) models.RuleDecision {
	return models.RuleDecision{
		RuleID:          models.RuleNone,
		Skipped:         true,
		SkipReason:      reason,
		Favourite:       fav,
		SecondFavourite: second,
	}
}
