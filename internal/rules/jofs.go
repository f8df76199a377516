package rules

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/lay-engine/internal/models"
)

// applyJOFS splits the favourite's stake across joint or close-odds
// favourites. J is the set of priced runners whose lay odds equal the
// favourite's or sit within one exchange tick of it. The split
// replaces only the favourite's instruction; any second-favourite leg
// is left as is.
func applyJOFS(d *models.RuleDecision, m models.Market, fav *models.Runner) {
	if len(d.Instructions) == 0 || fav == nil || !fav.HasLayPrice() {
		return
	}
	favOdds := *fav.BestAvailableToLay

	joint := make([]*models.Runner, 0, 2)
	for i := range m.Runners {
		r := &m.Runners[i]
		if !r.HasLayPrice() {
			continue
		}
		if models.WithinOneTick(favOdds, *r.BestAvailableToLay) {
			joint = append(joint, r)
		}
	}
	if len(joint) < 2 {
		return
	}

	var favIns *models.BetInstruction
	rest := make([]models.BetInstruction, 0, len(d.Instructions))
	for i := range d.Instructions {
		if d.Instructions[i].SelectionID == fav.SelectionID {
			favIns = &d.Instructions[i]
		} else {
			rest = append(rest, d.Instructions[i])
		}
	}
	if favIns == nil {
		return
	}

	n := decimal.NewFromInt(int64(len(joint)))
	sizeEach := favIns.Size.Div(n).RoundDown(2)
	if sizeEach.LessThan(models.ExchangeMinStake) {
		return
	}

	split := models.JOFSSplit{
		RuleID:    d.RuleID,
		SizeEach:  sizeEach.StringFixed(2),
		TotalSize: favIns.Size.StringFixed(2),
	}
	out := make([]models.BetInstruction, 0, len(joint)+len(rest))
	for _, r := range joint {
		// a joint runner already carrying its own leg keeps that leg;
		// the pipeline's selection dedup drops the later duplicate
		out = append(out, models.BetInstruction{
			MarketID:    favIns.MarketID,
			SelectionID: r.SelectionID,
			RunnerName:  r.Name,
			Price:       *r.BestAvailableToLay,
			Size:        sizeEach,
			RuleID:      d.RuleID,
		})
		split.Runners = append(split.Runners, r.Name)
	}
	d.Instructions = append(out, rest...)
	d.JOFS = &split
}
