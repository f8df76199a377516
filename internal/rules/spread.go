package rules

import "github.com/yourusername/lay-engine/internal/models"

// spreadBands maps lay-price bands to the widest acceptable
// lay-minus-back spread. Prices at or above the last band's floor are
// rejected outright.
var spreadBands = []struct {
	lower, upper float64
	maxSpread    float64
}{
	{1.0, 2.0, 0.05},
	{2.0, 3.0, 0.15},
	{3.0, 5.0, 0.30},
	{5.0, 8.0, 0.50},
}

const spreadRejectFloor = 8.0

// MaxSpread returns the spread threshold for a lay price. ok is false
// when the price sits in the unconditional-reject zone.
func MaxSpread(layPrice float64) (float64, bool) {
	if layPrice >= spreadRejectFloor {
		return 0, false
	}
	for _, b := range spreadBands {
		if layPrice >= b.lower && layPrice < b.upper {
			return b.maxSpread, true
		}
	}
	return 0, false
}

// applySpreadGate drops instructions whose runner fails the liquidity
// check. If every instruction is dropped the whole decision becomes a
// spread skip; partial drops keep the decision live and record the
// rejections.
func applySpreadGate(d *models.RuleDecision, m models.Market) {
	kept := d.Instructions[:0]
	for _, ins := range d.Instructions {
		rej, ok := checkSpread(ins, m)
		if ok {
			kept = append(kept, ins)
			continue
		}
		d.SpreadRejections = append(d.SpreadRejections, rej)
	}
	d.Instructions = kept
	if len(d.Instructions) == 0 {
		d.Skipped = true
		d.SkipReason = models.SkipSpread
	}
}

func checkSpread(ins models.BetInstruction, m models.Market) (models.SpreadRejection, bool) {
	rej := models.SpreadRejection{
		SelectionID: ins.SelectionID,
		RunnerName:  ins.RunnerName,
		LayPrice:    ins.Price,
	}

	maxSpread, inBand := MaxSpread(ins.Price)
	if !inBand {
		rej.Reason = "price_in_reject_zone"
		return rej, false
	}
	rej.MaxSpread = &maxSpread

	var back *float64
	for _, r := range m.Runners {
		if r.SelectionID == ins.SelectionID {
			back = r.BestAvailableToBack
			break
		}
	}
	if back == nil {
		rej.Reason = "no_back_price"
		return rej, false
	}
	rej.BackPrice = back

	spread := ins.Price - *back
	rej.Spread = &spread
	if spread > maxSpread {
		rej.Reason = "spread_too_wide"
		return rej, false
	}
	return models.SpreadRejection{}, true
}
