package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/lay-engine/internal/betfair"
	"github.com/yourusername/lay-engine/internal/metrics"
	"github.com/yourusername/lay-engine/internal/models"
)

// processDecision drives a non-skipped rule decision through the bet
// pipeline: dedup, optional live submission, record, aggregate.
// Instructions are handled one at a time; dedup sets observe each
// submission before the next instruction is considered. Returns the
// number of bet records appended.
func (e *Engine) processDecision(ctx context.Context, m models.Market, d models.RuleDecision) int {
	recorded := 0
	for _, ins := range d.Instructions {
		runnerKey := models.RunnerKey(ins.RunnerName, m.RaceTime)
		selectionKey := models.SelectionKey(ins.SelectionID, m.MarketID)

		if _, dup := e.st.dedupRunners[runnerKey]; dup {
			e.logDuplicate(ins, m, "runner")
			continue
		}
		if _, dup := e.st.dedupSelections[selectionKey]; dup {
			e.logDuplicate(ins, m, "selection")
			continue
		}

		// optimistic: keys go in before the network call so a crash
		// mid-submission cannot double-bet after recovery
		e.st.dedupRunners[runnerKey] = struct{}{}
		e.st.dedupSelections[selectionKey] = struct{}{}

		record := models.BetRecord{
			RecordID:    uuid.NewString(),
			Instruction: ins,
			Liability:   ins.Liability(),
			PlacedAt:    e.now(),
			Venue:       m.Venue,
			Country:     m.Country,
			Discipline:  models.DisciplineFromMarketName(m.MarketName),
			RaceTime:    m.RaceTime,
			DryRun:      e.st.cfg.DryRun,
		}

		if e.st.cfg.DryRun {
			record.Response = models.ExchangeResponse{Status: models.ResponseDryRun}
		} else {
			started := time.Now()
			resp, err := e.client.PlaceLayOrder(ctx, ins)
			metrics.BetPlacementLatency.Observe(time.Since(started).Seconds())
			if err != nil {
				// the call itself failed; release the keys so the next
				// tick can retry this selection
				delete(e.st.dedupRunners, runnerKey)
				delete(e.st.dedupSelections, selectionKey)
				e.st.appendError(e.now(), "bet submission failed: "+err.Error())
				e.logger.WithError(err).WithField("market_id", m.MarketID).Error("bet submission failed")
				continue
			}
			record.Response = resp
			if resp.Status == models.ResponseFailure {
				metrics.BetFailuresTotal.Inc()
				if betfair.RecoverableOrderError(resp.ErrorCode) {
					delete(e.st.dedupRunners, runnerKey)
					delete(e.st.dedupSelections, selectionKey)
				}
			} else {
				e.client.InvalidateBalance()
			}
		}

		e.st.bets = append(e.st.bets, record)
		e.applyToSummary(record)
		recorded++

		mode := "live"
		if record.DryRun {
			mode = "dry_run"
		}
		metrics.BetsPlacedTotal.WithLabelValues(string(ins.RuleID), mode).Inc()
		e.logger.WithFields(logrus.Fields{
			"market_id": m.MarketID,
			"runner":    ins.RunnerName,
			"rule":      ins.RuleID,
			"price":     ins.Price,
			"size":      ins.Size.StringFixed(2),
			"status":    record.Response.Status,
			"dry_run":   record.DryRun,
		}).Info("bet recorded")
	}

	e.recordSpreadRejections(d)
	if d.JOFS != nil && e.st.session != nil {
		e.st.session.Summary.JOFSSplits++
		metrics.JOFSSplitsTotal.Inc()
	}
	return recorded
}

// recordSpreadRejections accounts legs dropped by the spread gate. A
// decision rejected in full never enters the bet pipeline, so the
// scheduler calls this for skipped decisions too.
func (e *Engine) recordSpreadRejections(d models.RuleDecision) {
	n := len(d.SpreadRejections)
	if n == 0 {
		return
	}
	if e.st.session != nil {
		e.st.session.Summary.SpreadRejections += n
	}
	metrics.SpreadRejectionsTotal.Add(float64(n))
}

// applyToSummary updates the session counters for one recorded bet.
// The summary must always equal the aggregate over the session's
// bets, so this is the only place counters move.
func (e *Engine) applyToSummary(record models.BetRecord) {
	if e.st.session == nil {
		return
	}
	s := &e.st.session.Summary
	s.Bets++
	s.Stake = s.Stake.Add(record.Instruction.Size)
	s.Liability = s.Liability.Add(record.Liability)
	if s.RuleCounts == nil {
		s.RuleCounts = make(map[models.RuleID]int)
	}
	s.RuleCounts[record.Instruction.RuleID]++
	e.st.session.BetIDs = append(e.st.session.BetIDs, record.RecordID)

	liability, _ := s.Liability.Float64()
	metrics.SessionLiability.Set(liability)
}

func (e *Engine) logDuplicate(ins models.BetInstruction, m models.Market, kind string) {
	e.logger.WithFields(logrus.Fields{
		"market_id":    m.MarketID,
		"selection_id": ins.SelectionID,
		"runner":       ins.RunnerName,
		"skip_reason":  models.SkipDuplicate,
		"dedup":        kind,
	}).Info("duplicate instruction dropped")
}
