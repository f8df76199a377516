package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/lay-engine/internal/metrics"
	"github.com/yourusername/lay-engine/internal/models"
	"github.com/yourusername/lay-engine/internal/rules"
)

const (
	universeRefreshInterval  = 5 * time.Minute
	flushInterval            = 150 * time.Second
	bookFetchTimeout         = 10 * time.Second
	maxConcurrentBookFetches = 8
)

// runLoop drives the tick cadence until done is closed or the tick
// itself demotes the engine out of RUNNING.
func (e *Engine) runLoop(done, stopped chan struct{}) {
	defer close(stopped)

	e.mu.Lock()
	interval := time.Duration(e.st.cfg.PollIntervalSeconds) * time.Second
	e.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.tick(context.Background(), done)
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			e.tick(context.Background(), done)
			if e.Status() != StatusRunning {
				return
			}
			// poll interval is hot-swappable between ticks
			e.mu.Lock()
			next := time.Duration(e.st.cfg.PollIntervalSeconds) * time.Second
			e.mu.Unlock()
			if next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// tick runs one full scheduler pass under the engine mutex. The mutex
// spans book fetches as well, so control operations and the tick never
// interleave on a half-evaluated market.
func (e *Engine) tick(ctx context.Context, done chan struct{}) {
	started := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		elapsed := time.Since(started)
		metrics.TicksTotal.Inc()
		metrics.TickDuration.Observe(elapsed.Seconds())
		// soft budget: half the poll interval
		if budget := time.Duration(e.st.cfg.PollIntervalSeconds) * time.Second / 2; elapsed > budget {
			e.logger.WithField("elapsed", elapsed.String()).Warn("tick overran its soft budget")
		}
	}()

	if e.status != StatusRunning {
		return
	}

	if !e.ensureSessionLocked(ctx) {
		return
	}

	now := e.now()
	if today := e.today(); today != e.st.date {
		e.rolloverLocked(ctx, today)
		now = e.now()
	}

	e.refreshUniverseLocked(ctx, now)
	e.refreshBalanceLocked(ctx, now)

	// partition trackers into the tick's cohorts
	window := float64(e.st.cfg.ProcessWindowMinutes)
	var inWindow, monitoring []*models.TrackerRecord
	for _, rec := range e.st.trackers {
		mins := rec.Market.MinutesToOff(now)
		switch {
		case mins <= 0:
			if rec.State != models.StateExpired {
				markExpired(rec)
			}
		case mins <= window:
			if !rec.State.Terminal() {
				inWindow = append(inWindow, rec)
			}
		default:
			if snapshotDue(rec, now) {
				monitoring = append(monitoring, rec)
			}
		}
	}

	books := e.fetchBooks(ctx, inWindow, monitoring)

	for _, rec := range monitoring {
		res := books[rec.MarketID]
		if res.err != nil {
			e.logger.WithError(res.err).WithField("market_id", rec.MarketID).Warn("snapshot book fetch failed")
			continue
		}
		// a market that goes in-play or whose favourite drifts past the
		// lay ceiling before the window is done for the day
		if reason, out := e.monitoringSkipReason(res.market); out {
			rec.Market = res.market
			markSkipped(rec, reason)
			e.logger.WithFields(logrus.Fields{
				"market_id":   rec.MarketID,
				"venue":       res.market.Venue,
				"skip_reason": reason,
			}).Info("monitored market skipped")
			continue
		}
		takeSnapshot(rec, res.market, now)
	}

	// bets are submitted serially in race-time order, earliest off first
	sort.Slice(inWindow, func(a, b int) bool {
		if !inWindow[a].Market.RaceTime.Equal(inWindow[b].Market.RaceTime) {
			return inWindow[a].Market.RaceTime.Before(inWindow[b].Market.RaceTime)
		}
		return inWindow[a].MarketID < inWindow[b].MarketID
	})

	betRecorded := false
	for _, rec := range inWindow {
		res := books[rec.MarketID]
		if res.err != nil {
			e.st.appendError(now, "book fetch failed for "+rec.MarketID+": "+res.err.Error())
			e.logger.WithError(res.err).WithField("market_id", rec.MarketID).Warn("book fetch failed, will retry next tick")
			continue
		}
		markInWindow(rec)
		rec.Market = res.market

		d := rules.Evaluate(res.market, e.st.cfg)
		e.st.appendEvaluation(models.RuleEvaluation{
			MarketID:    res.market.MarketID,
			MarketName:  res.market.MarketName,
			Venue:       res.market.Venue,
			RaceTime:    res.market.RaceTime,
			Decision:    d,
			EvaluatedAt: now,
		})
		outcome := "bet"
		if d.Skipped {
			outcome = d.SkipReason
		}
		metrics.EvaluationsTotal.WithLabelValues(outcome).Inc()

		if d.Skipped {
			e.recordSpreadRejections(d)
			switch d.SkipReason {
			case models.SkipInPlayOrClosed, models.SkipMaxOddsExceeded:
				markSkipped(rec, d.SkipReason)
			default:
				markProcessed(rec)
			}
			e.logger.WithFields(logrus.Fields{
				"market_id":   res.market.MarketID,
				"venue":       res.market.Venue,
				"skip_reason": d.SkipReason,
			}).Info("market skipped")
			continue
		}

		if stopRequested(done) {
			// stop arrived mid-tick; never submit past this point
			break
		}
		if e.processDecision(ctx, res.market, d) > 0 {
			betRecorded = true
		}
		markProcessed(rec)
		if e.st.session != nil {
			e.st.session.Summary.MarketsProcessed++
		}
	}

	e.publishTrackerGauges()
	e.st.nextRace = e.nextRaceLocked(now)

	if betRecorded || now.Sub(e.lastFlush) >= flushInterval {
		e.flushLocked(ctx)
	}
}

// ensureSessionLocked keeps the exchange session alive. One silent
// retry per tick; a second failure halts the scheduler in AUTH_FAILED
// until the operator intervenes.
func (e *Engine) ensureSessionLocked(ctx context.Context) bool {
	if err := e.client.EnsureSession(ctx); err != nil {
		e.logger.WithError(err).Warn("session refresh failed, retrying once")
		if err = e.client.EnsureSession(ctx); err != nil {
			e.status = StatusAuthFailed
			e.st.appendError(e.now(), "authentication failed: "+err.Error())
			e.logger.WithError(err).Error("authentication failed twice, scheduler halted")
			e.flushLocked(ctx)
			return false
		}
	}
	return true
}

// rolloverLocked closes out the old trading day and opens a new one.
// The running session is stopped and flushed; a fresh session keyed to
// the new date takes over.
func (e *Engine) rolloverLocked(ctx context.Context, today string) {
	e.logger.WithFields(logrus.Fields{"from": e.st.date, "to": today}).Info("trading day rollover")
	if e.st.session != nil && e.st.session.Status == models.SessionRunning {
		t := e.now()
		e.st.session.Status = models.SessionStopped
		e.st.session.StopTime = &t
	}
	e.flushLocked(ctx)

	e.st.date = today
	e.st.resetDay()
	e.st.errors = nil
	e.st.results = nil
	e.openSessionLocked()
	e.forceRefresh = true
	e.flushLocked(ctx)
}

// refreshUniverseLocked merges today's win markets into the tracker
// map, at most once every five minutes unless a refresh was forced.
func (e *Engine) refreshUniverseLocked(ctx context.Context, now time.Time) {
	if !e.forceRefresh && now.Sub(e.lastUniverseRefresh) < universeRefreshInterval {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, bookFetchTimeout)
	markets, err := e.client.ListTodaysWinMarkets(cctx, e.st.cfg.Countries)
	cancel()
	if err != nil {
		e.st.appendError(now, "market discovery failed: "+err.Error())
		e.logger.WithError(err).Error("market discovery failed")
		return
	}
	added := 0
	for _, m := range markets {
		rec, known := e.st.trackers[m.MarketID]
		if !known {
			e.st.trackers[m.MarketID] = newTracker(m)
			added++
			continue
		}
		if !rec.State.Terminal() {
			// keep the tracker's book, refresh catalogue metadata
			rec.Market.MarketName = m.MarketName
			rec.Market.Venue = m.Venue
			rec.Market.RaceTime = m.RaceTime
		}
	}
	e.lastUniverseRefresh = now
	e.forceRefresh = false
	e.logger.WithFields(logrus.Fields{
		"markets": len(markets),
		"new":     added,
	}).Info("market universe refreshed")
}

func (e *Engine) refreshBalanceLocked(ctx context.Context, now time.Time) {
	cctx, cancel := context.WithTimeout(ctx, bookFetchTimeout)
	balance, err := e.client.GetBalance(cctx)
	cancel()
	if err != nil {
		e.logger.WithError(err).Debug("balance refresh failed")
		return
	}
	e.st.balance = balance
	e.st.balanceAt = now
	f, _ := balance.Float64()
	metrics.AccountBalance.Set(f)
}

// monitoringSkipReason decides whether a pre-window market is already
// unbettable on a monitoring fetch
func (e *Engine) monitoringSkipReason(m models.Market) (string, bool) {
	if m.InPlay || m.Status == models.MarketClosed {
		return models.SkipInPlayOrClosed, true
	}
	fav := m.Favourite()
	if fav != nil && fav.BestAvailableToLay != nil && *fav.BestAvailableToLay > e.st.cfg.MaxLayOdds {
		return models.SkipMaxOddsExceeded, true
	}
	return "", false
}

type bookResult struct {
	market models.Market
	err    error
}

// fetchBooks fans out book requests across a bounded worker pool. The
// in-window cohort gets the deep book the spread gate needs; the
// monitoring cohort only needs best prices.
func (e *Engine) fetchBooks(ctx context.Context, inWindow, monitoring []*models.TrackerRecord) map[string]bookResult {
	type job struct {
		market models.Market
		deep   bool
	}
	jobs := make([]job, 0, len(inWindow)+len(monitoring))
	for _, rec := range inWindow {
		jobs = append(jobs, job{market: rec.Market, deep: true})
	}
	for _, rec := range monitoring {
		jobs = append(jobs, job{market: rec.Market, deep: false})
	}
	if len(jobs) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]bookResult, len(jobs))
		sem     = make(chan struct{}, maxConcurrentBookFetches)
	)
	for _, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()
			cctx, cancel := context.WithTimeout(ctx, bookFetchTimeout)
			defer cancel()
			var (
				m   models.Market
				err error
			)
			if j.deep {
				m, err = e.client.GetBookFull(cctx, j.market)
			} else {
				m, err = e.client.GetBook(cctx, j.market)
			}
			mu.Lock()
			results[j.market.MarketID] = bookResult{market: m, err: err}
			mu.Unlock()
		}(j)
	}
	wg.Wait()
	return results
}

func (e *Engine) publishTrackerGauges() {
	counts := make(map[models.TrackerState]int)
	for _, rec := range e.st.trackers {
		counts[rec.State]++
	}
	for _, s := range []models.TrackerState{
		models.StateDiscovered, models.StateMonitoring, models.StateInWindow,
		models.StateProcessed, models.StateExpired, models.StateSkipped,
	} {
		metrics.TrackedMarkets.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// nextRaceLocked finds the nearest upcoming monitored or in-window race
func (e *Engine) nextRaceLocked(now time.Time) *NextRaceSummary {
	var best *models.TrackerRecord
	for _, rec := range e.st.trackers {
		if rec.State != models.StateMonitoring && rec.State != models.StateInWindow && rec.State != models.StateDiscovered {
			continue
		}
		if rec.Market.MinutesToOff(now) <= 0 {
			continue
		}
		if best == nil || rec.Market.RaceTime.Before(best.Market.RaceTime) {
			best = rec
		}
	}
	if best == nil {
		return nil
	}
	return &NextRaceSummary{
		MarketID:     best.MarketID,
		MarketName:   best.Market.MarketName,
		Venue:        best.Market.Venue,
		RaceTime:     best.Market.RaceTime,
		MinutesToOff: best.Market.MinutesToOff(now),
	}
}

func stopRequested(done chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}
