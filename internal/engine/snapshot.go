package engine

import (
	"time"

	"github.com/yourusername/lay-engine/internal/models"
)

// StateSnapshot is the read model served to operators. Everything in
// it is copied out under the engine mutex; callers may hold it freely.
type StateSnapshot struct {
	Status            Status                 `json:"status"`
	DryRun            bool                   `json:"dry_run"`
	Date              string                 `json:"date"`
	SessionID         string                 `json:"session_id,omitempty"`
	SessionStart      *time.Time             `json:"session_start,omitempty"`
	Countries         []string               `json:"countries"`
	Config            models.EngineConfig    `json:"config"`
	Balance           string                 `json:"balance"`
	BalanceAgeSeconds *float64               `json:"balance_age_seconds,omitempty"`
	Summary           *models.SessionSummary `json:"summary,omitempty"`
	NextRace          *NextRaceSummary       `json:"next_race,omitempty"`
	RecentBets        []models.BetRecord     `json:"recent_bets"`
	RecentResults     []models.ClearedBet    `json:"recent_results"`
	Errors            []models.ErrorEvent    `json:"errors"`
	TrackersSummary   map[string]int         `json:"trackers_summary"`
}

// Snapshot assembles the current read model
func (e *Engine) Snapshot() StateSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	snap := StateSnapshot{
		Status:          e.status,
		DryRun:          e.st.cfg.DryRun,
		Date:            e.st.date,
		Countries:       append([]string(nil), e.st.cfg.Countries...),
		Config:          e.st.cfg.Clone(),
		Balance:         e.st.balance.StringFixed(2),
		NextRace:        e.st.nextRace,
		RecentBets:      tailBets(e.st.bets, recentBetsLimit),
		RecentResults:   append([]models.ClearedBet(nil), e.st.results...),
		Errors:          append([]models.ErrorEvent(nil), e.st.errors...),
		TrackersSummary: make(map[string]int),
	}
	if e.st.session != nil {
		snap.SessionID = e.st.session.SessionID
		start := e.st.session.StartTime
		snap.SessionStart = &start
		summary := e.st.session.Summary
		snap.Summary = &summary
	}
	if !e.st.balanceAt.IsZero() {
		age := now.Sub(e.st.balanceAt).Seconds()
		snap.BalanceAgeSeconds = &age
	}
	for _, rec := range e.st.trackers {
		snap.TrackersSummary[string(rec.State)]++
	}
	return snap
}

// tailBets returns the newest n records, newest last
func tailBets(bets []models.BetRecord, n int) []models.BetRecord {
	if len(bets) > n {
		bets = bets[len(bets)-n:]
	}
	return append([]models.BetRecord(nil), bets...)
}
