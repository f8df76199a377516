package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/lay-engine/internal/models"
	"github.com/yourusername/lay-engine/internal/store"
)

const (
	evaluationsRingSize = 500
	recentBetsLimit     = 200
	recentResultsLimit  = 200
	errorsRingSize      = 50
)

// NextRaceSummary is the nearest upcoming race published each tick
type NextRaceSummary struct {
	MarketID     string    `json:"market_id"`
	MarketName   string    `json:"market_name"`
	Venue        string    `json:"venue"`
	RaceTime     time.Time `json:"race_time"`
	MinutesToOff float64   `json:"minutes_to_off"`
}

// state is the scheduler-owned mutable engine state. Only the
// scheduler tick and the control surface touch it, always under the
// engine mutex.
type state struct {
	cfg             models.EngineConfig
	date            string
	session         *models.Session
	sessionsIndex   []models.Session
	bets            []models.BetRecord
	evaluations     []models.RuleEvaluation
	trackers        map[string]*models.TrackerRecord
	dedupRunners    map[string]struct{}
	dedupSelections map[string]struct{}
	reports         []models.ReportRef
	apiKeys         []models.APIKey

	// runtime only, not persisted
	errors    []models.ErrorEvent
	results   []models.ClearedBet
	balance   decimal.Decimal
	balanceAt time.Time
	nextRace  *NextRaceSummary
}

func newState(date string, cfg models.EngineConfig) *state {
	return &state{
		cfg:             cfg,
		date:            date,
		trackers:        make(map[string]*models.TrackerRecord),
		dedupRunners:    make(map[string]struct{}),
		dedupSelections: make(map[string]struct{}),
	}
}

// stateFromDocument rebuilds runtime state from a loaded document,
// rolling it forward to today. Dedup sets are the persisted sets plus
// the keys of every recorded bet, so a document written before its
// dedup flush still blocks resubmission.
func stateFromDocument(doc *store.StateDocument, today string) (*state, bool) {
	crashed := doc.RollForward(today)

	st := newState(today, doc.Config)
	st.session = doc.Session
	st.sessionsIndex = doc.SessionsIndex
	st.bets = doc.BetsToday
	st.evaluations = doc.EvaluationsToday
	st.reports = doc.ReportsIndex
	st.apiKeys = doc.APIKeys

	for id := range doc.Trackers {
		rec := doc.Trackers[id]
		st.trackers[id] = &rec
	}
	for _, k := range doc.DedupRunners {
		st.dedupRunners[k] = struct{}{}
	}
	for _, k := range doc.DedupSelections {
		st.dedupSelections[k] = struct{}{}
	}
	for _, b := range st.bets {
		st.dedupRunners[models.RunnerKey(b.Instruction.RunnerName, b.RaceTime)] = struct{}{}
		st.dedupSelections[models.SelectionKey(b.Instruction.SelectionID, b.Instruction.MarketID)] = struct{}{}
	}
	return st, crashed
}

// toDocument snapshots the state into its persisted form. Dedup sets
// serialise sorted so identical states produce identical bytes.
func (st *state) toDocument() *store.StateDocument {
	doc := store.NewStateDocument(st.date, st.cfg.Clone())
	doc.Session = st.session
	doc.SessionsIndex = st.sessionsIndex
	doc.BetsToday = st.bets
	doc.EvaluationsToday = st.evaluations
	doc.ReportsIndex = st.reports
	doc.APIKeys = st.apiKeys

	for id, rec := range st.trackers {
		doc.Trackers[id] = *rec
	}
	doc.DedupRunners = sortedKeys(st.dedupRunners)
	doc.DedupSelections = sortedKeys(st.dedupSelections)
	return doc
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// appendEvaluation pushes onto the bounded evaluations ring
func (st *state) appendEvaluation(ev models.RuleEvaluation) {
	st.evaluations = append(st.evaluations, ev)
	if len(st.evaluations) > evaluationsRingSize {
		st.evaluations = st.evaluations[len(st.evaluations)-evaluationsRingSize:]
	}
}

// appendError pushes onto the bounded error ring, oldest dropped
func (st *state) appendError(now time.Time, msg string) {
	st.errors = append(st.errors, models.ErrorEvent{Timestamp: now, Message: msg})
	if len(st.errors) > errorsRingSize {
		st.errors = st.errors[len(st.errors)-errorsRingSize:]
	}
}

// appendResults merges cleared bets into the recent-results ring,
// deduplicated by bet id, newest kept.
func (st *state) appendResults(cleared []models.ClearedBet) {
	seen := make(map[string]bool, len(st.results))
	for _, r := range st.results {
		seen[r.BetID] = true
	}
	for _, c := range cleared {
		if c.BetID == "" || seen[c.BetID] {
			continue
		}
		st.results = append(st.results, c)
		seen[c.BetID] = true
	}
	if len(st.results) > recentResultsLimit {
		st.results = st.results[len(st.results)-recentResultsLimit:]
	}
}

// resetDay clears all day-scoped state while keeping the session
// index, report index and API keys.
func (st *state) resetDay() {
	st.bets = nil
	st.evaluations = nil
	st.trackers = make(map[string]*models.TrackerRecord)
	st.dedupRunners = make(map[string]struct{})
	st.dedupSelections = make(map[string]struct{})
	st.nextRace = nil
}
