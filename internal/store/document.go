// Package store implements the dual-layer state persistence: a hot
// local JSON file plus a best-effort durable object-store blob, both
// carrying the same document schema.
package store

import (
	"time"

	"github.com/yourusername/lay-engine/internal/models"
)

// evaluationsRingSize bounds the persisted evaluations ring
const evaluationsRingSize = 500

// StateDocument is the persisted engine state. Monetary values inside
// serialise as decimal strings.
type StateDocument struct {
	Config           models.EngineConfig             `json:"config"`
	Date             string                          `json:"date"`
	Session          *models.Session                 `json:"session,omitempty"`
	SessionsIndex    []models.Session                `json:"sessions_index"`
	BetsToday        []models.BetRecord              `json:"bets_today"`
	EvaluationsToday []models.RuleEvaluation         `json:"evaluations_today"`
	Trackers         map[string]models.TrackerRecord `json:"trackers"`
	DedupRunners     []string                        `json:"dedup_runners"`
	DedupSelections  []string                        `json:"dedup_selections"`
	ReportsIndex     []models.ReportRef              `json:"reports_index"`
	APIKeys          []models.APIKey                 `json:"api_keys"`
	SavedAt          time.Time                       `json:"saved_at"`
}

// NewStateDocument returns an empty document for the given trading day
func NewStateDocument(date string, cfg models.EngineConfig) *StateDocument {
	return &StateDocument{
		Config:           cfg,
		Date:             date,
		SessionsIndex:    []models.Session{},
		BetsToday:        []models.BetRecord{},
		EvaluationsToday: []models.RuleEvaluation{},
		Trackers:         make(map[string]models.TrackerRecord),
		DedupRunners:     []string{},
		DedupSelections:  []string{},
		ReportsIndex:     []models.ReportRef{},
		APIKeys:          []models.APIKey{},
	}
}

// AppendEvaluation pushes onto the bounded evaluations ring
func (d *StateDocument) AppendEvaluation(ev models.RuleEvaluation) {
	d.EvaluationsToday = append(d.EvaluationsToday, ev)
	if len(d.EvaluationsToday) > evaluationsRingSize {
		d.EvaluationsToday = d.EvaluationsToday[len(d.EvaluationsToday)-evaluationsRingSize:]
	}
}

// RollForward adapts a loaded document to today's trading date.
// A document from an earlier date keeps only its session index, API
// keys, report index and config; day-scoped state starts empty. The
// returned flag reports whether a previously RUNNING session was found
// and marked CRASHED.
func (d *StateDocument) RollForward(today string) bool {
	crashed := false
	if d.Session != nil && d.Session.Status == models.SessionRunning {
		d.Session.Status = models.SessionCrashed
		now := time.Now()
		d.Session.StopTime = &now
		d.SessionsIndex = append(d.SessionsIndex, *d.Session)
		d.Session = nil
		crashed = true
	}

	if d.Date != today {
		d.Date = today
		d.Session = nil
		d.BetsToday = []models.BetRecord{}
		d.EvaluationsToday = []models.RuleEvaluation{}
		d.Trackers = make(map[string]models.TrackerRecord)
		d.DedupRunners = []string{}
		d.DedupSelections = []string{}
	}

	if d.Trackers == nil {
		d.Trackers = make(map[string]models.TrackerRecord)
	}
	return crashed
}
