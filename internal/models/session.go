package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionMode distinguishes live from simulated sessions
type SessionMode string

const (
	ModeLive   SessionMode = "LIVE"
	ModeDryRun SessionMode = "DRY_RUN"
)

// SessionStatus is the lifecycle state of a trading session
type SessionStatus string

const (
	SessionRunning SessionStatus = "RUNNING"
	SessionStopped SessionStatus = "STOPPED"
	SessionCrashed SessionStatus = "CRASHED"
)

// SessionSummary aggregates a session's betting activity. Counters
// must always equal the aggregate over the session's bet records.
type SessionSummary struct {
	Bets             int             `json:"bets"`
	Stake            decimal.Decimal `json:"stake"`
	Liability        decimal.Decimal `json:"liability"`
	MarketsProcessed int             `json:"markets_processed"`
	SpreadRejections int             `json:"spread_rejections"`
	JOFSSplits       int             `json:"jofs_splits"`
	RuleCounts       map[RuleID]int  `json:"rule_counts,omitempty"`
}

// NewSessionSummary returns a zeroed summary with initialised maps
func NewSessionSummary() SessionSummary {
	return SessionSummary{
		Stake:      decimal.Zero,
		Liability:  decimal.Zero,
		RuleCounts: make(map[RuleID]int),
	}
}

// Session is one operator-initiated run of the engine within a trading
// day. At most one session is RUNNING at a time.
type Session struct {
	SessionID string         `json:"session_id"`
	Date      string         `json:"date"`
	StartTime time.Time      `json:"start_time"`
	StopTime  *time.Time     `json:"stop_time,omitempty"`
	Mode      SessionMode    `json:"mode"`
	Countries []string       `json:"countries"`
	Status    SessionStatus  `json:"status"`
	Summary   SessionSummary `json:"summary"`
	BetIDs    []string       `json:"bets"`
}
