package models

import "time"

// TrackerState is the lifecycle state of a tracked market
type TrackerState string

const (
	StateDiscovered TrackerState = "DISCOVERED"
	StateMonitoring TrackerState = "MONITORING"
	StateInWindow   TrackerState = "IN_WINDOW"
	StateProcessed  TrackerState = "PROCESSED"
	StateExpired    TrackerState = "EXPIRED"
	StateSkipped    TrackerState = "SKIPPED"
)

// Terminal reports whether no further bets may be placed via this state
func (s TrackerState) Terminal() bool {
	switch s {
	case StateProcessed, StateExpired, StateSkipped:
		return true
	}
	return false
}

// TrackerRecord is the persisted form of a market tracker: the state
// machine position plus its bounded snapshot history.
type TrackerRecord struct {
	MarketID       string         `json:"market_id"`
	State          TrackerState   `json:"state"`
	Reason         string         `json:"reason,omitempty"`
	Market         Market         `json:"market"`
	Snapshots      []OddsSnapshot `json:"snapshots,omitempty"`
	LastSnapshotAt *time.Time     `json:"last_snapshot_at,omitempty"`
}
