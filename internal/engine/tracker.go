package engine

import (
	"time"

	"github.com/yourusername/lay-engine/internal/models"
)

const (
	// snapshot cadence while a market is monitored pre-window
	maxSnapshotsPerMarket = 20
	snapshotMinInterval   = 5 * time.Minute
	snapshotMinOffDelta   = 5.0
)

// newTracker starts tracking a freshly discovered market
func newTracker(m models.Market) *models.TrackerRecord {
	return &models.TrackerRecord{
		MarketID: m.MarketID,
		State:    models.StateDiscovered,
		Market:   m,
	}
}

// snapshotDue reports whether the monitoring cadence calls for a new
// odds snapshot: every 5 minutes, or sooner when the race has moved 5
// minutes closer since the last capture.
func snapshotDue(rec *models.TrackerRecord, now time.Time) bool {
	if rec.State != models.StateDiscovered && rec.State != models.StateMonitoring {
		return false
	}
	if rec.LastSnapshotAt == nil {
		return true
	}
	if now.Sub(*rec.LastSnapshotAt) >= snapshotMinInterval {
		return true
	}
	if n := len(rec.Snapshots); n > 0 {
		last := rec.Snapshots[n-1].MinutesToOff
		if last-rec.Market.MinutesToOff(now) >= snapshotMinOffDelta {
			return true
		}
	}
	return false
}

// takeSnapshot appends an odds snapshot and promotes DISCOVERED
// markets into MONITORING. Bounded at 20 snapshots, oldest dropped.
func takeSnapshot(rec *models.TrackerRecord, m models.Market, now time.Time) {
	rec.Market = m
	rec.Snapshots = append(rec.Snapshots, models.NewOddsSnapshot(m, now))
	if len(rec.Snapshots) > maxSnapshotsPerMarket {
		rec.Snapshots = rec.Snapshots[len(rec.Snapshots)-maxSnapshotsPerMarket:]
	}
	t := now
	rec.LastSnapshotAt = &t
	if rec.State == models.StateDiscovered {
		rec.State = models.StateMonitoring
	}
}

func markInWindow(rec *models.TrackerRecord) {
	if !rec.State.Terminal() {
		rec.State = models.StateInWindow
	}
}

// markProcessed is terminal for the trading day and prevents re-bets
// on re-scan.
func markProcessed(rec *models.TrackerRecord) {
	rec.State = models.StateProcessed
}

// markExpired applies to every state once the off has passed,
// including PROCESSED.
func markExpired(rec *models.TrackerRecord) {
	rec.State = models.StateExpired
}

func markSkipped(rec *models.TrackerRecord, reason string) {
	if !rec.State.Terminal() {
		rec.State = models.StateSkipped
		rec.Reason = reason
	}
}
