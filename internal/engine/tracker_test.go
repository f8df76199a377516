package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lay-engine/internal/models"
)

func TestNewTrackerStartsDiscovered(t *testing.T) {
	m := raceMarket("1.400", time.Hour, 3.0, 7.0)
	rec := newTracker(m)

	assert.Equal(t, models.StateDiscovered, rec.State)
	assert.Equal(t, m.MarketID, rec.MarketID)
	assert.Empty(t, rec.Snapshots)
	assert.Nil(t, rec.LastSnapshotAt)
}

func TestSnapshotDueCadence(t *testing.T) {
	m := raceMarket("1.401", time.Hour, 3.0, 7.0)
	rec := newTracker(m)

	// never snapshotted
	assert.True(t, snapshotDue(rec, testNow))

	takeSnapshot(rec, m, testNow)
	assert.False(t, snapshotDue(rec, testNow))
	assert.False(t, snapshotDue(rec, testNow.Add(4*time.Minute)))

	// interval elapsed
	assert.True(t, snapshotDue(rec, testNow.Add(5*time.Minute)))

	// race moved 5 minutes closer even though the interval has not passed
	rec.Market.RaceTime = testNow.Add(3 * time.Minute)
	assert.True(t, snapshotDue(rec, testNow.Add(time.Minute)))
}

func TestSnapshotDueIgnoresTerminalStates(t *testing.T) {
	m := raceMarket("1.402", time.Hour, 3.0, 7.0)
	rec := newTracker(m)
	rec.State = models.StateProcessed

	assert.False(t, snapshotDue(rec, testNow))
}

func TestTakeSnapshotPromotesAndBounds(t *testing.T) {
	m := raceMarket("1.403", time.Hour, 3.0, 7.0)
	rec := newTracker(m)

	takeSnapshot(rec, m, testNow)
	assert.Equal(t, models.StateMonitoring, rec.State)
	require.NotNil(t, rec.LastSnapshotAt)
	require.Len(t, rec.Snapshots, 1)
	assert.Len(t, rec.Snapshots[0].Runners, 2)

	for i := 0; i < 25; i++ {
		takeSnapshot(rec, m, testNow.Add(time.Duration(i+1)*time.Minute))
	}
	assert.Len(t, rec.Snapshots, maxSnapshotsPerMarket)
	// oldest dropped first
	assert.Equal(t, testNow.Add(6*time.Minute), rec.Snapshots[0].CapturedAt)
}

func TestMarkInWindowSkipsTerminal(t *testing.T) {
	rec := newTracker(raceMarket("1.404", 10*time.Minute, 3.0))
	markInWindow(rec)
	assert.Equal(t, models.StateInWindow, rec.State)

	rec.State = models.StateProcessed
	markInWindow(rec)
	assert.Equal(t, models.StateProcessed, rec.State)
}

func TestMarkSkippedOnlyNonTerminal(t *testing.T) {
	rec := newTracker(raceMarket("1.405", 10*time.Minute, 3.0))
	markSkipped(rec, models.SkipInPlayOrClosed)
	assert.Equal(t, models.StateSkipped, rec.State)
	assert.Equal(t, models.SkipInPlayOrClosed, rec.Reason)

	rec.State = models.StateProcessed
	rec.Reason = ""
	markSkipped(rec, models.SkipMaxOddsExceeded)
	assert.Equal(t, models.StateProcessed, rec.State)
	assert.Empty(t, rec.Reason)
}

func TestMarkExpiredAppliesToProcessed(t *testing.T) {
	rec := newTracker(raceMarket("1.406", 10*time.Minute, 3.0))
	markProcessed(rec)
	markExpired(rec)
	assert.Equal(t, models.StateExpired, rec.State)
}
