package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func TestTickSizeLadder(t *testing.T) {
	cases := map[float64]float64{
		1.01: 0.01,
		1.99: 0.01,
		2.00: 0.02,
		2.98: 0.02,
		3.00: 0.05,
		4.00: 0.1,
		6.00: 0.2,
		10.0: 0.5,
		20.0: 1,
		30.0: 2,
		50.0: 5,
		990:  5,
	}
	for price, want := range cases {
		assert.Equal(t, want, TickSize(price), "price %v", price)
	}
}

func TestSnapToTick(t *testing.T) {
	assert.Equal(t, 1.01, SnapToTick(0.5))
	assert.Equal(t, 1.85, SnapToTick(1.848))
	assert.Equal(t, 2.04, SnapToTick(2.03))
	assert.Equal(t, 4.1, SnapToTick(4.07))
	assert.Equal(t, 7.0, SnapToTick(7.0))
}

func TestWithinOneTick(t *testing.T) {
	assert.True(t, WithinOneTick(4.00, 4.00))
	assert.True(t, WithinOneTick(4.00, 4.10))
	assert.True(t, WithinOneTick(4.10, 4.00))
	assert.False(t, WithinOneTick(4.00, 4.30))
	assert.True(t, WithinOneTick(1.50, 1.51))
	assert.False(t, WithinOneTick(1.50, 1.53))
}

func TestAssignSortPriorities(t *testing.T) {
	m := Market{Runners: []Runner{
		{SelectionID: 1, Name: "A", BestAvailableToLay: fp(8.0)},
		{SelectionID: 2, Name: "B", BestAvailableToLay: fp(2.5)},
		{SelectionID: 3, Name: "C"},
		{SelectionID: 4, Name: "D", BestAvailableToLay: fp(4.0)},
	}}

	m.AssignSortPriorities()

	require.NotNil(t, m.Favourite())
	assert.Equal(t, int64(2), m.Favourite().SelectionID)
	assert.Equal(t, int64(4), m.SecondFavourite().SelectionID)
	assert.Equal(t, 3, m.Runners[0].SortPriority)
	// unpriced runner ranks last
	assert.Equal(t, 4, m.Runners[2].SortPriority)
}

func TestDisciplineFromMarketName(t *testing.T) {
	assert.Equal(t, DisciplineJumps, DisciplineFromMarketName("2m Nov Hrd"))
	assert.Equal(t, DisciplineJumps, DisciplineFromMarketName("3m1f Chs"))
	assert.Equal(t, DisciplineFlat, DisciplineFromMarketName("1m Hcap"))
	assert.Equal(t, DisciplineFlat, DisciplineFromMarketName("6f Mdn Stks"))
	assert.Equal(t, DisciplineUnknown, DisciplineFromMarketName("To Be Placed"))
}

func TestEngineConfigValidate(t *testing.T) {
	cfg := DefaultEngineConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.ProcessWindowMinutes = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Countries = []string{"US"}
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.PointValue = 3
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.MaxLayOdds = 1.5
	assert.Error(t, bad.Validate())
}

func TestEngineConfigCloneIsDeep(t *testing.T) {
	cfg := DefaultEngineConfig()
	clone := cfg.Clone()
	clone.Countries[0] = "ZA"

	assert.Equal(t, "GB", cfg.Countries[0])
}

func TestNewOddsSnapshotCapturesAllRunners(t *testing.T) {
	now := time.Now()
	m := Market{
		RaceTime: now.Add(30 * time.Minute),
		Runners: []Runner{
			{SelectionID: 1, Name: "A", BestAvailableToLay: fp(2.0), BestAvailableToBack: fp(1.95)},
			{SelectionID: 2, Name: "B"},
		},
	}

	snap := NewOddsSnapshot(m, now)

	require.Len(t, snap.Runners, 2)
	assert.InDelta(t, 30.0, snap.MinutesToOff, 0.01)
	assert.Equal(t, 2.0, *snap.Runners[0].Lay)
	assert.Nil(t, snap.Runners[1].Lay)
}

func TestTrackerStateTerminal(t *testing.T) {
	assert.True(t, StateProcessed.Terminal())
	assert.True(t, StateExpired.Terminal())
	assert.True(t, StateSkipped.Terminal())
	assert.False(t, StateMonitoring.Terminal())
	assert.False(t, StateInWindow.Terminal())
}

func TestAPIKeyPreviewMasksMiddle(t *testing.T) {
	k := APIKey{Key: "chm_0123456789abcdef"}
	assert.Equal(t, "chm_0123...cdef", k.Preview())
}
