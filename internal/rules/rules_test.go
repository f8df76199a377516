package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lay-engine/internal/models"
)

func fptr(v float64) *float64 { return &v }

func testConfig() models.EngineConfig {
	cfg := models.DefaultEngineConfig()
	cfg.MinOdds = 1.0
	return cfg
}

func twoRunnerMarket(favLay, secondLay float64) models.Market {
	return models.Market{
		MarketID:   "1.234",
		MarketName: "2m Hcap",
		Venue:      "Ascot",
		Country:    "GB",
		RaceTime:   time.Now().Add(10 * time.Minute),
		Status:     models.MarketOpen,
		Runners: []models.Runner{
			{SelectionID: 101, Name: "Alpha", SortPriority: 1, BestAvailableToLay: fptr(favLay)},
			{SelectionID: 102, Name: "Bravo", SortPriority: 2, BestAvailableToLay: fptr(secondLay)},
			{SelectionID: 103, Name: "Charlie", SortPriority: 3, BestAvailableToLay: fptr(20.0)},
		},
	}
}

func TestEvaluateSkipsInPlay(t *testing.T) {
	m := twoRunnerMarket(1.80, 4.50)
	m.InPlay = true

	d := Evaluate(m, testConfig())

	assert.True(t, d.Skipped)
	assert.Equal(t, models.SkipInPlayOrClosed, d.SkipReason)
	assert.Empty(t, d.Instructions)
}

func TestEvaluateSkipsNonOpenMarket(t *testing.T) {
	m := twoRunnerMarket(1.80, 4.50)
	m.Status = models.MarketSuspended

	d := Evaluate(m, testConfig())

	assert.True(t, d.Skipped)
	assert.Equal(t, models.SkipInPlayOrClosed, d.SkipReason)
}

func TestEvaluateSkipsWhenFavouriteUnpriced(t *testing.T) {
	m := twoRunnerMarket(1.80, 4.50)
	m.Runners[0].BestAvailableToLay = nil

	d := Evaluate(m, testConfig())

	assert.True(t, d.Skipped)
	assert.Equal(t, models.SkipNoPrice, d.SkipReason)
}

func TestEvaluateSkipsAboveMaxLayOdds(t *testing.T) {
	m := twoRunnerMarket(55.0, 60.0)

	d := Evaluate(m, testConfig())

	assert.True(t, d.Skipped)
	assert.Equal(t, models.SkipMaxOddsExceeded, d.SkipReason)
	require.NotNil(t, d.Favourite)
	assert.Equal(t, 55.0, d.Favourite.Odds)
}

func TestEvaluateSkipsBelowMinOdds(t *testing.T) {
	cfg := testConfig()
	cfg.MinOdds = 2.0
	m := twoRunnerMarket(1.80, 4.50)

	d := Evaluate(m, cfg)

	assert.True(t, d.Skipped)
	assert.Equal(t, models.SkipBelowMinOdds, d.SkipReason)
}

func TestRule1ShortPricedFavourite(t *testing.T) {
	d := Evaluate(twoRunnerMarket(1.80, 4.50), testConfig())

	require.False(t, d.Skipped)
	assert.Equal(t, models.Rule1, d.RuleID)
	require.Len(t, d.Instructions, 1)
	ins := d.Instructions[0]
	assert.Equal(t, int64(101), ins.SelectionID)
	assert.Equal(t, 1.80, ins.Price)
	assert.Equal(t, "3.00", ins.Size.StringFixed(2))
	assert.Equal(t, "2.40", ins.Liability().StringFixed(2))
}

func TestRule2MidBandFavourite(t *testing.T) {
	d := Evaluate(twoRunnerMarket(3.10, 6.00), testConfig())

	require.False(t, d.Skipped)
	assert.Equal(t, models.Rule2, d.RuleID)
	require.Len(t, d.Instructions, 1)
	assert.Equal(t, "2.00", d.Instructions[0].Size.StringFixed(2))
	assert.Equal(t, "4.20", d.Instructions[0].Liability().StringFixed(2))
}

func TestRule2BandBoundaries(t *testing.T) {
	d := Evaluate(twoRunnerMarket(2.00, 6.00), testConfig())
	assert.Equal(t, models.Rule2, d.RuleID)

	d = Evaluate(twoRunnerMarket(5.00, 9.00), testConfig())
	assert.Equal(t, models.Rule2, d.RuleID)

	// the band is inclusive at 5.00 and not a tick beyond
	d = Evaluate(twoRunnerMarket(5.0001, 9.00), testConfig())
	assert.Equal(t, models.Rule3B, d.RuleID)
}

func TestRule3ANarrowGap(t *testing.T) {
	cfg := testConfig()
	cfg.PointValue = 10

	d := Evaluate(twoRunnerMarket(7.00, 8.50), cfg)

	require.False(t, d.Skipped)
	assert.Equal(t, models.Rule3A, d.RuleID)
	require.Len(t, d.Instructions, 2)
	assert.Equal(t, 7.00, d.Instructions[0].Price)
	assert.Equal(t, 8.50, d.Instructions[1].Price)
	assert.Equal(t, "10.00", d.Instructions[0].Size.StringFixed(2))
	assert.Equal(t, "10.00", d.Instructions[1].Size.StringFixed(2))
	total := d.Instructions[0].Liability().Add(d.Instructions[1].Liability())
	assert.Equal(t, "135.00", total.StringFixed(2))
}

func TestRule3BWideGap(t *testing.T) {
	d := Evaluate(twoRunnerMarket(8.00, 12.00), testConfig())

	require.False(t, d.Skipped)
	assert.Equal(t, models.Rule3B, d.RuleID)
	require.Len(t, d.Instructions, 1)
	assert.Equal(t, "1.00", d.Instructions[0].Size.StringFixed(2))
	assert.Equal(t, "7.00", d.Instructions[0].Liability().StringFixed(2))
}

func TestRule3BGapExactlyTwo(t *testing.T) {
	d := Evaluate(twoRunnerMarket(6.00, 8.00), testConfig())

	assert.Equal(t, models.Rule3B, d.RuleID)
	assert.Len(t, d.Instructions, 1)
}

func TestRule3BNoSecondFavourite(t *testing.T) {
	m := twoRunnerMarket(6.00, 8.00)
	m.Runners = m.Runners[:1]

	d := Evaluate(m, testConfig())

	assert.Equal(t, models.Rule3B, d.RuleID)
	assert.Nil(t, d.SecondFavourite)
}

func TestSpreadGateSkipsWideFavourite(t *testing.T) {
	cfg := testConfig()
	cfg.SpreadControlEnabled = true
	m := twoRunnerMarket(1.80, 4.50)
	m.Runners[0].BestAvailableToBack = fptr(1.50)

	d := Evaluate(m, cfg)

	assert.True(t, d.Skipped)
	assert.Equal(t, models.SkipSpread, d.SkipReason)
	assert.Empty(t, d.Instructions)
	require.Len(t, d.SpreadRejections, 1)
	rej := d.SpreadRejections[0]
	assert.Equal(t, "spread_too_wide", rej.Reason)
	require.NotNil(t, rej.Spread)
	assert.InDelta(t, 0.30, *rej.Spread, 1e-9)
	require.NotNil(t, rej.MaxSpread)
	assert.Equal(t, 0.05, *rej.MaxSpread)
}

func TestSpreadGatePassesTightFavourite(t *testing.T) {
	cfg := testConfig()
	cfg.SpreadControlEnabled = true
	m := twoRunnerMarket(1.80, 4.50)
	m.Runners[0].BestAvailableToBack = fptr(1.79)
	m.Runners[1].BestAvailableToBack = fptr(4.40)

	d := Evaluate(m, cfg)

	require.False(t, d.Skipped)
	assert.Len(t, d.Instructions, 1)
	assert.Empty(t, d.SpreadRejections)
}

func TestSpreadGatePartialRejectionDropsSecondLeg(t *testing.T) {
	cfg := testConfig()
	cfg.SpreadControlEnabled = true
	m := twoRunnerMarket(6.00, 7.50)
	m.Runners[0].BestAvailableToBack = fptr(5.80)
	m.Runners[1].BestAvailableToBack = fptr(6.00)

	d := Evaluate(m, cfg)

	require.False(t, d.Skipped)
	assert.Equal(t, models.Rule3A, d.RuleID)
	require.Len(t, d.Instructions, 1)
	assert.Equal(t, int64(101), d.Instructions[0].SelectionID)
	require.Len(t, d.SpreadRejections, 1)
	assert.Equal(t, int64(102), d.SpreadRejections[0].SelectionID)
}

func TestSpreadGateRejectZone(t *testing.T) {
	cfg := testConfig()
	cfg.SpreadControlEnabled = true
	m := twoRunnerMarket(9.00, 15.00)
	m.Runners[0].BestAvailableToBack = fptr(8.99)

	d := Evaluate(m, cfg)

	assert.True(t, d.Skipped)
	assert.Equal(t, models.SkipSpread, d.SkipReason)
	require.Len(t, d.SpreadRejections, 1)
	assert.Equal(t, "price_in_reject_zone", d.SpreadRejections[0].Reason)
}

func TestSpreadGateMissingBackPrice(t *testing.T) {
	cfg := testConfig()
	cfg.SpreadControlEnabled = true
	m := twoRunnerMarket(1.80, 4.50)

	d := Evaluate(m, cfg)

	assert.True(t, d.Skipped)
	require.Len(t, d.SpreadRejections, 1)
	assert.Equal(t, "no_back_price", d.SpreadRejections[0].Reason)
}

func TestMaxSpreadBands(t *testing.T) {
	cases := []struct {
		price float64
		want  float64
		ok    bool
	}{
		{1.50, 0.05, true},
		{2.00, 0.15, true},
		{2.99, 0.15, true},
		{3.00, 0.30, true},
		{5.00, 0.50, true},
		{7.99, 0.50, true},
		{8.00, 0, false},
		{40.0, 0, false},
	}
	for _, tc := range cases {
		got, ok := MaxSpread(tc.price)
		assert.Equal(t, tc.ok, ok, "price %v", tc.price)
		if tc.ok {
			assert.Equal(t, tc.want, got, "price %v", tc.price)
		}
	}
}

func TestJOFSSplitsJointFavourites(t *testing.T) {
	cfg := testConfig()
	cfg.JOFSEnabled = true
	cfg.PointValue = 10
	m := twoRunnerMarket(4.00, 4.00)

	d := Evaluate(m, cfg)

	require.False(t, d.Skipped)
	assert.Equal(t, models.Rule2, d.RuleID)
	require.Len(t, d.Instructions, 2)
	assert.Equal(t, "10.00", d.Instructions[0].Size.StringFixed(2))
	assert.Equal(t, "10.00", d.Instructions[1].Size.StringFixed(2))
	require.NotNil(t, d.JOFS)
	assert.Equal(t, "20.00", d.JOFS.TotalSize)
	assert.Equal(t, "10.00", d.JOFS.SizeEach)
	assert.ElementsMatch(t, []string{"Alpha", "Bravo"}, d.JOFS.Runners)
}

func TestJOFSIncludesRunnersWithinOneTick(t *testing.T) {
	cfg := testConfig()
	cfg.JOFSEnabled = true
	cfg.PointValue = 10
	// tick at 4.00 is 0.1 so 4.05 sits inside one tick
	m := twoRunnerMarket(4.00, 4.05)

	d := Evaluate(m, cfg)

	require.NotNil(t, d.JOFS)
	require.Len(t, d.Instructions, 2)
	assert.Equal(t, 4.05, d.Instructions[1].Price)
}

func TestJOFSIgnoresDistantSecond(t *testing.T) {
	cfg := testConfig()
	cfg.JOFSEnabled = true
	m := twoRunnerMarket(4.00, 4.30)

	d := Evaluate(m, cfg)

	assert.Nil(t, d.JOFS)
	assert.Len(t, d.Instructions, 1)
}

func TestJOFSSkipsSplitBelowMinimumStake(t *testing.T) {
	cfg := testConfig()
	cfg.JOFSEnabled = true
	cfg.PointValue = 1
	m := twoRunnerMarket(6.00, 6.00)
	m.Runners[1].SortPriority = 2

	d := Evaluate(m, cfg)

	// 1 point split two ways would fall under the exchange minimum
	assert.Nil(t, d.JOFS)
}

func TestJOFSRoundsDown(t *testing.T) {
	cfg := testConfig()
	cfg.JOFSEnabled = true
	cfg.PointValue = 5
	m := twoRunnerMarket(4.00, 4.00)
	third := models.Runner{SelectionID: 104, Name: "Delta", SortPriority: 4, BestAvailableToLay: fptr(4.00)}
	m.Runners = append(m.Runners, third)

	d := Evaluate(m, cfg)

	require.NotNil(t, d.JOFS)
	require.Len(t, d.Instructions, 3)
	// 10.00 across three runners rounds down to 3.33 each
	for _, ins := range d.Instructions {
		assert.Equal(t, "3.33", ins.Size.StringFixed(2))
	}
}

func TestDescribeListsAllRules(t *testing.T) {
	infos := Describe()

	require.Len(t, infos, 4)
	assert.Equal(t, models.Rule1, infos[0].ID)
	assert.Equal(t, 3, infos[0].BasePoints)
	assert.Equal(t, models.Rule3B, infos[3].ID)
}
