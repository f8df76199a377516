package models

import (
	"sort"
	"time"
)

// MarketStatus mirrors the exchange's market lifecycle states
type MarketStatus string

const (
	MarketOpen      MarketStatus = "OPEN"
	MarketSuspended MarketStatus = "SUSPENDED"
	MarketClosed    MarketStatus = "CLOSED"
	MarketInactive  MarketStatus = "INACTIVE"
)

// PriceSize is one price level on the book
type PriceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Runner is a single selection in a win market. Price fields are nil
// until a book has been fetched, and nil again if the side empties.
type Runner struct {
	SelectionID         int64       `json:"selection_id"`
	Name                string      `json:"name"`
	SortPriority        int         `json:"sort_priority"`
	Status              string      `json:"status,omitempty"`
	BestAvailableToLay  *float64    `json:"best_available_to_lay,omitempty"`
	BestAvailableToBack *float64    `json:"best_available_to_back,omitempty"`
	LastTraded          *float64    `json:"last_traded,omitempty"`
	LayDepth            []PriceSize `json:"lay_depth,omitempty"`
	BackDepth           []PriceSize `json:"back_depth,omitempty"`
}

// HasLayPrice reports whether the lay side has a quotable price
func (r Runner) HasLayPrice() bool {
	return r.BestAvailableToLay != nil && *r.BestAvailableToLay > 1.0
}

// Market is a horse-racing WIN market plus its latest known book
type Market struct {
	MarketID     string       `json:"market_id"`
	MarketName   string       `json:"market_name"`
	Venue        string       `json:"venue"`
	Country      string       `json:"country"`
	RaceTime     time.Time    `json:"race_time"`
	Status       MarketStatus `json:"status"`
	InPlay       bool         `json:"in_play"`
	TotalMatched float64      `json:"total_matched,omitempty"`
	Runners      []Runner     `json:"runners"`
}

// MinutesToOff returns (race_time - now) in fractional minutes
func (m Market) MinutesToOff(now time.Time) float64 {
	return m.RaceTime.Sub(now).Minutes()
}

func (m Market) runnerAtPriority(p int) *Runner {
	for i := range m.Runners {
		if m.Runners[i].SortPriority == p {
			return &m.Runners[i]
		}
	}
	return nil
}

// Favourite returns the runner with sort priority 1, nil if absent
func (m Market) Favourite() *Runner {
	return m.runnerAtPriority(1)
}

// SecondFavourite returns the runner with sort priority 2, nil if absent
func (m Market) SecondFavourite() *Runner {
	return m.runnerAtPriority(2)
}

// AssignSortPriorities re-ranks active runners by ascending lay price
// so that sort priority 1 is always the current favourite. Runners
// with no lay price rank after all priced runners, keeping their
// relative order.
func (m *Market) AssignSortPriorities() {
	idx := make([]int, len(m.Runners))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := m.Runners[idx[a]], m.Runners[idx[b]]
		if ra.HasLayPrice() != rb.HasLayPrice() {
			return ra.HasLayPrice()
		}
		if !ra.HasLayPrice() {
			return false
		}
		return *ra.BestAvailableToLay < *rb.BestAvailableToLay
	})
	for rank, i := range idx {
		m.Runners[i].SortPriority = rank + 1
	}
}

// SnapshotRunner is one runner's prices at snapshot time
type SnapshotRunner struct {
	SelectionID int64    `json:"selection_id"`
	Name        string   `json:"name"`
	Lay         *float64 `json:"lay,omitempty"`
	Back        *float64 `json:"back,omitempty"`
}

// OddsSnapshot is a point-in-time capture of a market's best prices,
// taken periodically while a market is monitored pre-window.
type OddsSnapshot struct {
	CapturedAt   time.Time        `json:"captured_at"`
	MinutesToOff float64          `json:"minutes_to_off"`
	Runners      []SnapshotRunner `json:"runners"`
}

// NewOddsSnapshot captures the current best prices of every runner
func NewOddsSnapshot(m Market, now time.Time) OddsSnapshot {
	snap := OddsSnapshot{
		CapturedAt:   now,
		MinutesToOff: m.MinutesToOff(now),
		Runners:      make([]SnapshotRunner, 0, len(m.Runners)),
	}
	for _, r := range m.Runners {
		snap.Runners = append(snap.Runners, SnapshotRunner{
			SelectionID: r.SelectionID,
			Name:        r.Name,
			Lay:         r.BestAvailableToLay,
			Back:        r.BestAvailableToBack,
		})
	}
	return snap
}
