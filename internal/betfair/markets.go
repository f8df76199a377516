package betfair

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/yourusername/lay-engine/internal/models"
)

// Horse racing event type on the exchange
const eventTypeHorseRacing = "7"

const maxCatalogueResults = "200"

// ErrEmptyBook is returned when the exchange answers with no book for
// a requested market; callers retry on the next tick.
var ErrEmptyBook = errors.New("empty market book")

type marketFilter struct {
	EventTypeIDs    []string   `json:"eventTypeIds"`
	MarketCountries []string   `json:"marketCountries"`
	MarketTypeCodes []string   `json:"marketTypeCodes"`
	MarketStartTime *timeRange `json:"marketStartTime,omitempty"`
}

type timeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type listMarketCatalogueParams struct {
	Filter           marketFilter `json:"filter"`
	MaxResults       string       `json:"maxResults"`
	MarketProjection []string     `json:"marketProjection"`
	Sort             string       `json:"sort"`
}

type catalogueEntry struct {
	MarketID        string    `json:"marketId"`
	MarketName      string    `json:"marketName"`
	MarketStartTime time.Time `json:"marketStartTime"`
	Event           struct {
		Venue       string `json:"venue"`
		CountryCode string `json:"countryCode"`
	} `json:"event"`
	Runners []struct {
		SelectionID  int64   `json:"selectionId"`
		RunnerName   string  `json:"runnerName"`
		Handicap     float64 `json:"handicap"`
		SortPriority int     `json:"sortPriority"`
	} `json:"runners"`
}

type priceProjection struct {
	PriceData            []string              `json:"priceData"`
	ExBestOffersOverride *exBestOffersOverride `json:"exBestOffersOverrides,omitempty"`
}

type exBestOffersOverride struct {
	BestPricesDepth int `json:"bestPricesDepth"`
}

type listMarketBookParams struct {
	MarketIDs       []string        `json:"marketIds"`
	PriceProjection priceProjection `json:"priceProjection"`
}

type bookEntry struct {
	MarketID     string  `json:"marketId"`
	Status       string  `json:"status"`
	InPlay       bool    `json:"inplay"`
	TotalMatched float64 `json:"totalMatched"`
	Runners      []struct {
		SelectionID     int64    `json:"selectionId"`
		Status          string   `json:"status"`
		LastPriceTraded *float64 `json:"lastPriceTraded"`
		EX              struct {
			AvailableToBack []priceSizeWire `json:"availableToBack"`
			AvailableToLay  []priceSizeWire `json:"availableToLay"`
		} `json:"ex"`
	} `json:"runners"`
}

type priceSizeWire struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// ListTodaysWinMarkets returns all horse-racing WIN markets starting
// on the local trading date for the given country set, sorted by race
// time ascending. Runner metadata only; prices come from GetBook.
func (c *Client) ListTodaysWinMarkets(ctx context.Context, countries []string) ([]models.Market, error) {
	now := time.Now()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())

	params := listMarketCatalogueParams{
		Filter: marketFilter{
			EventTypeIDs:    []string{eventTypeHorseRacing},
			MarketCountries: countries,
			MarketTypeCodes: []string{"WIN"},
			MarketStartTime: &timeRange{
				From: now.UTC().Format("2006-01-02T15:04:05Z"),
				To:   endOfDay.UTC().Format("2006-01-02T15:04:05Z"),
			},
		},
		MaxResults:       maxCatalogueResults,
		MarketProjection: []string{"EVENT", "RUNNER_DESCRIPTION", "MARKET_START_TIME"},
		Sort:             "FIRST_TO_START",
	}

	var entries []catalogueEntry
	if err := c.callSports(ctx, "listMarketCatalogue", params, &entries); err != nil {
		return nil, err
	}

	markets := make([]models.Market, 0, len(entries))
	for _, e := range entries {
		if e.MarketID == "" {
			c.logger.WithField("entry", e.MarketName).Warn("catalogue entry missing market id, dropping")
			continue
		}
		m := models.Market{
			MarketID:   e.MarketID,
			MarketName: e.MarketName,
			Venue:      e.Event.Venue,
			Country:    e.Event.CountryCode,
			RaceTime:   e.MarketStartTime,
			Status:     models.MarketOpen,
		}
		for _, r := range e.Runners {
			m.Runners = append(m.Runners, models.Runner{
				SelectionID:  r.SelectionID,
				Name:         r.RunnerName,
				SortPriority: r.SortPriority,
			})
		}
		markets = append(markets, m)
	}

	sort.Slice(markets, func(i, j int) bool {
		if markets[i].RaceTime.Equal(markets[j].RaceTime) {
			return markets[i].MarketID < markets[j].MarketID
		}
		return markets[i].RaceTime.Before(markets[j].RaceTime)
	})

	c.logger.WithField("count", len(markets)).Debug("fetched win market catalogue")
	return markets, nil
}

// GetBook fetches the current best lay and back prices for a market
// and merges them into the known runner set. Runner ranking is
// reassigned from the fresh prices, so sort priority 1 is the live
// favourite. The book's runner list is authoritative.
func (c *Client) GetBook(ctx context.Context, m models.Market) (models.Market, error) {
	return c.fetchBook(ctx, m, 1)
}

// GetBookFull is GetBook with up to three price levels per side
func (c *Client) GetBookFull(ctx context.Context, m models.Market) (models.Market, error) {
	return c.fetchBook(ctx, m, 3)
}

func (c *Client) fetchBook(ctx context.Context, m models.Market, depth int) (models.Market, error) {
	params := listMarketBookParams{
		MarketIDs: []string{m.MarketID},
		PriceProjection: priceProjection{
			PriceData: []string{"EX_BEST_OFFERS"},
		},
	}
	if depth > 1 {
		params.PriceProjection.ExBestOffersOverride = &exBestOffersOverride{BestPricesDepth: depth}
	}

	var books []bookEntry
	if err := c.callSports(ctx, "listMarketBook", params, &books); err != nil {
		return models.Market{}, err
	}
	if len(books) == 0 {
		c.logger.WithField("market_id", m.MarketID).Warn("exchange returned no book")
		return models.Market{}, ErrEmptyBook
	}
	book := books[0]

	names := make(map[int64]string, len(m.Runners))
	for _, r := range m.Runners {
		names[r.SelectionID] = r.Name
	}

	out := m
	out.Status = models.MarketStatus(book.Status)
	out.InPlay = book.InPlay
	out.TotalMatched = book.TotalMatched
	out.Runners = make([]models.Runner, 0, len(book.Runners))
	for _, br := range book.Runners {
		r := models.Runner{
			SelectionID: br.SelectionID,
			Name:        names[br.SelectionID],
			Status:      br.Status,
			LastTraded:  br.LastPriceTraded,
		}
		if len(br.EX.AvailableToLay) > 0 {
			best := br.EX.AvailableToLay[0].Price
			r.BestAvailableToLay = &best
		}
		if len(br.EX.AvailableToBack) > 0 {
			best := br.EX.AvailableToBack[0].Price
			r.BestAvailableToBack = &best
		}
		if depth > 1 {
			for _, ps := range br.EX.AvailableToLay {
				r.LayDepth = append(r.LayDepth, models.PriceSize{Price: ps.Price, Size: ps.Size})
			}
			for _, ps := range br.EX.AvailableToBack {
				r.BackDepth = append(r.BackDepth, models.PriceSize{Price: ps.Price, Size: ps.Size})
			}
		}
		out.Runners = append(out.Runners, r)
	}
	out.AssignSortPriorities()
	return out, nil
}
