package betfair

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/lay-engine/internal/models"
)

// placeOrders wire types. Numeric fields must be numbers: the
// exchange silently rejects instructions carrying stringified values.
type placeOrdersParams struct {
	MarketID     string             `json:"marketId"`
	Instructions []placeInstruction `json:"instructions"`
	CustomerRef  string             `json:"customerRef,omitempty"`
}

type placeInstruction struct {
	SelectionID int64      `json:"selectionId"`
	Handicap    int        `json:"handicap"`
	Side        string     `json:"side"`
	OrderType   string     `json:"orderType"`
	LimitOrder  limitOrder `json:"limitOrder"`
}

type limitOrder struct {
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	PersistenceType string  `json:"persistenceType"`
}

type placeOrdersResult struct {
	Status             string `json:"status"`
	ErrorCode          string `json:"errorCode"`
	InstructionReports []struct {
		Status              string  `json:"status"`
		ErrorCode           string  `json:"errorCode"`
		BetID               string  `json:"betId"`
		PlacedDate          string  `json:"placedDate"`
		AveragePriceMatched float64 `json:"averagePriceMatched"`
		SizeMatched         float64 `json:"sizeMatched"`
	} `json:"instructionReports"`
}

// PlaceLayOrder submits a single LAY limit order. The price is
// snapped onto the exchange tick ladder before submission. Exchange
// rejections come back as a FAILURE response, not an error; errors
// mean the call itself could not complete.
func (c *Client) PlaceLayOrder(ctx context.Context, ins models.BetInstruction) (models.ExchangeResponse, error) {
	params := placeOrdersParams{
		MarketID: ins.MarketID,
		Instructions: []placeInstruction{{
			SelectionID: ins.SelectionID,
			Handicap:    0,
			Side:        "LAY",
			OrderType:   "LIMIT",
			LimitOrder: limitOrder{
				Size:            ins.Size.Round(2).InexactFloat64(),
				Price:           models.SnapToTick(ins.Price),
				PersistenceType: "LAPSE",
			},
		}},
		CustomerRef: strings.ReplaceAll(uuid.NewString(), "-", ""),
	}

	var result placeOrdersResult
	if err := c.callSports(ctx, "placeOrders", params, &result); err != nil {
		return models.ExchangeResponse{}, err
	}

	if result.Status == "SUCCESS" && len(result.InstructionReports) > 0 {
		report := result.InstructionReports[0]
		resp := models.ExchangeResponse{
			Status:    models.ResponseStatus(report.Status),
			BetID:     report.BetID,
			ErrorCode: report.ErrorCode,
		}
		if report.Status == "SUCCESS" {
			matched := decimal.NewFromFloat(report.SizeMatched)
			resp.SizeMatched = &matched
			avg := report.AveragePriceMatched
			resp.AvgPriceMatched = &avg
		}
		c.logger.WithFields(map[string]interface{}{
			"market_id":    ins.MarketID,
			"selection_id": ins.SelectionID,
			"status":       report.Status,
			"bet_id":       report.BetID,
		}).Info("lay order placed")
		return resp, nil
	}

	errorCode := result.ErrorCode
	if errorCode == "" && len(result.InstructionReports) > 0 {
		errorCode = result.InstructionReports[0].ErrorCode
	}
	c.logger.WithFields(map[string]interface{}{
		"market_id":    ins.MarketID,
		"selection_id": ins.SelectionID,
		"error_code":   errorCode,
	}).Warn("lay order rejected")
	return models.ExchangeResponse{Status: models.ResponseFailure, ErrorCode: errorCode}, nil
}

// CurrentOrder is an unsettled order on the exchange
type CurrentOrder struct {
	BetID         string  `json:"betId"`
	MarketID      string  `json:"marketId"`
	SelectionID   int64   `json:"selectionId"`
	Side          string  `json:"side"`
	Status        string  `json:"status"`
	Price         float64 `json:"price"`
	Size          float64 `json:"size"`
	SizeMatched   float64 `json:"sizeMatched"`
	SizeRemaining float64 `json:"sizeRemaining"`
}

type currentOrdersResult struct {
	CurrentOrders []struct {
		BetID       string `json:"betId"`
		MarketID    string `json:"marketId"`
		SelectionID int64  `json:"selectionId"`
		Side        string `json:"side"`
		Status      string `json:"status"`
		PriceSize   struct {
			Price float64 `json:"price"`
			Size  float64 `json:"size"`
		} `json:"priceSize"`
		SizeMatched   float64 `json:"sizeMatched"`
		SizeRemaining float64 `json:"sizeRemaining"`
	} `json:"currentOrders"`
	MoreAvailable bool `json:"moreAvailable"`
}

// ListCurrentOrders returns the account's unsettled orders
func (c *Client) ListCurrentOrders(ctx context.Context) ([]CurrentOrder, error) {
	var result currentOrdersResult
	if err := c.callSports(ctx, "listCurrentOrders", map[string]interface{}{}, &result); err != nil {
		return nil, err
	}

	orders := make([]CurrentOrder, 0, len(result.CurrentOrders))
	for _, o := range result.CurrentOrders {
		orders = append(orders, CurrentOrder{
			BetID:         o.BetID,
			MarketID:      o.MarketID,
			SelectionID:   o.SelectionID,
			Side:          o.Side,
			Status:        o.Status,
			Price:         o.PriceSize.Price,
			Size:          o.PriceSize.Size,
			SizeMatched:   o.SizeMatched,
			SizeRemaining: o.SizeRemaining,
		})
	}
	return orders, nil
}

type listClearedOrdersParams struct {
	BetStatus        string    `json:"betStatus"`
	SettledDateRange timeRange `json:"settledDateRange"`
	IncludeItemDesc  bool      `json:"includeItemDescription"`
}

type clearedOrdersResult struct {
	ClearedOrders []struct {
		BetID        string  `json:"betId"`
		MarketID     string  `json:"marketId"`
		SelectionID  int64   `json:"selectionId"`
		Side         string  `json:"side"`
		BetOutcome   string  `json:"betOutcome"`
		PriceMatched float64 `json:"priceMatched"`
		SizeSettled  float64 `json:"sizeSettled"`
		Profit       float64 `json:"profit"`
		Commission   float64 `json:"commission"`
		SettledDate  string  `json:"settledDate"`
	} `json:"clearedOrders"`
	MoreAvailable bool `json:"moreAvailable"`
}

// ListCleared returns settled bets in the given date range
func (c *Client) ListCleared(ctx context.Context, from, to time.Time) ([]models.ClearedBet, error) {
	params := listClearedOrdersParams{
		BetStatus: "SETTLED",
		SettledDateRange: timeRange{
			From: from.UTC().Format("2006-01-02T15:04:05Z"),
			To:   to.UTC().Format("2006-01-02T15:04:05Z"),
		},
	}

	var result clearedOrdersResult
	if err := c.callSports(ctx, "listClearedOrders", params, &result); err != nil {
		return nil, err
	}

	cleared := make([]models.ClearedBet, 0, len(result.ClearedOrders))
	for _, o := range result.ClearedOrders {
		settledAt, _ := time.Parse(time.RFC3339, o.SettledDate)
		cleared = append(cleared, models.ClearedBet{
			BetID:           o.BetID,
			MarketID:        o.MarketID,
			SelectionID:     o.SelectionID,
			Side:            o.Side,
			Outcome:         o.BetOutcome,
			SizeMatched:     decimal.NewFromFloat(o.SizeSettled),
			AvgPriceMatched: o.PriceMatched,
			Profit:          decimal.NewFromFloat(o.Profit),
			Commission:      decimal.NewFromFloat(o.Commission),
			SettledAt:       settledAt,
		})
	}
	return cleared, nil
}
