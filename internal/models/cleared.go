package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClearedBet is a settled bet as reported by the exchange
type ClearedBet struct {
	BetID           string          `json:"bet_id"`
	MarketID        string          `json:"market_id"`
	SelectionID     int64           `json:"selection_id"`
	Side            string          `json:"side"`
	Outcome         string          `json:"outcome"`
	SizeMatched     decimal.Decimal `json:"size_matched"`
	AvgPriceMatched float64         `json:"avg_price_matched"`
	Profit          decimal.Decimal `json:"profit"`
	Commission      decimal.Decimal `json:"commission"`
	SettledAt       time.Time       `json:"settled_at"`
}

// ErrorEvent is one entry in the bounded error ring surfaced to the UI
type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
