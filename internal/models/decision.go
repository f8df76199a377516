package models

import "time"

// Skip reasons recorded on a RuleDecision. Machine-readable; the UI
// maps them to display text.
const (
	SkipInPlayOrClosed  = "in_play_or_closed"
	SkipNoPrice         = "no_price"
	SkipMaxOddsExceeded = "max_odds_exceeded"
	SkipBelowMinOdds    = "below_min_odds"
	SkipSpread          = "spread"
	SkipDuplicate       = "DUPLICATE"
)

// RunnerView is the favourite/second-favourite summary on a decision
type RunnerView struct {
	SelectionID int64   `json:"selection_id"`
	Name        string  `json:"name"`
	Odds        float64 `json:"odds"`
}

// SpreadRejection records an instruction dropped by the spread gate
type SpreadRejection struct {
	SelectionID int64    `json:"selection_id"`
	RunnerName  string   `json:"runner_name"`
	LayPrice    float64  `json:"lay_price"`
	BackPrice   *float64 `json:"back_price,omitempty"`
	Spread      *float64 `json:"spread,omitempty"`
	MaxSpread   *float64 `json:"max_spread,omitempty"`
	Reason      string   `json:"reason"`
}

// JOFSSplit records a joint/close-odds favourite stake split
type JOFSSplit struct {
	RuleID    RuleID   `json:"rule_id"`
	Runners   []string `json:"runners"`
	SizeEach  string   `json:"size_each"`
	TotalSize string   `json:"total_size"`
}

// RuleDecision is the pure output of evaluating a market against the
// rule set. The same (market, config) always yields the same decision.
type RuleDecision struct {
	RuleID           RuleID            `json:"rule_id"`
	Skipped          bool              `json:"skipped"`
	SkipReason       string            `json:"skip_reason,omitempty"`
	Instructions     []BetInstruction  `json:"instructions"`
	Favourite        *RunnerView       `json:"favourite,omitempty"`
	SecondFavourite  *RunnerView       `json:"second_favourite,omitempty"`
	SpreadRejections []SpreadRejection `json:"spread_rejections,omitempty"`
	JOFS             *JOFSSplit        `json:"jofs,omitempty"`
}

// RuleEvaluation wraps a decision with the market context it was made
// in; appended to the bounded evaluations ring whether or not any bet
// resulted.
type RuleEvaluation struct {
	MarketID    string       `json:"market_id"`
	MarketName  string       `json:"market_name"`
	Venue       string       `json:"venue"`
	RaceTime    time.Time    `json:"race_time"`
	Decision    RuleDecision `json:"decision"`
	EvaluatedAt time.Time    `json:"evaluated_at"`
}
