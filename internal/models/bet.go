package models

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeMinStake is the minimum lay stake the exchange accepts
var ExchangeMinStake = decimal.NewFromInt(1)

// RuleID identifies which staking rule produced an instruction
type RuleID string

const (
	Rule1    RuleID = "RULE_1"
	Rule2    RuleID = "RULE_2"
	Rule3A   RuleID = "RULE_3A"
	Rule3B   RuleID = "RULE_3B"
	RuleNone RuleID = "NONE"
)

// BetInstruction is a single lay order to submit to the exchange
type BetInstruction struct {
	MarketID    string          `json:"market_id"`
	SelectionID int64           `json:"selection_id"`
	RunnerName  string          `json:"runner_name"`
	Price       float64         `json:"price"`
	Size        decimal.Decimal `json:"size"`
	RuleID      RuleID          `json:"rule_id"`
}

// Liability returns what is lost if the runner wins: size x (price - 1)
func (i BetInstruction) Liability() decimal.Decimal {
	return i.Size.Mul(decimal.NewFromFloat(i.Price - 1)).Round(2)
}

// ResponseStatus classifies the outcome of a bet submission
type ResponseStatus string

const (
	ResponseSuccess ResponseStatus = "SUCCESS"
	ResponseFailure ResponseStatus = "FAILURE"
	ResponseDryRun  ResponseStatus = "DRY_RUN"
)

// ExchangeResponse records the exchange's answer to a placed order
type ExchangeResponse struct {
	Status          ResponseStatus   `json:"status"`
	BetID           string           `json:"bet_id,omitempty"`
	SizeMatched     *decimal.Decimal `json:"size_matched,omitempty"`
	AvgPriceMatched *float64         `json:"avg_price_matched,omitempty"`
	ErrorCode       string           `json:"error_code,omitempty"`
}

// Discipline classifies a race by its market name
type Discipline string

const (
	DisciplineFlat    Discipline = "FLAT"
	DisciplineJumps   Discipline = "JUMPS"
	DisciplineUnknown Discipline = "UNKNOWN"
)

var (
	jumpsNamePattern = regexp.MustCompile(`(?i)\b(hrd|hurdle|chs|chase|nhf|inh flat)\b`)
	flatNamePattern  = regexp.MustCompile(`(?i)\b(stks|stakes|hcap|handicap|mdn|maiden|nursery|claim|sell|cond|listed|grp)\b`)
)

// DisciplineFromMarketName derives FLAT/JUMPS from the exchange market
// name, e.g. "16:05 R5 Hcap" or "2m Nov Hrd".
func DisciplineFromMarketName(name string) Discipline {
	switch {
	case jumpsNamePattern.MatchString(name):
		return DisciplineJumps
	case flatNamePattern.MatchString(name):
		return DisciplineFlat
	default:
		return DisciplineUnknown
	}
}

// BetRecord is the append-only record of a bet attempt. Never mutated
// after insertion.
type BetRecord struct {
	RecordID    string           `json:"record_id"`
	Instruction BetInstruction   `json:"instruction"`
	Liability   decimal.Decimal  `json:"liability"`
	PlacedAt    time.Time        `json:"placed_at"`
	Venue       string           `json:"venue"`
	Country     string           `json:"country"`
	Discipline  Discipline       `json:"discipline"`
	RaceTime    time.Time        `json:"race_time"`
	DryRun      bool             `json:"dry_run"`
	Response    ExchangeResponse `json:"exchange_response"`
}
