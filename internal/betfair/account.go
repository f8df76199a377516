package betfair

import (
	"context"

	"github.com/shopspring/decimal"
)

type accountFundsResult struct {
	AvailableToBetBalance float64 `json:"availableToBetBalance"`
	Exposure              float64 `json:"exposure"`
}

// GetBalance returns the account's available-to-bet balance. Results
// are cached for 30 seconds to stay inside the exchange rate limits.
func (c *Client) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	if cached, ok := c.balanceCache.Get(balanceCacheKey); ok {
		return cached.(decimal.Decimal), nil
	}

	var result accountFundsResult
	if err := c.callAccount(ctx, "getAccountFunds", map[string]interface{}{}, &result); err != nil {
		return decimal.Zero, err
	}

	balance := decimal.NewFromFloat(result.AvailableToBetBalance).Round(2)
	c.balanceCache.SetDefault(balanceCacheKey, balance)
	return balance, nil
}

// InvalidateBalance drops the cached balance so the next read hits
// the exchange. Called after live bet placement.
func (c *Client) InvalidateBalance() {
	c.balanceCache.Delete(balanceCacheKey)
}
