package upstream

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Shared parsing helpers
// -----------------------------------------------------------------------------

// maxOffers is how many ranked advertisements a quote keeps.
const maxOffers = 5

// averageMidWindow averages offers #3-5 of the ranked list. The top two
// rows are usually bait pricing, so the dashboard has always quoted the
// middle of the book. Returns nil when fewer than five offers exist.
func averageMidWindow(prices []float64) *float64 {
	if len(prices) < 5 {
		return nil
	}

	sum := decimal.Zero
	for _, p := range prices[2:5] {
		sum = sum.Add(decimal.NewFromFloat(p))
	}
	avg, _ := sum.Div(decimal.NewFromInt(3)).Round(6).Float64()
	return &avg
}

// -----------------------------------------------------------------------------

// parsePrice accepts both "42100.50" and "42100,50".
func parsePrice(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
