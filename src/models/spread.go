package models

import "github.com/shopspring/decimal"

// -----------------------------------------------------------------------------
// Spread structures
// -----------------------------------------------------------------------------

// MSpread is the percentage deviation of one exchange's P2P average
// from a reference panel price. Percent is nil when the pair is not
// eligible or no average is available ("not applicable").
type MSpread struct {
	Panel    string   `json:"panel"`    // "a" or "b"
	Exchange string   `json:"exchange"` // "binance" or "bybit"
	Percent  *float64 `json:"percent"`
	Display  string   `json:"display"` // "+3.00%", "-1.25%" or "—"
}

// NotApplicable is the display value for a spread without a defined result.
const NotApplicable = "—"

// NewSpread derives a spread from a P2P average and a reference price.
// avg == nil or refPrice == 0 yields the "not applicable" result.
func NewSpread(panel, exchange string, avg *float64, refPrice float64) MSpread {
	s := MSpread{Panel: panel, Exchange: exchange, Display: NotApplicable}
	if avg == nil || refPrice == 0 {
		return s
	}
	ref := decimal.NewFromFloat(refPrice)
	pct := decimal.NewFromFloat(*avg).Sub(ref).Div(ref).Mul(decimal.NewFromInt(100))
	v, _ := pct.Float64()
	s.Percent = &v

	rounded := pct.Round(2)
	if pct.IsPositive() {
		s.Display = "+" + rounded.StringFixed(2) + "%"
	} else {
		s.Display = rounded.StringFixed(2) + "%"
	}
	return s
}

// MSpreadSample is one recorded spread observation in the session history.
type MSpreadSample struct {
	Panel     string  `json:"panel"`
	Exchange  string  `json:"exchange"`
	Percent   float64 `json:"percent"`
	RefPrice  float64 `json:"ref_price"`
	P2PAvg    float64 `json:"p2p_avg"`
	CreatedAt int64   `json:"created_at"`
}
