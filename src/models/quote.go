package models

import "sort"

// -----------------------------------------------------------------------------
// P2P quote request / result structures
// -----------------------------------------------------------------------------

// MQuoteParams is the exact set of request parameters a P2P fetch was
// issued with. A copy travels with every in-flight request so a late
// response can be recognized as stale and dropped.
type MQuoteParams struct {
	Asset    string   `json:"asset"`
	Fiat     string   `json:"fiat"`
	Side     string   `json:"side"` // SELL or BUY, from the taker's point of view
	Amount   string   `json:"amount"`
	Merchant bool     `json:"merchant"` // Binance merchant-only flag
	Verified bool     `json:"verified"` // Bybit verified-maker flag
	Payments []string `json:"payments"` // committed payment method ids
}

// Equal reports whether two parameter sets describe the same request.
// Payment order is irrelevant.
func (p MQuoteParams) Equal(o MQuoteParams) bool {
	if p.Asset != o.Asset || p.Fiat != o.Fiat || p.Side != o.Side ||
		p.Amount != o.Amount || p.Merchant != o.Merchant || p.Verified != o.Verified {
		return false
	}
	if len(p.Payments) != len(o.Payments) {
		return false
	}
	a := append([]string(nil), p.Payments...)
	b := append([]string(nil), o.Payments...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

// MOfferItem is one peer advertisement row shown in the dashboard table.
type MOfferItem struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Volume string  `json:"volume"`
	Min    string  `json:"min"`
	Max    string  `json:"max"`
}

// MP2PQuote is the parsed result of one P2P rate fetch.
// Avg is nil when fewer than five offers were available.
type MP2PQuote struct {
	Items  []MOfferItem `json:"items"`
	Prices []float64    `json:"prices"`
	Avg    *float64     `json:"avg"`
}
