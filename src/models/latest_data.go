package models

// -----------------------------------------------------------------------------
// Server State Structure (pushed to browser clients as one snapshot)
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type      string                     `json:"type"` // "INITIAL" or "UPDATE"
	Params    MQuoteParams               `json:"params"`
	Quotes    map[string]MQuoteView      `json:"quotes"`  // keyed by exchange
	Panels    map[string]MReferencePanel `json:"panels"`  // keyed by panel "a"/"b"
	Spreads   []MSpread                  `json:"spreads"` // panel x exchange
	Filters   map[string]MFilterView     `json:"filters"` // keyed by exchange
	Timestamp int64                      `json:"timestamp"`
}

// MQuoteView is the per-exchange quote card.
type MQuoteView struct {
	Exchange string       `json:"exchange"`
	Avg      *float64     `json:"avg"`
	Prices   []float64    `json:"prices"`
	Items    []MOfferItem `json:"items"`
	Error    string       `json:"error,omitempty"`
}

// MFilterView is the published state of one staged filter instance.
// Staged ids are only meaningful while the instance is open.
type MFilterView struct {
	Exchange       string   `json:"exchange"`
	IsOpen         bool     `json:"is_open"`
	SearchQuery    string   `json:"search_query"`
	StagedCount    int      `json:"staged_count"`
	CommittedCount int      `json:"committed_count"`
	Committed      []string `json:"committed"`
}
