package models

// -----------------------------------------------------------------------------
// Reference feed structures
// -----------------------------------------------------------------------------

// MReferencePair is the currency pair a reference panel is quoting.
type MReferencePair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (p MReferencePair) IsZero() bool {
	return p.From == "" && p.To == ""
}

// MReferenceQuote is the parsed result of one reference feed fetch.
type MReferenceQuote struct {
	Price  float64 `json:"price"`
	TS     int64   `json:"ts"`
	Source string  `json:"source"`
	URL    string  `json:"url"`
}

// MReferencePanel is the published state of one reference panel.
// Price and TimestampSeconds are nil until the first successful fetch
// and cleared again when a fetch fails.
type MReferencePanel struct {
	Pair             MReferencePair `json:"pair"`
	Price            *float64       `json:"price"`
	TimestampSeconds *int64         `json:"ts"`
	SourceLabel      string         `json:"source"`
	URL              string         `json:"url"`
	Error            string         `json:"error,omitempty"`
}
