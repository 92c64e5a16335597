package refsync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"p2p-observer/src/interfaces"
	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------

type fakeRef struct {
	mu    sync.Mutex
	price float64
	err   error
	// hook runs inside FetchPrice, before the result is returned
	hook func()
}

func (f *fakeRef) Label() string { return "fake" }

func (f *fakeRef) FetchPrice(ctx context.Context, from, to string) (*models.MReferenceQuote, error) {
	f.mu.Lock()
	price, err, hook := f.price, f.err, f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return &models.MReferenceQuote{Price: price, TS: 1700000000, Source: "fake", URL: "https://example.test"}, nil
}

func (f *fakeRef) FetchCodes(ctx context.Context) ([]string, error) {
	return []string{"USD", "UAH", "EUR"}, nil
}

// -----------------------------------------------------------------------------

type fakeP2P struct {
	name string
	avg  *float64
	err  error
}

func (f *fakeP2P) Exchange() string { return f.name }

func (f *fakeP2P) FetchRate(ctx context.Context, params models.MQuoteParams) (*models.MP2PQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.MP2PQuote{Avg: f.avg}, nil
}

func (f *fakeP2P) FetchCatalog(ctx context.Context, params models.MQuoteParams) ([]models.MCatalogItem, error) {
	return nil, nil
}

// -----------------------------------------------------------------------------

type memorySink struct {
	mu      sync.Mutex
	samples []models.MSpreadSample
}

func (m *memorySink) SaveSpreadSample(s models.MSpreadSample) error {
	m.mu.Lock()
	m.samples = append(m.samples, s)
	m.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

func avg(v float64) *float64 { return &v }

func newTestSync(ref *fakeRef, p2p map[string]interfaces.IP2PClient, sink HistorySink) *Synchronizer {
	paramsFor := func(exchange, asset, fiat string) models.MQuoteParams {
		return models.MQuoteParams{Asset: asset, Fiat: fiat, Side: "SELL"}
	}
	return NewSynchronizer(ref, &fakeRef{price: 1}, p2p, paramsFor, sink)
}

// -----------------------------------------------------------------------------

func TestMapAsset(t *testing.T) {
	tests := []struct {
		from string
		want string
		ok   bool
	}{
		{"USD", "USDT", true},
		{"usdt", "USDT", true},
		{"BTC", "BTC", true},
		{"GBP", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := MapAsset(tt.from)
		if ok != tt.ok || got != tt.want {
			t.Errorf("MapAsset(%q) = (%q, %v), want (%q, %v)", tt.from, got, ok, tt.want, tt.ok)
		}
	}
}

// -----------------------------------------------------------------------------

func TestSetPairValidation(t *testing.T) {
	s := newTestSync(&fakeRef{price: 41.2}, nil, nil)

	if err := s.SetPair(PanelA, "usd", "uah"); err != nil {
		t.Fatalf("SetPair failed: %v", err)
	}
	if pair := s.Pair(PanelA); pair.From != "USD" || pair.To != "UAH" {
		t.Errorf("Pair = %v, want normalized USD/UAH", pair)
	}

	for _, tt := range []struct{ from, to string }{
		{"", "UAH"},
		{"USD", ""},
		{"USD", "ua"},
		{"USD", "TOOLONGX"},
		{"USD", "u4h"},
	} {
		if err := s.SetPair(PanelA, tt.from, tt.to); err == nil {
			t.Errorf("SetPair(%q, %q) must fail", tt.from, tt.to)
		}
	}
}

// -----------------------------------------------------------------------------

func TestRefreshPanelEligiblePair(t *testing.T) {
	p2p := map[string]interfaces.IP2PClient{
		"binance": &fakeP2P{name: "binance", avg: avg(42.436)},
		"bybit":   &fakeP2P{name: "bybit", avg: nil},
	}
	sink := &memorySink{}
	s := newTestSync(&fakeRef{price: 41.2}, p2p, sink)

	if err := s.SetPair(PanelA, "USD", "UAH"); err != nil {
		t.Fatal(err)
	}
	s.RefreshPanel(context.Background(), PanelA)

	panels, spreads := s.Snapshot()
	panel := panels[PanelA]
	if panel.Price == nil || *panel.Price != 41.2 {
		t.Fatalf("panel price = %v, want 41.2", panel.Price)
	}
	if panel.Error != "" {
		t.Errorf("panel error = %q, want empty", panel.Error)
	}

	byExchange := make(map[string]models.MSpread)
	for _, sp := range spreads {
		if sp.Panel == PanelA {
			byExchange[sp.Exchange] = sp
		}
	}
	if got := byExchange["binance"].Display; got != "+3.00%" {
		t.Errorf("binance spread = %q, want +3.00%%", got)
	}
	if got := byExchange["bybit"].Display; got != models.NotApplicable {
		t.Errorf("bybit spread = %q, want not applicable without an average", got)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.samples) != 1 || sink.samples[0].Exchange != "binance" {
		t.Errorf("recorded samples = %v, want one binance sample", sink.samples)
	}
}

// -----------------------------------------------------------------------------

func TestRefreshPanelIneligiblePair(t *testing.T) {
	p2p := map[string]interfaces.IP2PClient{
		"binance": &fakeP2P{name: "binance", avg: avg(42.0)},
	}
	s := newTestSync(&fakeRef{price: 0.85}, p2p, nil)

	// GBP does not map to a tradable asset: the price shows and every
	// exchange carries an explicit not-applicable row.
	if err := s.SetPair(PanelA, "GBP", "EUR"); err != nil {
		t.Fatal(err)
	}
	s.RefreshPanel(context.Background(), PanelA)

	panels, spreads := s.Snapshot()
	if panels[PanelA].Price == nil {
		t.Error("an ineligible pair must still show its reference price")
	}
	var rows int
	for _, sp := range spreads {
		if sp.Panel != PanelA {
			continue
		}
		rows++
		if sp.Percent != nil || sp.Display != models.NotApplicable {
			t.Errorf("spread %+v, want a not-applicable row", sp)
		}
	}
	if rows != 1 {
		t.Errorf("spread rows = %d, want one per exchange", rows)
	}
}

// -----------------------------------------------------------------------------

func TestRefreshPanelFetchError(t *testing.T) {
	s := newTestSync(&fakeRef{err: errors.New("feed down")}, nil, nil)
	if err := s.SetPair(PanelA, "USD", "UAH"); err != nil {
		t.Fatal(err)
	}
	s.RefreshPanel(context.Background(), PanelA)

	panels, _ := s.Snapshot()
	panel := panels[PanelA]
	if panel.Price != nil {
		t.Error("a failed fetch must clear the price")
	}
	if panel.Error == "" {
		t.Error("a failed fetch must surface its error")
	}
}

// -----------------------------------------------------------------------------

func TestRefreshPanelDiscardsResultAfterPairChange(t *testing.T) {
	ref := &fakeRef{price: 41.2}
	s := newTestSync(ref, nil, nil)
	if err := s.SetPair(PanelA, "USD", "UAH"); err != nil {
		t.Fatal(err)
	}

	// The pair changes while the fetch is in flight; the stale result
	// must not be written back.
	ref.hook = func() {
		ref.hook = nil
		if err := s.SetPair(PanelA, "EUR", "UAH"); err != nil {
			t.Error(err)
		}
	}
	s.RefreshPanel(context.Background(), PanelA)

	panels, _ := s.Snapshot()
	panel := panels[PanelA]
	if panel.Pair.From != "EUR" {
		t.Fatalf("pair = %v, want the newer EUR/UAH", panel.Pair)
	}
	if panel.Price != nil {
		t.Errorf("price = %v, the stale USD/UAH result must be discarded", *panel.Price)
	}
}

// -----------------------------------------------------------------------------

func TestOnP2PUpdateRecomputesMatchingPanels(t *testing.T) {
	p2p := map[string]interfaces.IP2PClient{
		"binance": &fakeP2P{name: "binance", avg: avg(42.436)},
	}
	s := newTestSync(&fakeRef{price: 41.2}, p2p, nil)
	if err := s.SetPair(PanelA, "USD", "UAH"); err != nil {
		t.Fatal(err)
	}
	s.RefreshPanel(context.Background(), PanelA)

	// A fresh main-loop average for the matching market replaces the
	// spread without a new reference fetch.
	s.OnP2PUpdate("binance", models.MQuoteParams{Asset: "USDT", Fiat: "UAH", Side: "SELL"}, avg(39.964))

	_, spreads := s.Snapshot()
	var got string
	for _, sp := range spreads {
		if sp.Panel == PanelA && sp.Exchange == "binance" {
			got = sp.Display
		}
	}
	if got != "-3.00%" {
		t.Errorf("spread after update = %q, want -3.00%%", got)
	}

	// A non-matching market must leave the spread alone.
	s.OnP2PUpdate("binance", models.MQuoteParams{Asset: "BTC", Fiat: "UAH", Side: "SELL"}, avg(1.0))
	_, spreads = s.Snapshot()
	for _, sp := range spreads {
		if sp.Panel == PanelA && sp.Exchange == "binance" && sp.Display != "-3.00%" {
			t.Errorf("spread changed to %q on a non-matching update", sp.Display)
		}
	}
}

// -----------------------------------------------------------------------------

func TestSwapPair(t *testing.T) {
	s := newTestSync(&fakeRef{price: 41.2}, nil, nil)
	if err := s.SetPair(PanelB, "USD", "UAH"); err != nil {
		t.Fatal(err)
	}
	if err := s.SwapPair(PanelB); err != nil {
		t.Fatal(err)
	}
	if pair := s.Pair(PanelB); pair.From != "UAH" || pair.To != "USD" {
		t.Errorf("pair after swap = %v, want UAH/USD", pair)
	}

	if err := s.SwapPair("nope"); err == nil {
		t.Error("swapping an unknown panel must fail")
	}
}

// -----------------------------------------------------------------------------

func TestSwapPairRejectsMalformedResult(t *testing.T) {
	s := newTestSync(&fakeRef{price: 41.2}, nil, nil)

	// The from-side is not held to the fiat code format, so swapping it
	// into the to-side must be refused.
	if err := s.SetPair(PanelB, "BITCOIN", "UAH"); err != nil {
		t.Fatal(err)
	}
	if err := s.SwapPair(PanelB); err == nil {
		t.Error("SwapPair must reject a swap producing a malformed to-code")
	}
	if pair := s.Pair(PanelB); pair.From != "BITCOIN" || pair.To != "UAH" {
		t.Errorf("pair = %v, a rejected swap must leave the pair untouched", pair)
	}
}

// -----------------------------------------------------------------------------

func TestSetDefaultPairSkipsCustomizedPanels(t *testing.T) {
	s := newTestSync(&fakeRef{price: 41.2}, nil, nil)
	if err := s.SetPair(PanelB, "BTC", "USD"); err != nil {
		t.Fatal(err)
	}

	s.SetDefaultPair("USD", "EUR")

	if pair := s.Pair(PanelA); pair.From != "USD" || pair.To != "EUR" {
		t.Errorf("panel a pair = %v, want the default USD/EUR", pair)
	}
	if pair := s.Pair(PanelB); pair.From != "BTC" || pair.To != "USD" {
		t.Errorf("panel b pair = %v, customized panels must keep their pair", pair)
	}
}
