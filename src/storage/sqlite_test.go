package storage

import (
	"testing"

	"p2p-observer/src/logger"
	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	cfg := &models.MConfig{}
	cfg.Storage.DBPath = ":memory:"

	store, err := NewSessionStore(cfg, logger.NewLogger("test"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// -----------------------------------------------------------------------------

func TestSpreadSampleRoundTrip(t *testing.T) {
	store := newTestStore(t)

	samples := []models.MSpreadSample{
		{Panel: "a", Exchange: "binance", Percent: 3.0, RefPrice: 41.2, P2PAvg: 42.436, CreatedAt: 100},
		{Panel: "a", Exchange: "bybit", Percent: -1.5, RefPrice: 41.2, P2PAvg: 40.582, CreatedAt: 200},
		{Panel: "b", Exchange: "binance", Percent: 0.5, RefPrice: 39.9, P2PAvg: 40.1, CreatedAt: 300},
	}
	for _, s := range samples {
		if err := store.SaveSpreadSample(s); err != nil {
			t.Fatalf("SaveSpreadSample failed: %v", err)
		}
	}

	got, err := store.RecentSpreads("", "", 10)
	if err != nil {
		t.Fatalf("RecentSpreads failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d samples, want 3", len(got))
	}
	if got[0].CreatedAt != 300 {
		t.Errorf("first sample CreatedAt = %d, want newest first", got[0].CreatedAt)
	}
}

// -----------------------------------------------------------------------------

func TestRecentSpreadsFilters(t *testing.T) {
	store := newTestStore(t)

	store.SaveSpreadSample(models.MSpreadSample{Panel: "a", Exchange: "binance", CreatedAt: 1})
	store.SaveSpreadSample(models.MSpreadSample{Panel: "a", Exchange: "bybit", CreatedAt: 2})
	store.SaveSpreadSample(models.MSpreadSample{Panel: "b", Exchange: "binance", CreatedAt: 3})

	got, err := store.RecentSpreads("a", "binance", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Panel != "a" || got[0].Exchange != "binance" {
		t.Errorf("got %v, want the single a/binance sample", got)
	}

	got, err = store.RecentSpreads("", "binance", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].CreatedAt != 3 {
		t.Errorf("got %v, limit must keep the newest sample", got)
	}
}

// -----------------------------------------------------------------------------

func TestSaveQuoteSample(t *testing.T) {
	store := newTestStore(t)

	params := models.MQuoteParams{Asset: "USDT", Fiat: "UAH", Side: "SELL"}
	if err := store.SaveQuoteSample("binance", params, 41.8, 100); err != nil {
		t.Fatalf("SaveQuoteSample failed: %v", err)
	}

	var count int
	if err := store.DB.QueryRow("SELECT COUNT(*) FROM quote_samples").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("quote_samples rows = %d, want 1", count)
	}
}
