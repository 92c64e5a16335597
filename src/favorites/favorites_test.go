package favorites

import (
	"os"
	"path/filepath"
	"testing"

	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------

func testTable() Table {
	return Table{
		"binance": {
			"UAH": {"Monobank", "PrivatBank", "PUMB"},
		},
	}
}

// -----------------------------------------------------------------------------

func TestRank(t *testing.T) {
	table := testTable()

	tests := []struct {
		name     string
		item     models.MCatalogItem
		wantRank int
		wantOK   bool
	}{
		{
			name:     "exact id match",
			item:     models.MCatalogItem{ID: "Monobank", Name: "Monobank"},
			wantRank: 0,
			wantOK:   true,
		},
		{
			name:     "case and whitespace insensitive",
			item:     models.MCatalogItem{ID: "privat bank", Name: "Privat Bank"},
			wantRank: 1,
			wantOK:   true,
		},
		{
			name:     "name containment",
			item:     models.MCatalogItem{ID: "77", Name: "PUMB Online"},
			wantRank: 2,
			wantOK:   true,
		},
		{
			name:   "not a favorite",
			item:   models.MCatalogItem{ID: "42", Name: "CreditAgricole"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rank, ok := table.Rank("binance", "uah", tt.item)
			if ok != tt.wantOK {
				t.Fatalf("Rank ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && rank != tt.wantRank {
				t.Errorf("Rank = %d, want %d", rank, tt.wantRank)
			}
		})
	}
}

// -----------------------------------------------------------------------------

func TestRankExactIDBeatsContainment(t *testing.T) {
	table := Table{
		"binance": {
			"UAH": {"bank", "pumb"},
		},
	}
	// "PUMB" contains no exact match for token "bank" by id, but its id
	// equals the second token exactly; the exact pass must win.
	item := models.MCatalogItem{ID: "PUMB", Name: "PUMB Bank"}
	rank, ok := table.Rank("binance", "UAH", item)
	if !ok || rank != 1 {
		t.Fatalf("Rank = (%d, %v), want (1, true)", rank, ok)
	}
}

// -----------------------------------------------------------------------------

func TestSortForDisplay(t *testing.T) {
	table := testTable()
	items := []models.MCatalogItem{
		{ID: "1", Name: "Wise"},
		{ID: "2", Name: "PUMB"},
		{ID: "3", Name: "ABank"},
		{ID: "4", Name: "Monobank"},
		{ID: "5", Name: "PrivatBank"},
	}

	got := table.SortForDisplay("binance", "UAH", items, "")
	want := []string{"Monobank", "PrivatBank", "PUMB", "ABank", "Wise"}
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("position %d = %q, want %q", i, got[i].Name, name)
		}
	}
}

// -----------------------------------------------------------------------------

func TestSortForDisplaySearchFilter(t *testing.T) {
	table := testTable()
	items := []models.MCatalogItem{
		{ID: "1", Name: "Wise"},
		{ID: "4", Name: "Monobank"},
		{ID: "5", Name: "PrivatBank"},
	}

	got := table.SortForDisplay("binance", "UAH", items, "  BANK ")
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}
	if got[0].Name != "Monobank" || got[1].Name != "PrivatBank" {
		t.Errorf("got %q, %q; favorites order must survive filtering", got[0].Name, got[1].Name)
	}
}

// -----------------------------------------------------------------------------

func TestSortForDisplayUnknownMarket(t *testing.T) {
	table := testTable()
	items := []models.MCatalogItem{
		{ID: "2", Name: "Zelle"},
		{ID: "1", Name: "ACH"},
	}

	// No favorites for this market: plain alphabetical order.
	got := table.SortForDisplay("bybit", "USD", items, "")
	if len(got) != 2 || got[0].Name != "ACH" || got[1].Name != "Zelle" {
		t.Fatalf("got %v, want alphabetical order", got)
	}
}

// -----------------------------------------------------------------------------

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.yaml")
	content := []byte("binance:\n  UAH:\n    - Monobank\n    - PrivatBank\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table["binance"]["UAH"]) != 2 {
		t.Errorf("got %v, want two UAH favorites", table)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file must fail")
	}
}
