package favorites

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"p2p-observer/src/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Favorites Ranker
// -----------------------------------------------------------------------------

// Table maps exchange -> fiat -> ordered favorite tokens. A token is
// either a payment method id or a fragment of its display name; list
// position is the display rank. The table is declarative data so new
// markets are a config edit, not a code change.
type Table map[string]map[string][]string

// -----------------------------------------------------------------------------

// Load reads a favorites table from a YAML file.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read favorites file '%s': %w", path, err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse favorites from YAML: %w", err)
	}
	if t == nil {
		t = Table{}
	}
	return t, nil
}

// -----------------------------------------------------------------------------

// normalize lowercases and strips all whitespace so "Privat Bank" and
// "PRIVATBANK" compare equal.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// -----------------------------------------------------------------------------

// Rank returns the favorite rank of an item for an exchange/fiat market,
// or ok=false when the item is not a favorite. An exact id match beats
// a containment match; within each rule the first token wins.
func (t Table) Rank(exchange, fiat string, item models.MCatalogItem) (int, bool) {
	tokens := t[exchange][strings.ToUpper(fiat)]
	if len(tokens) == 0 {
		return 0, false
	}

	id := normalize(item.ID)
	name := normalize(item.Name)

	for i, token := range tokens {
		if normalize(token) == id {
			return i, true
		}
	}
	for i, token := range tokens {
		tok := normalize(token)
		if tok == "" {
			continue
		}
		if strings.Contains(name, tok) || strings.Contains(id, tok) {
			return i, true
		}
	}
	return 0, false
}

// -----------------------------------------------------------------------------

// SortForDisplay filters items by the search query and orders them
// favorites-first. The result is a pure function of the inputs:
//   - query filter: case-insensitive substring of name or id, empty
//     query keeps everything
//   - favorites ascending by rank, ties kept in catalog order
//   - non-favorites by locale-aware case-insensitive name
func (t Table) SortForDisplay(exchange, fiat string, items []models.MCatalogItem, searchQuery string) []models.MCatalogItem {
	q := strings.ToLower(strings.TrimSpace(searchQuery))

	var favs, rest []models.MCatalogItem
	ranks := make(map[string]int)

	for _, it := range items {
		if q != "" &&
			!strings.Contains(strings.ToLower(it.Name), q) &&
			!strings.Contains(strings.ToLower(it.ID), q) {
			continue
		}
		if r, ok := t.Rank(exchange, fiat, it); ok {
			ranks[it.ID] = r
			favs = append(favs, it)
		} else {
			rest = append(rest, it)
		}
	}

	sort.SliceStable(favs, func(i, j int) bool {
		return ranks[favs[i].ID] < ranks[favs[j].ID]
	})

	// Collators carry an internal buffer, so build a fresh one per call.
	coll := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(rest, func(i, j int) bool {
		return coll.CompareString(rest[i].Name, rest[j].Name) < 0
	})

	return append(favs, rest...)
}
