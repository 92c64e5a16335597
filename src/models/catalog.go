package models

// MCatalogItem is one selectable payment method of an exchange.
// Immutable once fetched; a catalog refresh replaces the whole list.
type MCatalogItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
