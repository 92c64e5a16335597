package interfaces

import (
	"context"

	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------
// IDashboardControl is the mutation surface the HTTP layer exposes to
// browsers. Every method leaves the dashboard in a consistent state and
// triggers the refreshes the change requires.
// -----------------------------------------------------------------------------

type IDashboardControl interface {

	// Snapshot returns the current full dashboard state.
	Snapshot() *models.MLatestData

	// -----------------------------------------------------------------------------

	// SetParams replaces the global filter inputs (asset, fiat, side,
	// amount, flags) and restarts exactly the affected schedules.
	SetParams(params models.MQuoteParams) error

	// -----------------------------------------------------------------------------
	// Staged filter operations, one instance per exchange.

	OpenFilter(ctx context.Context, exchange string) error
	ToggleFilter(exchange, itemID string) (int, error)
	SearchFilter(exchange, query string) error
	ConfirmFilter(exchange string) error
	ResetFilter(exchange string) error
	CloseFilter(exchange string) error

	// VisibleMethods returns the catalog filtered by the instance's
	// search query and ordered favorites-first.
	VisibleMethods(exchange string) ([]models.MCatalogItem, error)

	// -----------------------------------------------------------------------------
	// Reference panel operations.

	ApplyPair(panel, from, to string) error
	SwapPair(panel string) error
	ReferenceCodes(ctx context.Context) ([]string, error)

	// -----------------------------------------------------------------------------

	// History returns recent spread samples recorded this session.
	History(panel, exchange string, limit int) ([]models.MSpreadSample, error)
}
