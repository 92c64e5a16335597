package interfaces

import (
	"context"

	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------
// IP2PClient is one P2P exchange: rate lookups plus the payment-method
// directory behind the staged filter.
// -----------------------------------------------------------------------------

type IP2PClient interface {

	// Exchange returns the lowercase exchange key ("binance", "bybit").
	Exchange() string

	// -----------------------------------------------------------------------------

	// FetchRate returns the ranked offers and the averaged rate for the
	// given parameters. A received-but-rejected response is reported as
	// a BackendRejectedError.
	FetchRate(ctx context.Context, params models.MQuoteParams) (*models.MP2PQuote, error)

	// -----------------------------------------------------------------------------

	// FetchCatalog returns the selectable payment methods for the given
	// filter context.
	FetchCatalog(ctx context.Context, params models.MQuoteParams) ([]models.MCatalogItem, error)
}

// -----------------------------------------------------------------------------
// IReferenceClient is one external reference price feed.
// -----------------------------------------------------------------------------

type IReferenceClient interface {

	// Label returns the feed's display label ("xe", "gfinance").
	Label() string

	// -----------------------------------------------------------------------------

	// FetchPrice returns the current price of one unit of `from` in `to`.
	FetchPrice(ctx context.Context, from, to string) (*models.MReferenceQuote, error)

	// -----------------------------------------------------------------------------

	// FetchCodes returns the currency codes the feed supports. Feeds
	// without a code directory return an empty slice.
	FetchCodes(ctx context.Context) ([]string, error)
}
