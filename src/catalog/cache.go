package catalog

import (
	"context"
	"sync"
	"time"

	"p2p-observer/src/helpers"
	"p2p-observer/src/interfaces"
	"p2p-observer/src/logger"
	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------
// Catalog Cache
// -----------------------------------------------------------------------------

// Opening a filter is user-triggered, so a failed directory fetch gets
// one quick retry before the open falls back to an empty catalog.
const (
	refreshAttempts  = 2
	refreshBaseDelay = 300 * time.Millisecond
)

// Cache holds the most recently fetched payment-method directory of one
// exchange. A refresh replaces the whole list; the previous list stays
// visible until a newer fetch succeeds or fails.
type Cache struct {
	client interfaces.IP2PClient
	logger *logger.Logger

	mu         sync.RWMutex
	items      []models.MCatalogItem
	lastParams models.MQuoteParams
	fetched    bool
}

// -----------------------------------------------------------------------------

func NewCache(client interfaces.IP2PClient) *Cache {
	return &Cache{
		client: client,
		logger: logger.NewLogger("CatalogCache-" + client.Exchange()),
	}
}

// -----------------------------------------------------------------------------

// Refresh fetches the directory under the given filter context and, on
// success, replaces the cached list. On failure the cache is emptied
// and the error returned; the caller must then drop any selections that
// referenced the old catalog (never keep selections against an unknown
// catalog).
//
// still is the staleness guard: it is evaluated after the fetch returns
// and write-back is suppressed when the parameters no longer match the
// caller's authoritative state. Pass nil to always apply.
func (c *Cache) Refresh(ctx context.Context, params models.MQuoteParams, still func(models.MQuoteParams) bool) ([]models.MCatalogItem, error) {
	var items []models.MCatalogItem
	err := helpers.RetryWithBackoff(c.logger, "catalog fetch", refreshAttempts, refreshBaseDelay, func() error {
		var ferr error
		items, ferr = c.client.FetchCatalog(ctx, params)
		return ferr
	})

	if still != nil && !still(params) {
		c.logger.Debug("Discarding stale catalog result for %s", c.client.Exchange())
		return nil, helpers.NewStaleResult("catalog parameters changed while fetch was in flight")
	}

	if err != nil {
		c.logger.Warning("Catalog refresh failed for %s: %v", c.client.Exchange(), err)
		c.mu.Lock()
		c.items = nil
		c.lastParams = params
		c.fetched = false
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.items = items
	c.lastParams = params
	c.fetched = true
	c.mu.Unlock()

	c.logger.Info("Catalog refreshed for %s: %d methods", c.client.Exchange(), len(items))
	return c.Items(), nil
}

// -----------------------------------------------------------------------------

// Items returns a copy of the cached directory.
func (c *Cache) Items() []models.MCatalogItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.MCatalogItem(nil), c.items...)
}

// -----------------------------------------------------------------------------

// Current reports whether the cache was last refreshed with exactly
// these parameters; a pending refresh issued with stale parameters must
// not overwrite a newer one.
func (c *Cache) Current(params models.MQuoteParams) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetched && c.lastParams.Equal(params)
}

// -----------------------------------------------------------------------------

// Contains reports whether an id is in the cached directory.
func (c *Cache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if it.ID == id {
			return true
		}
	}
	return false
}
