package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"p2p-observer/src/favorites"
	"p2p-observer/src/logger"
	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------
// Filter Staging Controller
// -----------------------------------------------------------------------------

// ErrNotOpen is returned when a staging operation hits a closed
// instance. The HTTP surface never produces this in normal use; seeing
// it means a caller bypassed the open/close protocol.
var ErrNotOpen = errors.New("filter instance is not open")

// ErrAlreadyOpen is returned when Open hits an instance that is open.
var ErrAlreadyOpen = errors.New("filter instance is already open")

// ErrUnknownExchange is returned for an exchange key the controller
// does not manage.
var ErrUnknownExchange = errors.New("unknown exchange")

// -----------------------------------------------------------------------------

// instance is the per-exchange state machine: Closed <-> Open, with a
// staged working copy of the committed selection while open. Only the
// Controller touches it, under the Controller mutex.
type instance struct {
	exchange    string
	catalog     []models.MCatalogItem
	committed   map[string]struct{}
	staged      map[string]struct{}
	searchQuery string
	isOpen      bool
	everOpened  bool
}

// -----------------------------------------------------------------------------

// Controller owns the selection state of all filter instances and
// enforces that at most one instance is open dashboard-wide. Committed
// selections are read by the polling side through Committed(); nothing
// else writes them.
type Controller struct {
	mu        sync.Mutex
	instances map[string]*instance
	favorites favorites.Table
	onConfirm func(exchange string)
	logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewController(exchanges []string, favs favorites.Table) *Controller {
	c := &Controller{
		instances: make(map[string]*instance, len(exchanges)),
		favorites: favs,
		logger:    logger.NewLogger("FilterController"),
	}
	for _, ex := range exchanges {
		c.instances[ex] = &instance{
			exchange:  ex,
			committed: make(map[string]struct{}),
		}
	}
	return c
}

// -----------------------------------------------------------------------------

// SetConfirmHook registers the callback fired after every successful
// Confirm, outside the controller lock.
func (c *Controller) SetConfirmHook(fn func(exchange string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConfirm = fn
}

// -----------------------------------------------------------------------------

func (c *Controller) get(exchange string) (*instance, error) {
	inst, ok := c.instances[exchange]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExchange, exchange)
	}
	return inst, nil
}

// -----------------------------------------------------------------------------

// Open transitions an instance to Open: any other open instance is
// closed first (its staged edits are discarded), the committed
// selection is cloned into the staged one, and the previous search
// query is restored (empty on the very first open).
func (c *Controller) Open(exchange string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, err := c.get(exchange)
	if err != nil {
		return err
	}
	if inst.isOpen {
		return ErrAlreadyOpen
	}

	// Global mutual exclusion: one open instance across the dashboard
	for _, other := range c.instances {
		if other.isOpen {
			c.logger.Debug("Closing %s filter before opening %s", other.exchange, exchange)
			other.isOpen = false
			other.staged = nil
		}
	}

	inst.staged = cloneSet(inst.committed)
	if !inst.everOpened {
		inst.searchQuery = ""
	}
	inst.everOpened = true
	inst.isOpen = true
	return nil
}

// -----------------------------------------------------------------------------

// Toggle flips an item in the staged selection and returns the new
// staged count.
func (c *Controller) Toggle(exchange, itemID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, err := c.get(exchange)
	if err != nil {
		return 0, err
	}
	if !inst.isOpen {
		c.logger.Warning("Toggle on closed %s filter ignored", exchange)
		return 0, ErrNotOpen
	}

	if _, ok := inst.staged[itemID]; ok {
		delete(inst.staged, itemID)
	} else {
		inst.staged[itemID] = struct{}{}
	}
	return len(inst.staged), nil
}

// -----------------------------------------------------------------------------

// SetSearchQuery normalizes and stores the search text.
func (c *Controller) SetSearchQuery(exchange, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, err := c.get(exchange)
	if err != nil {
		return err
	}
	if !inst.isOpen {
		c.logger.Warning("Search on closed %s filter ignored", exchange)
		return ErrNotOpen
	}

	inst.searchQuery = strings.ToLower(strings.TrimSpace(text))
	return nil
}

// -----------------------------------------------------------------------------

// Confirm copies the staged selection into the committed one and closes
// the instance. The confirm hook then triggers the out-of-cycle quote
// refresh for the exchange.
func (c *Controller) Confirm(exchange string) error {
	c.mu.Lock()

	inst, err := c.get(exchange)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !inst.isOpen {
		c.mu.Unlock()
		c.logger.Warning("Confirm on closed %s filter ignored", exchange)
		return ErrNotOpen
	}

	inst.committed = cloneSet(inst.staged)
	inst.staged = nil
	inst.isOpen = false
	hook := c.onConfirm
	c.logger.Info("Committed %d payment methods for %s", len(inst.committed), exchange)
	c.mu.Unlock()

	if hook != nil {
		hook(exchange)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Reset empties the staged selection; the instance stays open and the
// committed selection is untouched.
func (c *Controller) Reset(exchange string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, err := c.get(exchange)
	if err != nil {
		return err
	}
	if !inst.isOpen {
		c.logger.Warning("Reset on closed %s filter ignored", exchange)
		return ErrNotOpen
	}

	inst.staged = make(map[string]struct{})
	return nil
}

// -----------------------------------------------------------------------------

// Close discards the staged selection without committing.
func (c *Controller) Close(exchange string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, err := c.get(exchange)
	if err != nil {
		return err
	}
	if !inst.isOpen {
		c.logger.Warning("Close on closed %s filter ignored", exchange)
		return ErrNotOpen
	}

	inst.staged = nil
	inst.isOpen = false
	return nil
}

// -----------------------------------------------------------------------------

// SyncCatalog installs a freshly fetched catalog and prunes committed
// (and, while open, staged) ids that fell out of it. Returns the pruned
// ids. Must run before the next snapshot is published so the UI never
// shows a committed pill for a method that no longer exists.
func (c *Controller) SyncCatalog(exchange string, items []models.MCatalogItem) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, err := c.get(exchange)
	if err != nil {
		return nil, err
	}

	inst.catalog = append([]models.MCatalogItem(nil), items...)

	known := make(map[string]struct{}, len(items))
	for _, it := range items {
		known[it.ID] = struct{}{}
	}

	var pruned []string
	for id := range inst.committed {
		if _, ok := known[id]; !ok {
			delete(inst.committed, id)
			pruned = append(pruned, id)
		}
	}
	if inst.isOpen {
		for id := range inst.staged {
			if _, ok := known[id]; !ok {
				delete(inst.staged, id)
			}
		}
	}

	if len(pruned) > 0 {
		sort.Strings(pruned)
		c.logger.Info("Pruned %d stale selections for %s: %v", len(pruned), exchange, pruned)
	}
	return pruned, nil
}

// -----------------------------------------------------------------------------

// ClearSelections drops both selection sets, the fail-safe after a
// catalog fetch failure.
func (c *Controller) ClearSelections(exchange string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, err := c.get(exchange)
	if err != nil {
		return err
	}

	inst.committed = make(map[string]struct{})
	if inst.isOpen {
		inst.staged = make(map[string]struct{})
	}
	return nil
}

// -----------------------------------------------------------------------------

// Committed returns the committed selection, sorted for stable request
// parameters.
func (c *Controller) Committed(exchange string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[exchange]
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(inst.committed))
	for id := range inst.committed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// -----------------------------------------------------------------------------

// Visible returns the instance's catalog filtered by its search query
// and ordered favorites-first for the given fiat market.
func (c *Controller) Visible(exchange, fiat string) ([]models.MCatalogItem, error) {
	c.mu.Lock()
	inst, err := c.get(exchange)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	items := append([]models.MCatalogItem(nil), inst.catalog...)
	query := inst.searchQuery
	c.mu.Unlock()

	return c.favorites.SortForDisplay(exchange, fiat, items, query), nil
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the instance is open.
func (c *Controller) IsOpen(exchange string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.instances[exchange]
	return ok && inst.isOpen
}

// -----------------------------------------------------------------------------

// View returns the published state of one instance.
func (c *Controller) View(exchange string) models.MFilterView {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[exchange]
	if !ok {
		return models.MFilterView{Exchange: exchange}
	}

	committed := make([]string, 0, len(inst.committed))
	for id := range inst.committed {
		committed = append(committed, id)
	}
	sort.Strings(committed)

	return models.MFilterView{
		Exchange:       exchange,
		IsOpen:         inst.isOpen,
		SearchQuery:    inst.searchQuery,
		StagedCount:    len(inst.staged),
		CommittedCount: len(committed),
		Committed:      committed,
	}
}

// -----------------------------------------------------------------------------

func cloneSet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}
