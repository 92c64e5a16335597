package dashboard

import (
	"context"
	"strings"
	"sync"
	"time"

	"p2p-observer/src/catalog"
	"p2p-observer/src/filter"
	"p2p-observer/src/helpers"
	"p2p-observer/src/interfaces"
	"p2p-observer/src/logger"
	"p2p-observer/src/models"
	"p2p-observer/src/poller"
	"p2p-observer/src/refsync"
	"p2p-observer/src/storage"
)

// -----------------------------------------------------------------------------
// Dashboard orchestrator
// -----------------------------------------------------------------------------

// Exchange keys used across the filter controller, the catalogs and the
// published state.
const (
	ExchangeBinance = "binance"
	ExchangeBybit   = "bybit"
)

var p2pSources = map[string]string{
	ExchangeBinance: poller.SourceBinanceP2P,
	ExchangeBybit:   poller.SourceBybitP2P,
}

var panelSources = map[string]string{
	refsync.PanelA: poller.SourceReferenceA,
	refsync.PanelB: poller.SourceReferenceB,
}

// -----------------------------------------------------------------------------

type quoteState struct {
	quote  *models.MP2PQuote
	params models.MQuoteParams
	errMsg string
}

// Dashboard owns the global trade parameters and ties the scheduler,
// the filter controller, the catalogs and the reference synchronizer
// together. It is the single writer of the published snapshot.
type Dashboard struct {
	Config *models.MConfig

	scheduler *poller.Scheduler
	filters   *filter.Controller
	catalogs  map[string]*catalog.Cache
	clients   map[string]interfaces.IP2PClient
	refSync   *refsync.Synchronizer
	store     *storage.SessionStore

	mu        sync.Mutex
	params    models.MQuoteParams
	quotes    map[string]*quoteState
	exchanger interfaces.IDataExchanger

	logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewDashboard(cfg *models.MConfig, scheduler *poller.Scheduler, filters *filter.Controller,
	catalogs map[string]*catalog.Cache, clients map[string]interfaces.IP2PClient,
	refSync *refsync.Synchronizer, store *storage.SessionStore) *Dashboard {

	d := &Dashboard{
		Config:    cfg,
		scheduler: scheduler,
		filters:   filters,
		catalogs:  catalogs,
		clients:   clients,
		refSync:   refSync,
		store:     store,
		quotes:    make(map[string]*quoteState),
		params: models.MQuoteParams{
			Asset:  cfg.Dashboard.DefaultAsset,
			Fiat:   cfg.Dashboard.DefaultFiat,
			Side:   cfg.Dashboard.DefaultSide,
			Amount: cfg.Dashboard.DefaultAmount,
		},
		logger: logger.NewLogger("Dashboard"),
	}
	for ex := range clients {
		d.quotes[ex] = &quoteState{}
	}
	return d
}

// AttachExchanger wires the websocket hub in after construction; the
// hub needs the dashboard first for its initial snapshot.
func (d *Dashboard) AttachExchanger(ex interfaces.IDataExchanger) {
	d.mu.Lock()
	d.exchanger = ex
	d.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Start registers every polling source and kicks off the first cycle of
// each. Confirming a filter restarts that exchange's source, so a
// commit always produces an immediate out-of-cycle fetch.
func (d *Dashboard) Start() {
	interval := time.Duration(d.Config.Dashboard.RefreshIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}

	for ex := range d.clients {
		exchange := ex
		d.scheduler.Register(p2pSources[exchange], interval, func(ctx context.Context, gen uint64) {
			d.refreshP2P(ctx, exchange, gen)
		})
	}
	for panel, src := range panelSources {
		p := panel
		d.scheduler.Register(src, interval, func(ctx context.Context, gen uint64) {
			d.refreshReference(ctx, p, gen)
		})
	}

	d.filters.SetConfirmHook(func(exchange string) {
		if src, ok := p2pSources[exchange]; ok {
			d.scheduler.StartOrRestart(src)
		}
		d.publish()
	})
	d.refSync.SetChangeHook(d.publish)

	d.refSync.SetDefaultPair(d.Config.Dashboard.DefaultRefFrom, d.params.Fiat)

	for _, src := range p2pSources {
		d.scheduler.StartOrRestart(src)
	}
	for _, src := range panelSources {
		d.scheduler.StartOrRestart(src)
	}
	d.logger.Info("Dashboard started with %s/%s %s", d.params.Asset, d.params.Fiat, d.params.Side)
}

// Stop shuts the polling loops down.
func (d *Dashboard) Stop() {
	d.scheduler.Stop()
}

// -----------------------------------------------------------------------------
// Polling cycle bodies
// -----------------------------------------------------------------------------

// requestParams is the tagged parameter set for one exchange: the
// global inputs plus that exchange's committed payment methods.
func (d *Dashboard) requestParams(exchange string) models.MQuoteParams {
	d.mu.Lock()
	params := d.params
	d.mu.Unlock()
	params.Payments = d.filters.Committed(exchange)
	return params
}

func (d *Dashboard) refreshP2P(ctx context.Context, exchange string, gen uint64) {
	params := d.requestParams(exchange)
	client := d.clients[exchange]

	quote, err := client.FetchRate(ctx, params)

	// Late responses lose: the generation was bumped by a restart, or
	// the inputs moved on while the request was in flight.
	if !d.scheduler.Current(p2pSources[exchange], gen) || !d.requestParams(exchange).Equal(params) {
		d.logger.Debug("Dropping stale %s quote for %s/%s", exchange, params.Asset, params.Fiat)
		return
	}

	d.mu.Lock()
	qs := d.quotes[exchange]
	if err != nil {
		qs.quote = nil
		qs.params = params
		qs.errMsg = err.Error()
	} else {
		qs.quote = quote
		qs.params = params
		qs.errMsg = ""
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Warning("%s quote fetch failed: %v", exchange, err)
	} else {
		if quote.Avg != nil && d.store != nil {
			if serr := d.store.SaveQuoteSample(exchange, params, *quote.Avg, time.Now().Unix()); serr != nil {
				d.logger.Warning("Failed to record %s quote sample: %v", exchange, serr)
			}
		}
		d.refSync.OnP2PUpdate(exchange, params, quote.Avg)
	}
	d.publish()
}

func (d *Dashboard) refreshReference(ctx context.Context, panel string, gen uint64) {
	d.refSync.RefreshPanel(ctx, panel)
	_ = gen // pair tagging inside RefreshPanel handles staleness
}

// -----------------------------------------------------------------------------
// Global parameters
// -----------------------------------------------------------------------------

// SetParams validates and installs new global inputs, then restarts the
// schedules the change affects. A fiat change also re-targets the
// default reference pairs and invalidates the open catalog, if any.
func (d *Dashboard) SetParams(params models.MQuoteParams) error {
	params.Asset = strings.ToUpper(strings.TrimSpace(params.Asset))
	params.Fiat = strings.ToUpper(strings.TrimSpace(params.Fiat))
	params.Side = strings.ToUpper(strings.TrimSpace(params.Side))
	params.Amount = strings.TrimSpace(params.Amount)

	if params.Side != "SELL" && params.Side != "BUY" {
		return helpers.NewValidation("side must be SELL or BUY")
	}
	supported := false
	for _, a := range d.Config.Dashboard.SupportedAssets {
		if a == params.Asset {
			supported = true
			break
		}
	}
	if !supported {
		return helpers.NewValidation("unsupported asset " + params.Asset)
	}
	if params.Fiat == "" {
		return helpers.NewValidation("fiat is required")
	}

	d.mu.Lock()
	old := d.params
	params.Payments = nil // committed payments live in the filter controller
	d.params = params
	d.mu.Unlock()

	if old.Equal(params) {
		return nil
	}
	d.logger.Info("Parameters changed: %s/%s %s amount=%q merchant=%v verified=%v",
		params.Asset, params.Fiat, params.Side, params.Amount, params.Merchant, params.Verified)

	fiatChanged := old.Fiat != params.Fiat

	if fiatChanged {
		// Committed methods belong to the old fiat's catalog.
		for ex := range d.clients {
			if err := d.filters.ClearSelections(ex); err != nil {
				d.logger.Warning("Failed to clear %s selections: %v", ex, err)
			}
		}
		d.refSync.SetDefaultPair(d.Config.Dashboard.DefaultRefFrom, params.Fiat)
		for _, src := range panelSources {
			d.scheduler.StartOrRestart(src)
		}
	}

	for _, src := range p2pSources {
		d.scheduler.StartOrRestart(src)
	}

	d.publish()
	return nil
}

// -----------------------------------------------------------------------------
// Filter operations
// -----------------------------------------------------------------------------

// OpenFilter opens the staging instance and refreshes its catalog under
// the current parameters. A failed catalog fetch clears the selections
// so they can never reference methods the user cannot see.
func (d *Dashboard) OpenFilter(ctx context.Context, exchange string) error {
	if err := d.filters.Open(exchange); err != nil {
		return err
	}

	cache, ok := d.catalogs[exchange]
	if ok {
		params := d.requestParams(exchange)
		items, err := cache.Refresh(ctx, params, func(p models.MQuoteParams) bool {
			return d.requestParams(exchange).Equal(p)
		})
		switch {
		case helpers.IsStale(err):
			// A newer refresh owns the catalog now.
		case err != nil:
			if cerr := d.filters.ClearSelections(exchange); cerr != nil {
				d.logger.Warning("Failed to clear %s selections: %v", exchange, cerr)
			}
			if _, serr := d.filters.SyncCatalog(exchange, nil); serr != nil {
				d.logger.Warning("Failed to sync empty %s catalog: %v", exchange, serr)
			}
		default:
			if _, serr := d.filters.SyncCatalog(exchange, items); serr != nil {
				d.logger.Warning("Failed to sync %s catalog: %v", exchange, serr)
			}
		}
	}

	d.publish()
	return nil
}

func (d *Dashboard) ToggleFilter(exchange, itemID string) (int, error) {
	count, err := d.filters.Toggle(exchange, itemID)
	if err == nil {
		d.publish()
	}
	return count, err
}

func (d *Dashboard) SearchFilter(exchange, query string) error {
	err := d.filters.SetSearchQuery(exchange, query)
	if err == nil {
		d.publish()
	}
	return err
}

func (d *Dashboard) ConfirmFilter(exchange string) error {
	// The confirm hook restarts the exchange's schedule and publishes.
	return d.filters.Confirm(exchange)
}

func (d *Dashboard) ResetFilter(exchange string) error {
	err := d.filters.Reset(exchange)
	if err == nil {
		d.publish()
	}
	return err
}

func (d *Dashboard) CloseFilter(exchange string) error {
	err := d.filters.Close(exchange)
	if err == nil {
		d.publish()
	}
	return err
}

func (d *Dashboard) VisibleMethods(exchange string) ([]models.MCatalogItem, error) {
	d.mu.Lock()
	fiat := d.params.Fiat
	d.mu.Unlock()
	return d.filters.Visible(exchange, fiat)
}

// -----------------------------------------------------------------------------
// Reference panel operations
// -----------------------------------------------------------------------------

func (d *Dashboard) ApplyPair(panel, from, to string) error {
	if err := d.refSync.SetPair(panel, from, to); err != nil {
		return err
	}
	if src, ok := panelSources[panel]; ok {
		d.scheduler.StartOrRestart(src)
	}
	return nil
}

func (d *Dashboard) SwapPair(panel string) error {
	if err := d.refSync.SwapPair(panel); err != nil {
		return err
	}
	if src, ok := panelSources[panel]; ok {
		d.scheduler.StartOrRestart(src)
	}
	return nil
}

func (d *Dashboard) ReferenceCodes(ctx context.Context) ([]string, error) {
	return d.refSync.Codes(ctx, refsync.PanelA)
}

// -----------------------------------------------------------------------------

func (d *Dashboard) History(panel, exchange string, limit int) ([]models.MSpreadSample, error) {
	if d.store == nil {
		return nil, nil
	}
	return d.store.RecentSpreads(panel, exchange, limit)
}

// -----------------------------------------------------------------------------
// Snapshot / publish
// -----------------------------------------------------------------------------

// Snapshot assembles the full dashboard state.
func (d *Dashboard) Snapshot() *models.MLatestData {
	panels, spreads := d.refSync.Snapshot()

	d.mu.Lock()
	data := &models.MLatestData{
		Type:      "UPDATE",
		Params:    d.params,
		Quotes:    make(map[string]models.MQuoteView, len(d.quotes)),
		Panels:    panels,
		Spreads:   spreads,
		Filters:   make(map[string]models.MFilterView, len(d.quotes)),
		Timestamp: time.Now().Unix(),
	}
	for ex, qs := range d.quotes {
		view := models.MQuoteView{Exchange: ex, Error: qs.errMsg}
		if qs.quote != nil {
			view.Avg = qs.quote.Avg
			view.Prices = qs.quote.Prices
			view.Items = qs.quote.Items
		}
		data.Quotes[ex] = view
	}
	d.mu.Unlock()

	for ex := range d.clients {
		data.Filters[ex] = d.filters.View(ex)
	}
	return data
}

func (d *Dashboard) publish() {
	d.mu.Lock()
	ex := d.exchanger
	d.mu.Unlock()
	if ex != nil {
		ex.Broadcast(d.Snapshot())
	}
}
