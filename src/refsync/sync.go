package refsync

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"p2p-observer/src/helpers"
	"p2p-observer/src/interfaces"
	"p2p-observer/src/logger"
	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------
// Reference price synchronizer
// -----------------------------------------------------------------------------

// Panel keys. Panel A is served by the primary reference source, panel
// B by the secondary one.
const (
	PanelA = "a"
	PanelB = "b"
)

var fiatCodeRe = regexp.MustCompile(`^[A-Z]{3,5}$`)

// assetAliases maps a reference "from" currency onto the P2P asset it
// trades as. Identity for the supported crypto assets, plus the USD
// stablecoin alias.
var assetAliases = map[string]string{
	"USD":  "USDT",
	"USDT": "USDT",
	"USDC": "USDC",
	"BTC":  "BTC",
	"ETH":  "ETH",
	"BNB":  "BNB",
	"SOL":  "SOL",
}

// MapAsset resolves a reference pair's from-currency to a tradable P2P
// asset. ok is false when the pair cannot drive a spread.
func MapAsset(from string) (string, bool) {
	asset, ok := assetAliases[strings.ToUpper(from)]
	return asset, ok
}

// -----------------------------------------------------------------------------

// HistorySink receives every computed spread sample.
type HistorySink interface {
	SaveSpreadSample(sample models.MSpreadSample) error
}

// ParamsFunc builds the P2P request parameters for a pair-driven quote:
// the committed payment methods and global trade settings of the
// exchange, with asset and fiat overridden by the reference pair.
type ParamsFunc func(exchange, asset, fiat string) models.MQuoteParams

// -----------------------------------------------------------------------------

type panelState struct {
	pair    models.MReferencePair
	custom  bool
	quote   *models.MReferenceQuote
	errMsg  string
	spreads map[string]models.MSpread
}

// Synchronizer keeps the two reference panels and the spread table in
// step with the reference sources and the P2P market. All writes are
// tagged with the pair they were requested for: a fetch that lands
// after its pair changed is discarded.
type Synchronizer struct {
	mu        sync.Mutex
	panels    map[string]*panelState
	refs      map[string]interfaces.IReferenceClient
	p2p       map[string]interfaces.IP2PClient
	paramsFor ParamsFunc
	history   HistorySink
	onChange  func()
	logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSynchronizer(primary, secondary interfaces.IReferenceClient, p2p map[string]interfaces.IP2PClient, paramsFor ParamsFunc, history HistorySink) *Synchronizer {
	return &Synchronizer{
		panels: map[string]*panelState{
			PanelA: {spreads: make(map[string]models.MSpread)},
			PanelB: {spreads: make(map[string]models.MSpread)},
		},
		refs: map[string]interfaces.IReferenceClient{
			PanelA: primary,
			PanelB: secondary,
		},
		p2p:       p2p,
		paramsFor: paramsFor,
		history:   history,
		logger:    logger.NewLogger("RefSync"),
	}
}

// SetChangeHook registers the callback fired after every state change.
func (s *Synchronizer) SetChangeHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// -----------------------------------------------------------------------------

// SetPair installs an explicit currency pair on a panel. The previous
// price, error and spreads are cleared so the next refresh starts from
// a blank panel.
func (s *Synchronizer) SetPair(panel, from, to string) error {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || !fiatCodeRe.MatchString(to) {
		return helpers.NewInvalidPair("invalid currency pair " + from + "/" + to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.panels[panel]
	if !ok {
		return helpers.NewInvalidPair("unknown reference panel " + panel)
	}
	ps.pair = models.MReferencePair{From: from, To: to}
	ps.custom = true
	ps.quote = nil
	ps.errMsg = ""
	ps.spreads = make(map[string]models.MSpread)
	s.logger.Info("Panel %s pair set to %s/%s", panel, from, to)
	return nil
}

// SwapPair exchanges the two sides of a panel's pair.
func (s *Synchronizer) SwapPair(panel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.panels[panel]
	if !ok || ps.pair.IsZero() {
		return helpers.NewInvalidPair("panel " + panel + " has no pair to swap")
	}
	swapped := models.MReferencePair{From: ps.pair.To, To: ps.pair.From}
	if swapped.From == "" || !fiatCodeRe.MatchString(swapped.To) {
		return helpers.NewInvalidPair("cannot swap to invalid currency pair " + swapped.From + "/" + swapped.To)
	}
	ps.pair = swapped
	ps.custom = true
	ps.quote = nil
	ps.errMsg = ""
	ps.spreads = make(map[string]models.MSpread)
	s.logger.Info("Panel %s pair swapped to %s/%s", panel, ps.pair.From, ps.pair.To)
	return nil
}

// SetDefaultPair installs from/to on panels the user never customized.
// Called at startup and when the dashboard fiat changes.
func (s *Synchronizer) SetDefaultPair(from, to string) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	s.mu.Lock()
	defer s.mu.Unlock()
	for panel, ps := range s.panels {
		if ps.custom {
			continue
		}
		ps.pair = models.MReferencePair{From: from, To: to}
		ps.quote = nil
		ps.errMsg = ""
		ps.spreads = make(map[string]models.MSpread)
		s.logger.Debug("Panel %s follows default pair %s/%s", panel, from, to)
	}
}

// Pair returns the panel's current pair.
func (s *Synchronizer) Pair(panel string) models.MReferencePair {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ps, ok := s.panels[panel]; ok {
		return ps.pair
	}
	return models.MReferencePair{}
}

// -----------------------------------------------------------------------------

// RefreshPanel runs one reference fetch cycle for the panel: pull the
// reference price, then recompute the P2P spreads when the pair maps
// into a tradable market. The pair is snapshotted before the fetch and
// compared after it; a mismatch means the user changed the pair while
// the request was in flight and the result is dropped.
func (s *Synchronizer) RefreshPanel(ctx context.Context, panel string) {
	s.mu.Lock()
	ps, ok := s.panels[panel]
	if !ok {
		s.mu.Unlock()
		return
	}
	pair := ps.pair
	client := s.refs[panel]
	s.mu.Unlock()

	if pair.IsZero() || client == nil {
		return
	}

	quote, err := client.FetchPrice(ctx, pair.From, pair.To)

	s.mu.Lock()
	if ps.pair != pair {
		s.mu.Unlock()
		s.logger.Debug("Panel %s result for %s/%s discarded, pair changed mid-flight", panel, pair.From, pair.To)
		return
	}
	if err != nil {
		ps.quote = nil
		ps.errMsg = err.Error()
		ps.spreads = make(map[string]models.MSpread)
		s.mu.Unlock()
		s.logger.Warning("Panel %s fetch failed for %s/%s: %v", panel, pair.From, pair.To, err)
		s.notify()
		return
	}
	ps.quote = quote
	ps.errMsg = ""
	refPrice := quote.Price
	s.mu.Unlock()

	s.refreshSpreads(ctx, panel, pair, refPrice)
	s.notify()
}

// -----------------------------------------------------------------------------

// refreshSpreads recomputes the panel's spread row with fresh
// pair-keyed P2P lookups on every exchange.
func (s *Synchronizer) refreshSpreads(ctx context.Context, panel string, pair models.MReferencePair, refPrice float64) {
	asset, ok := MapAsset(pair.From)
	if !ok || !fiatCodeRe.MatchString(pair.To) {
		// The pair has no P2P market: the price still shows, every
		// exchange gets an explicit not-applicable row.
		s.mu.Lock()
		if ps := s.panels[panel]; ps != nil && ps.pair == pair {
			ps.spreads = make(map[string]models.MSpread, len(s.p2p))
			for name := range s.p2p {
				ps.spreads[name] = models.NewSpread(panel, name, nil, refPrice)
			}
		}
		s.mu.Unlock()
		return
	}

	type result struct {
		exchange string
		avg      *float64
	}
	results := make(chan result, len(s.p2p))

	var wg sync.WaitGroup
	for name, client := range s.p2p {
		wg.Add(1)
		go func(name string, client interfaces.IP2PClient) {
			defer wg.Done()
			params := s.paramsFor(name, asset, pair.To)
			quote, err := client.FetchRate(ctx, params)
			if err != nil {
				s.logger.Debug("Spread lookup on %s failed for %s/%s: %v", name, asset, pair.To, err)
				results <- result{exchange: name}
				return
			}
			results <- result{exchange: name, avg: quote.Avg}
		}(name, client)
	}
	wg.Wait()
	close(results)

	s.mu.Lock()
	ps := s.panels[panel]
	if ps == nil || ps.pair != pair {
		s.mu.Unlock()
		return
	}
	ps.spreads = make(map[string]models.MSpread)
	var samples []models.MSpreadSample
	for r := range results {
		spread := models.NewSpread(panel, r.exchange, r.avg, refPrice)
		ps.spreads[r.exchange] = spread
		if spread.Percent != nil {
			samples = append(samples, models.MSpreadSample{
				Panel:     panel,
				Exchange:  r.exchange,
				Percent:   *spread.Percent,
				RefPrice:  refPrice,
				P2PAvg:    *r.avg,
				CreatedAt: time.Now().Unix(),
			})
		}
	}
	s.mu.Unlock()

	if s.history != nil {
		for _, sample := range samples {
			if err := s.history.SaveSpreadSample(sample); err != nil {
				s.logger.Warning("Failed to record spread sample: %v", err)
			}
		}
	}
}

// -----------------------------------------------------------------------------

// OnP2PUpdate recomputes the spread in place when the main polling loop
// publishes a fresh average whose market matches an eligible panel
// pair. No network round-trip is involved.
func (s *Synchronizer) OnP2PUpdate(exchange string, params models.MQuoteParams, avg *float64) {
	s.mu.Lock()
	changed := false
	var samples []models.MSpreadSample
	for panel, ps := range s.panels {
		if ps.quote == nil {
			continue
		}
		asset, ok := MapAsset(ps.pair.From)
		if !ok || asset != params.Asset || ps.pair.To != params.Fiat {
			continue
		}
		spread := models.NewSpread(panel, exchange, avg, ps.quote.Price)
		ps.spreads[exchange] = spread
		changed = true
		if spread.Percent != nil {
			samples = append(samples, models.MSpreadSample{
				Panel:     panel,
				Exchange:  exchange,
				Percent:   *spread.Percent,
				RefPrice:  ps.quote.Price,
				P2PAvg:    *avg,
				CreatedAt: time.Now().Unix(),
			})
		}
	}
	s.mu.Unlock()

	if s.history != nil {
		for _, sample := range samples {
			if err := s.history.SaveSpreadSample(sample); err != nil {
				s.logger.Warning("Failed to record spread sample: %v", err)
			}
		}
	}
	if changed {
		s.notify()
	}
}

// -----------------------------------------------------------------------------

// Codes returns the currency codes the panel's reference source
// supports; nil when the source publishes no list.
func (s *Synchronizer) Codes(ctx context.Context, panel string) ([]string, error) {
	s.mu.Lock()
	client := s.refs[panel]
	s.mu.Unlock()
	if client == nil {
		return nil, nil
	}
	return client.FetchCodes(ctx)
}

// -----------------------------------------------------------------------------

// Snapshot returns the panels and spread rows in publishable form.
func (s *Synchronizer) Snapshot() (map[string]models.MReferencePanel, []models.MSpread) {
	s.mu.Lock()
	defer s.mu.Unlock()

	panels := make(map[string]models.MReferencePanel, len(s.panels))
	var spreads []models.MSpread
	for name, ps := range s.panels {
		view := models.MReferencePanel{
			Pair:  ps.pair,
			Error: ps.errMsg,
		}
		if ps.quote != nil {
			price := ps.quote.Price
			ts := ps.quote.TS
			view.Price = &price
			view.TimestampSeconds = &ts
			view.SourceLabel = ps.quote.Source
			view.URL = ps.quote.URL
		}
		panels[name] = view
		for _, sp := range ps.spreads {
			spreads = append(spreads, sp)
		}
	}
	return panels, spreads
}

// -----------------------------------------------------------------------------

func (s *Synchronizer) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
