// Package reconcile holds the last known view state (prices and chart series)
// and merges snapshots and push events into it.
//
// Arrival order is not guaranteed, so staleness and post-unsubscribe pushes
// are reported as signals, never errors. The only hard error is a structurally
// invalid snapshot.
package reconcile

import (
	"fmt"
	"sync"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/models"
	"market-sync/src/utils"

	"github.com/shopspring/decimal"
)

// Signal describes what happened to an incoming update.
type Signal int

const (
	Applied Signal = iota
	Stale
	NoActiveSeries
	Discarded
)

func (s Signal) String() string {
	switch s {
	case Applied:
		return "applied"
	case Stale:
		return "stale"
	case NoActiveSeries:
		return "no_active_series"
	case Discarded:
		return "discarded"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// Direction is the transient visual cue for a price change.
type Direction string

const (
	Up        Direction = "up"
	Down      Direction = "down"
	Unchanged Direction = "unchanged"
)

// Guard reports whether a late response is still relevant to the view.
type Guard func() bool

// -----------------------------------------------------------------------------

type TickResult struct {
	Signal    Signal
	Direction Direction
	Entry     models.PriceEntry
}

type CandleResult struct {
	Signal   Signal
	Replaced bool
	Points   []models.Candle
}

type SnapshotResult struct {
	Signal Signal
	Points []models.Candle
}

// -----------------------------------------------------------------------------

type seriesID struct {
	symbol   string
	interval string
}

// Store is written by a single goroutine; readers may call Price, Prices and
// Series concurrently.
type Store struct {
	capacity int
	mu       sync.RWMutex
	prices   map[string]*models.PriceEntry
	series   map[seriesID]*SeriesBuffer
}

// NewStore creates a store whose series hold at most capacity points.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = utils.DefaultSeriesCapacity
	}
	return &Store{
		capacity: capacity,
		prices:   make(map[string]*models.PriceEntry),
		series:   make(map[seriesID]*SeriesBuffer),
	}
}

// -----------------------------------------------------------------------------
// Series lifecycle
// -----------------------------------------------------------------------------

// OpenSeries creates an empty buffer for an active chart. Idempotent.
func (s *Store) OpenSeries(symbol, interval string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := seriesID{models.NormalizeSymbol(symbol), interval}
	if _, ok := s.series[id]; !ok {
		s.series[id] = newSeriesBuffer(id.symbol, interval, s.capacity)
	}
}

// CloseSeries drops the buffer of a chart that is no longer shown.
func (s *Store) CloseSeries(symbol, interval string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.series, seriesID{models.NormalizeSymbol(symbol), interval})
}

// HasSeries reports whether a buffer exists for (symbol, interval).
func (s *Store) HasSeries(symbol, interval string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.series[seriesID{models.NormalizeSymbol(symbol), interval}]
	return ok
}

// -----------------------------------------------------------------------------
// Mutations
// -----------------------------------------------------------------------------

// ApplySnapshot replaces a series wholesale with fetched history.
//
// candles must be strictly increasing by time, otherwise an InvalidSnapshot
// error is returned and state is left unchanged. A false guard discards the
// response. Points already buffered that are newer than the snapshot's last
// candle were pushed while the fetch was in flight and are kept after it.
func (s *Store) ApplySnapshot(symbol, interval string, candles []models.Candle, guard Guard) (SnapshotResult, error) {
	for i := 1; i < len(candles); i++ {
		if candles[i].Time <= candles[i-1].Time {
			return SnapshotResult{}, helpers.NewInvalidSnapshotError(fmt.Sprintf(
				"snapshot %s/%s not increasing at index %d (%d after %d)",
				symbol, interval, i, candles[i].Time, candles[i-1].Time))
		}
	}
	if guard != nil && !guard() {
		return SnapshotResult{Signal: Discarded}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := seriesID{models.NormalizeSymbol(symbol), interval}
	buf, ok := s.series[id]
	if !ok {
		buf = newSeriesBuffer(id.symbol, interval, s.capacity)
		s.series[id] = buf
	}

	// An empty history keeps whatever was pushed meanwhile.
	merged := append([]models.Candle(nil), candles...)
	if len(candles) == 0 {
		merged = buf.Points()
	} else {
		edge := candles[len(candles)-1].Time
		for _, p := range buf.Points() {
			if p.Time > edge {
				merged = append(merged, p)
			}
		}
	}
	buf.reset(merged)

	return SnapshotResult{Signal: Applied, Points: buf.Points()}, nil
}

// -----------------------------------------------------------------------------

// ApplyTick updates or creates the price entry of symbol.
// A tick older than the stored LastUpdatedAt is ignored and reported Stale.
func (s *Store) ApplyTick(symbol string, price decimal.Decimal, at time.Time) TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbol = models.NormalizeSymbol(symbol)
	entry, ok := s.prices[symbol]
	if !ok {
		entry = &models.PriceEntry{Symbol: symbol, LastPrice: price, LastUpdatedAt: at}
		s.prices[symbol] = entry
		return TickResult{Signal: Applied, Direction: Unchanged, Entry: *entry}
	}

	if at.Before(entry.LastUpdatedAt) {
		return TickResult{Signal: Stale, Direction: Unchanged, Entry: *entry}
	}

	dir := Unchanged
	switch price.Cmp(entry.LastPrice) {
	case 1:
		dir = Up
	case -1:
		dir = Down
	}
	entry.LastPrice = price
	entry.LastUpdatedAt = at

	return TickResult{Signal: Applied, Direction: dir, Entry: *entry}
}

// ApplyPrice merges a fetched current price. It follows the tick rules, so a
// push that already landed with a later timestamp wins.
func (s *Store) ApplyPrice(entry models.PriceEntry) TickResult {
	return s.ApplyTick(entry.Symbol, entry.LastPrice, entry.LastUpdatedAt)
}

// -----------------------------------------------------------------------------

// ApplyCandle merges one push candle into its series: same time replaces in
// place, newer appends with FIFO eviction, older and absent is Stale. Without
// a buffer the candle is dropped as NoActiveSeries.
func (s *Store) ApplyCandle(symbol, interval string, candle models.Candle) CandleResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.series[seriesID{models.NormalizeSymbol(symbol), interval}]
	if !ok {
		return CandleResult{Signal: NoActiveSeries}
	}

	replaced, stale := buf.upsert(candle)
	if stale {
		return CandleResult{Signal: Stale}
	}
	return CandleResult{Signal: Applied, Replaced: replaced, Points: buf.Points()}
}

// -----------------------------------------------------------------------------

// Retain discards price entries whose symbol left every rendered view and
// returns the evicted symbols.
func (s *Store) Retain(symbols map[string]struct{}) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for sym := range s.prices {
		if _, keep := symbols[sym]; !keep {
			delete(s.prices, sym)
			evicted = append(evicted, sym)
		}
	}
	return evicted
}

// -----------------------------------------------------------------------------
// Readers
// -----------------------------------------------------------------------------

// Price returns the entry of symbol.
func (s *Store) Price(symbol string) (models.PriceEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.prices[models.NormalizeSymbol(symbol)]
	if !ok {
		return models.PriceEntry{}, false
	}
	return *e, true
}

// Prices returns a copy of every price entry.
func (s *Store) Prices() []models.PriceEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PriceEntry, 0, len(s.prices))
	for _, e := range s.prices {
		out = append(out, *e)
	}
	return out
}

// Series returns a copy of the points of (symbol, interval).
func (s *Store) Series(symbol, interval string) ([]models.Candle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf, ok := s.series[seriesID{models.NormalizeSymbol(symbol), interval}]
	if !ok {
		return nil, false
	}
	return buf.Points(), true
}

// Capacity returns the per-series point limit.
func (s *Store) Capacity() int {
	return s.capacity
}
