package main

import (
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"market-sync/src/models"
	"market-sync/src/utils"

	"github.com/shopspring/decimal"
)

var basePrices = map[string]float64{
	"BTCUSDT":  43250,
	"ETHUSDT":  2280,
	"BNBUSDT":  310,
	"SOLUSDT":  98,
	"XRPUSDT":  0.62,
	"DOGEUSDT": 0.085,
	"SHIBUSDT": 0.0000095,
}

// -----------------------------------------------------------------------------

// market is a random walk per symbol. Live candles are tracked per
// (symbol, interval) so pushed klines stay consistent with pushed ticks.
type market struct {
	mu      sync.Mutex
	rng     *rand.Rand
	prices  map[string]decimal.Decimal
	candles map[models.SubscriptionKey]models.Candle
}

func newMarket(seed int64) *market {
	return &market{
		rng:     rand.New(rand.NewSource(seed)),
		prices:  make(map[string]decimal.Decimal),
		candles: make(map[models.SubscriptionKey]models.Candle),
	}
}

// -----------------------------------------------------------------------------

func (m *market) current(symbol string) decimal.Decimal {
	if p, ok := m.prices[symbol]; ok {
		return p
	}
	base, ok := basePrices[symbol]
	if !ok {
		h := fnv.New32a()
		h.Write([]byte(symbol))
		base = float64(h.Sum32()%5000) + 1
	}
	p := decimal.NewFromFloat(base)
	m.prices[symbol] = p
	return p
}

// -----------------------------------------------------------------------------

// jitter returns p moved by at most ±pct percent.
func (m *market) jitter(p decimal.Decimal, pct float64) decimal.Decimal {
	f := 1 + (m.rng.Float64()*2-1)*pct/100
	return p.Mul(decimal.NewFromFloat(f)).Round(8)
}

// -----------------------------------------------------------------------------

// Price returns the current price without moving it.
func (m *market) Price(symbol string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current(symbol)
}

// Step moves the price of symbol and returns it.
func (m *market) Step(symbol string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.jitter(m.current(symbol), 0.25)
	m.prices[symbol] = p
	return p
}

// -----------------------------------------------------------------------------

// Candle folds the current price into the live candle of symbol/interval.
func (m *market) Candle(symbol, interval string, now time.Time) (models.Candle, bool) {
	d, ok := utils.IntervalDuration(interval)
	if !ok {
		return models.Candle{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	price := m.current(symbol)
	bucket := utils.BucketStart(now.UnixMilli(), d)
	key := models.KlineKey(symbol, interval)

	c, ok := m.candles[key]
	if !ok || c.Time != bucket {
		c = models.Candle{Time: bucket, Open: price, High: price, Low: price, Volume: decimal.Zero}
	}
	c.Close = price
	if price.GreaterThan(c.High) {
		c.High = price
	}
	if price.LessThan(c.Low) {
		c.Low = price
	}
	c.Volume = c.Volume.Add(decimal.NewFromFloat(m.rng.Float64() * 10).Round(4))

	m.candles[key] = c
	return c, true
}

// -----------------------------------------------------------------------------

// History synthesizes limit closed-or-current candles ending at the bucket
// containing now, walking backwards from the current price.
func (m *market) History(symbol, interval string, limit int, now time.Time) ([]models.Candle, bool) {
	d, ok := utils.IntervalDuration(interval)
	if !ok {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Candle, limit)
	end := utils.BucketStart(now.UnixMilli(), d)
	p := m.current(symbol)
	for i := limit - 1; i >= 0; i-- {
		open := m.jitter(p, 1)
		high := decimal.Max(open, p)
		low := decimal.Min(open, p)
		out[i] = models.Candle{
			Time:   end - int64(limit-1-i)*d.Milliseconds(),
			Open:   open,
			High:   high.Add(high.Mul(decimal.NewFromFloat(m.rng.Float64() / 200))).Round(8),
			Low:    low.Sub(low.Mul(decimal.NewFromFloat(m.rng.Float64() / 200))).Round(8),
			Close:  p,
			Volume: decimal.NewFromFloat(m.rng.Float64() * 1000).Round(4),
		}
		p = open
	}
	return out, true
}
