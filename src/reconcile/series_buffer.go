package reconcile

import (
	"market-sync/src/models"
	"market-sync/src/utils"
)

// SeriesBuffer is the bounded sliding window backing one chart.
// Points are strictly increasing by time and never exceed capacity.
type SeriesBuffer struct {
	Symbol   string
	Interval string
	ring     *utils.RingBuffer
}

func newSeriesBuffer(symbol, interval string, capacity int) *SeriesBuffer {
	return &SeriesBuffer{
		Symbol:   symbol,
		Interval: interval,
		ring:     utils.NewRingBuffer(capacity),
	}
}

// Len returns the number of points held.
func (b *SeriesBuffer) Len() int {
	return b.ring.Size()
}

// Capacity returns the maximum number of points held.
func (b *SeriesBuffer) Capacity() int {
	return b.ring.Capacity()
}

// Points returns a copy of the window, oldest first.
func (b *SeriesBuffer) Points() []models.Candle {
	return b.ring.GetAll()
}

// upsert replaces the point with the same time, appends a newer one, or
// rejects an older one that is not present.
func (b *SeriesBuffer) upsert(c models.Candle) (replaced bool, stale bool) {
	if i := b.ring.IndexOfTime(c.Time); i >= 0 {
		b.ring.Set(i, c)
		return true, false
	}
	if last, ok := b.ring.Last(); ok && c.Time < last.Time {
		return false, true
	}
	b.ring.Append(c)
	return false, false
}

// reset replaces the contents with points, keeping only the most recent capacity.
func (b *SeriesBuffer) reset(points []models.Candle) {
	b.ring.Clear()
	start := 0
	if len(points) > b.ring.Capacity() {
		start = len(points) - b.ring.Capacity()
	}
	for _, p := range points[start:] {
		b.ring.Append(p)
	}
}
