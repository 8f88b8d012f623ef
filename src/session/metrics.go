package session

import (
	"sync/atomic"

	"market-sync/src/models"
)

// counters are bumped by the event loop and read by the view server.
type counters struct {
	ticksApplied       atomic.Int64
	ticksStale         atomic.Int64
	candlesApplied     atomic.Int64
	candlesStale       atomic.Int64
	candlesNoSeries    atomic.Int64
	pushesUnwanted     atomic.Int64
	snapshotsApplied   atomic.Int64
	snapshotsDiscarded atomic.Int64
	fetchErrors        atomic.Int64
	deliveryFailures   atomic.Int64
	reconnects         atomic.Int64
	active             atomic.Int64
}

func (c *counters) snapshot() models.MSyncMetrics {
	return models.MSyncMetrics{
		TicksApplied:        c.ticksApplied.Load(),
		TicksStale:          c.ticksStale.Load(),
		CandlesApplied:      c.candlesApplied.Load(),
		CandlesStale:        c.candlesStale.Load(),
		CandlesNoSeries:     c.candlesNoSeries.Load(),
		PushesUnwanted:      c.pushesUnwanted.Load(),
		SnapshotsApplied:    c.snapshotsApplied.Load(),
		SnapshotsDiscarded:  c.snapshotsDiscarded.Load(),
		FetchErrors:         c.fetchErrors.Load(),
		DeliveryFailures:    c.deliveryFailures.Load(),
		Reconnects:          c.reconnects.Load(),
		ActiveSubscriptions: int(c.active.Load()),
	}
}
