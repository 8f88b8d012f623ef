package interfaces

import (
	"context"

	"market-sync/src/models"
)

// -----------------------------------------------------------------------------
// ISyncSession is what the view server needs from a running session.
// -----------------------------------------------------------------------------

type ISyncSession interface {

	// Navigate declares a new view; the session reconciles subscriptions.
	Navigate(ctx context.Context, view models.MViewState) error
	// -----------------------------------------------------------------------------
	// Update applies change to the view as the session holds it, after every
	// earlier declaration, and returns the resulting view.
	Update(ctx context.Context, change models.ViewChange) (models.MViewState, error)

	// -----------------------------------------------------------------------------

	// CurrentView returns the last declared view.
	CurrentView() models.MViewState

	// -----------------------------------------------------------------------------

	// Prices returns the current price entries.
	Prices() []models.PriceEntry

	// -----------------------------------------------------------------------------

	// Series returns the points of an active chart.
	Series(symbol, interval string) ([]models.Candle, bool)

	// -----------------------------------------------------------------------------

	// Metrics returns reconciliation counters.
	Metrics() models.MSyncMetrics
}
