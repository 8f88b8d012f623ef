package interfaces

import (
	"context"

	"market-sync/src/models"
)

// -----------------------------------------------------------------------------
// ISnapshotSource fetches history and current prices over request/response.
// -----------------------------------------------------------------------------

type ISnapshotSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchKlines returns up to limit candles, oldest first.
	FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)

	// -----------------------------------------------------------------------------

	// FetchPrice returns the current price of symbol.
	FetchPrice(ctx context.Context, symbol string) (models.PriceEntry, error)
}
