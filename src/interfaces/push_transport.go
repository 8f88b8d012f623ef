package interfaces

import (
	"context"
	"sync"

	"market-sync/src/models"
)

// -----------------------------------------------------------------------------
// IPushTransport is the real-time push channel.
// Delivery of intents is not confirmed by the channel.
// -----------------------------------------------------------------------------

type IPushTransport interface {

	// Subscribe sends a subscribe intent for key.
	Subscribe(key models.SubscriptionKey) error

	// -----------------------------------------------------------------------------

	// Unsubscribe sends an unsubscribe intent for key.
	Unsubscribe(key models.SubscriptionKey) error

	// -----------------------------------------------------------------------------

	// Events delivers decoded push events.
	Events() <-chan models.MPushEvent

	// -----------------------------------------------------------------------------

	// Connected fires once after every successful (re)connect.
	// The server may have dropped all prior subscriptions at that point.
	Connected() <-chan struct{}

	// -----------------------------------------------------------------------------

	// Start begins connecting in the background
	// ctx: controls the lifecycle (cancellation stops the transport)
	// wg: WaitGroup to signal when the transport has fully stopped
	Start(ctx context.Context, wg *sync.WaitGroup) error
}
