package interfaces

import "market-sync/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger is the view layer: it receives minimal re-render updates.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes one view update to every connected renderer.
	Broadcast(update *models.MViewUpdate)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
