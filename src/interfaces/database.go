package interfaces

import "market-sync/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for persisting view preferences.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveViewState stores the last declared view of a session.
	SaveViewState(sessionID string, view models.MViewState) error

	// -----------------------------------------------------------------------------

	// LoadViewState returns the stored view; ok is false when none was saved.
	LoadViewState(sessionID string) (view models.MViewState, ok bool, err error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
