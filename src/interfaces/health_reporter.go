package interfaces

// -----------------------------------------------------------------------------
// IHealthReporter publishes availability of the external collaborators.
// -----------------------------------------------------------------------------

type IHealthReporter interface {
	// SetServing marks service ("push", "snapshot") as available or not.
	SetServing(service string, serving bool)
}
