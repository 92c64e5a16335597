package interfaces

import "p2p-observer/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing data with external systems (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// Broadcast pushes a full dashboard snapshot to all listeners and
	// replaces the cached state served to newly connecting clients.
	Broadcast(snapshot *models.MLatestData)

	// -----------------------------------------------------------------------------

	// Start the server
	Start() error

	// -----------------------------------------------------------------------------

	// Stop the server gracefully
	Stop() error
}
