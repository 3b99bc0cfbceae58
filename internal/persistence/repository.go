package persistence

import "github.com/raxxex/arbtronx-live-trading/internal/models"

// StateRepository abstracts where the engine's reporting state lives
// (BadgerDB in production, in-memory in tests).
type StateRepository interface {
	// SaveState atomically saves the entire engine state.
	SaveState(state *models.EngineState) error

	// LoadState loads the engine state from storage.
	// If no state is found, it returns (nil, nil).
	LoadState() (*models.EngineState, error)

	// Close gracefully closes the connection to the database.
	Close() error
}
