package storage

import "airbnb-ingest/models"

// Outcome is the result of pushing one record through the pipeline. Skipped
// records never reach storage (no natural key); the other three come back
// from the upsert engine.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeUpdated
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ListingStore is the interface the batch orchestrator writes through.
type ListingStore interface {
	// UpsertListing persists one listing and its children as a single
	// transaction. A failed call leaves the listing untouched.
	UpsertListing(listing *models.Listing) (Outcome, error)
	// LogFile appends one file-processing log entry.
	LogFile(entry models.FileLogEntry) error
}
