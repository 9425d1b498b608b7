package audit

import "context"

// Recorder is the write side of the audit trail. Insert is the only
// mutation; immutability is enforced at the API surface, not by convention.
type Recorder interface {
	Insert(ctx context.Context, e *Entry) error
}

// Reader serves the query needs of this subsystem (the export bundle).
// Richer query surfaces are an external collaborator's concern.
type Reader interface {
	ListByTarget(ctx context.Context, targetUserID string, limit int) ([]Entry, error)
}

// Store combines both sides for implementations backed by one table.
type Store interface {
	Recorder
	Reader
}
