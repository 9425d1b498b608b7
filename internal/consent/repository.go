package consent

import "context"

// Repository persists consent records. There is deliberately no delete:
// consent history survives withdrawal, and account erasure is owned by an
// external collaborator.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*Record, error)
	Insert(ctx context.Context, rec *Record) (*Record, error)
	Update(ctx context.Context, rec *Record) error
}
