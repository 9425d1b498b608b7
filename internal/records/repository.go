package records

import "context"

type Repository interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
	SoftDelete(ctx context.Context, userID string) error
	HardDelete(ctx context.Context, userID string) error

	// List pages through all profiles in user-id order for the migration
	// and verification sweeps. Pass an empty afterUserID to start.
	List(ctx context.Context, afterUserID string, limit int) ([]Profile, error)
}
