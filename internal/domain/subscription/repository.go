package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the storage port for subscription bundles
type Repository interface {
	// Create persists a new bundle
	Create(ctx context.Context, bundle *Bundle) error

	// FindByID returns the bundle with the given ID or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Bundle, error)

	// FindActive returns the user's bundles that can back allocation at now:
	// status ACTIVE, not canceled, now within the current period
	FindActive(ctx context.Context, userID string, now time.Time) ([]*Bundle, error)

	// FindDue returns every bundle whose current period has elapsed as of now:
	// status ACTIVE, not canceled, period end <= now
	FindDue(ctx context.Context, now time.Time) ([]*Bundle, error)

	// Save updates an existing bundle
	Save(ctx context.Context, bundle *Bundle) error
}
