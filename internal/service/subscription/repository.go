package subscription

import (
	"context"

	"github.com/ignite/signup-capture/internal/domain"
)

// Repository defines the data access contract for subscriber records.
// No transaction is assumed across FindByEmail and Insert.
type Repository interface {
	// FindByEmail returns the subscriber stored under email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error)

	// Insert persists a new subscriber, assigning ID and CreatedAt when they
	// are zero. Returns ErrDuplicate if the backend already holds the email.
	Insert(ctx context.Context, s *domain.Subscriber) error

	// ListAll returns every subscriber ordered by CreatedAt descending.
	// An empty store yields an empty, non-nil slice.
	ListAll(ctx context.Context) ([]domain.Subscriber, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
