// Package memory is a process-local subscriber store for development and
// tests. Contents are lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/signup-capture/internal/domain"
	"github.com/ignite/signup-capture/internal/service/subscription"
)

// SubscriberRepo implements subscription.Repository with a map keyed by email.
type SubscriberRepo struct {
	mu    sync.RWMutex
	byKey map[string]domain.Subscriber
	now   func() time.Time
}

// NewSubscriberRepo creates an empty in-memory repository.
func NewSubscriberRepo() *SubscriberRepo {
	return &SubscriberRepo{byKey: make(map[string]domain.Subscriber), now: time.Now}
}

func (r *SubscriberRepo) FindByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[email]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	return &s, nil
}

func (r *SubscriberRepo) Insert(_ context.Context, s *domain.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[s.Email]; exists {
		return subscription.ErrDuplicate
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now().UTC()
	}
	r.byKey[s.Email] = *s
	return nil
}

func (r *SubscriberRepo) ListAll(_ context.Context) ([]domain.Subscriber, error) {
	r.mu.RLock()
	out := make([]domain.Subscriber, 0, len(r.byKey))
	for _, s := range r.byKey {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *SubscriberRepo) Ping(context.Context) error { return nil }

// Len returns the number of stored subscribers.
func (r *SubscriberRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
