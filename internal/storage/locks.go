package storage

import (
	"time"

	"github.com/ignite/signup-capture/internal/pkg/distlock"
	"github.com/ignite/signup-capture/internal/repository/postgres"
	"github.com/ignite/signup-capture/internal/service/subscription"
	"github.com/redis/go-redis/v9"
)

// Locks returns the per-address subscribe lock for this backend. Redis is
// preferred when rdb is set. Otherwise the postgres backend uses advisory
// locks whose pinned connection also carries the locked reads and writes.
// Returns nil when no lock backend is available.
func (b *Backend) Locks(rdb *redis.Client, ttl time.Duration) subscription.LockProvider {
	switch {
	case rdb != nil:
		return func(key string) subscription.Lock { return distlock.NewRedisLock(rdb, key, ttl) }
	case b.DB != nil && b.pg != nil:
		return func(key string) subscription.Lock {
			return &pinnedLock{PGAdvisoryLock: distlock.NewPGAdvisoryLock(b.DB, key), repo: b.pg}
		}
	default:
		return nil
	}
}

// pinnedLock routes the locked check-then-insert over the advisory lock's
// own connection. A session-scoped advisory lock holds one pooled
// connection, so using the pool for the repository calls as well would need
// two connections per submission.
type pinnedLock struct {
	*distlock.PGAdvisoryLock
	repo *postgres.SubscriberRepo
}

func (l *pinnedLock) Repository() subscription.Repository {
	if conn := l.Conn(); conn != nil {
		return l.repo.On(conn)
	}
	return l.repo
}
