package distlock

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisLock_ExclusiveUntilReleased(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "subscribe:a@example.com", 30*time.Second)
	second := NewRedisLock(client, "subscribe:a@example.com", 30*time.Second)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("lock:subscribe:a@example.com"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A non-owner release must not free the lock.
	require.NoError(t, second.Release(ctx))
	assert.True(t, mr.Exists("lock:subscribe:a@example.com"))

	require.NoError(t, first.Release(ctx))
	assert.False(t, mr.Exists("lock:subscribe:a@example.com"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	l := NewRedisLock(client, "k", time.Second)
	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = NewRedisLock(client, "k", time.Second).Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_BackendDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	_, err := NewRedisLock(client, "k", time.Second).Acquire(context.Background())
	assert.Error(t, err)
}

func TestPGAdvisoryLock_AcquireRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "subscribe:a@example.com")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(l.lockID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_Contended(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "k")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, l.Release(context.Background()), "release without a held lock is a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_SameKeySameID(t *testing.T) {
	assert.Equal(t, NewPGAdvisoryLock(nil, "x").lockID, NewPGAdvisoryLock(nil, "x").lockID)
	assert.NotEqual(t, NewPGAdvisoryLock(nil, "x").lockID, NewPGAdvisoryLock(nil, "y").lockID)
}

func TestPGAdvisoryLock_ConnPinnedWhileHeld(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "k")
	assert.Nil(t, l.Conn())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, l.Conn())

	require.NoError(t, l.Release(context.Background()))
	assert.Nil(t, l.Conn())
	assert.NoError(t, mock.ExpectationsWereMet())
}
