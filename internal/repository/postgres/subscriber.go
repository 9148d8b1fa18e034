package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/signup-capture/internal/domain"
	"github.com/ignite/signup-capture/internal/service/subscription"
	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a unique index conflict.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS subscribers (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	email            TEXT NOT NULL,
	landing_page_url TEXT NOT NULL DEFAULT 'unknown',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS subscribers_email_key ON subscribers (email);
CREATE INDEX IF NOT EXISTS subscribers_created_at_idx ON subscribers (created_at DESC);
`

// Queryer is the subset of *sql.DB and *sql.Conn the repository uses.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PingContext(ctx context.Context) error
}

// SubscriberRepo implements subscription.Repository against PostgreSQL.
type SubscriberRepo struct{ db Queryer }

// NewSubscriberRepo creates a Postgres-backed subscriber repository.
func NewSubscriberRepo(db *sql.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

// On returns a repository that runs its statements on q, typically a
// *sql.Conn already pinned by an advisory lock.
func (r *SubscriberRepo) On(q Queryer) *SubscriberRepo { return &SubscriberRepo{db: q} }

// EnsureSchema creates the subscribers table and its indexes if missing.
func (r *SubscriberRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure subscribers schema: %w", err)
	}
	return nil
}

func (r *SubscriberRepo) FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	var s domain.Subscriber
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, landing_page_url, created_at
		FROM subscribers
		WHERE email = $1
	`, email).Scan(&s.ID, &s.Name, &s.Email, &s.LandingPageURL, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, subscription.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
	return &s, nil
}

func (r *SubscriberRepo) Insert(ctx context.Context, s *domain.Subscriber) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO subscribers (id, name, email, landing_page_url, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING created_at
	`, s.ID, s.Name, s.Email, s.LandingPageURL, nullTime(s)).Scan(&s.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return subscription.ErrDuplicate
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func (r *SubscriberRepo) ListAll(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, landing_page_url, created_at
		FROM subscribers
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	out := []domain.Subscriber{}
	for rows.Next() {
		var s domain.Subscriber
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.LandingPageURL, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return out, nil
}

func (r *SubscriberRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func nullTime(s *domain.Subscriber) sql.NullTime {
	return sql.NullTime{Time: s.CreatedAt, Valid: !s.CreatedAt.IsZero()}
}
