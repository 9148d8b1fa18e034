package subscription

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/signup-capture/internal/domain"
	"github.com/ignite/signup-capture/internal/pkg/logger"
	"github.com/ignite/signup-capture/internal/validation"
)

// EmailValidator returns the first rule an address fails, or
// validation.ReasonNone. *validation.Validator satisfies it.
type EmailValidator interface {
	Validate(ctx context.Context, email string) validation.Reason
}

// Lock guards the check-then-insert sequence for one address.
// distlock.DistLock satisfies it.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// BoundLock is a Lock that pins a backend connection while held. Repository
// calls made under the lock go through Repository so they share that
// connection instead of taking a second one from the pool.
type BoundLock interface {
	Lock
	Repository() Repository
}

// LockProvider returns a fresh lock for key.
type LockProvider func(key string) Lock

// Notifier is told about every newly stored subscriber.
type Notifier interface {
	Welcome(ctx context.Context, s domain.Subscriber) error
}

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	RecordSubscribe(outcome string)
	RecordListed(n int)
}

// Submission is one inbound subscribe request.
type Submission struct {
	Name    string
	Email   string
	Referer string
}

const (
	notifyTimeout   = 10 * time.Second
	defaultLockWait = 2 * time.Second
	lockPoll        = 50 * time.Millisecond
)

// Service implements subscription business logic. It is safe for
// concurrent use; each call runs sequentially on the caller's goroutine
// except for the optional welcome notification.
type Service struct {
	repo      Repository
	validator EmailValidator
	locks     LockProvider
	lockWait  time.Duration
	notifier  Notifier
	recorder  Recorder
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLocks serializes concurrent submissions of the same address.
func WithLocks(p LockProvider) Option { return func(s *Service) { s.locks = p } }

// WithLockWait bounds how long a submission waits for another submission of
// the same address to finish before it is rejected as already subscribed.
func WithLockWait(d time.Duration) Option { return func(s *Service) { s.lockWait = d } }

// WithNotifier sends a welcome message after each successful insert.
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithClock overrides time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a subscription service backed by repo and validator.
func NewService(repo Repository, validator EmailValidator, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		validator: validator,
		lockWait:  defaultLockWait,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe validates and stores a submission. Failures are *Error values
// tagged with the Kind of the first check that rejected the submission.
func (s *Service) Subscribe(ctx context.Context, sub Submission) (*domain.Subscriber, error) {
	stored, err := s.subscribe(ctx, sub)
	s.record(err)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *Service) subscribe(ctx context.Context, sub Submission) (*domain.Subscriber, error) {
	if strings.TrimSpace(sub.Name) == "" || strings.TrimSpace(sub.Email) == "" {
		return nil, reject(KindMissingField)
	}

	switch s.validator.Validate(ctx, sub.Email) {
	case validation.ReasonNone:
	case validation.ReasonInvalidFormat:
		return nil, reject(KindInvalidFormat)
	case validation.ReasonDisposable:
		return nil, reject(KindDisposableEmail)
	default:
		return nil, reject(KindUndeliverableDomain)
	}

	email := NormalizeEmail(sub.Email)

	repo := s.repo
	if s.locks != nil {
		lock, err := s.acquire(ctx, email)
		if err != nil {
			return nil, err
		}
		if lock != nil {
			defer s.release(ctx, lock, email)
			if b, ok := lock.(BoundLock); ok {
				repo = b.Repository()
			}
		}
	}

	_, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, reject(KindAlreadySubscribed)
	case !errors.Is(err, ErrNotFound):
		return nil, internal(err)
	}

	record := &domain.Subscriber{
		ID:             s.newID(),
		Name:           sub.Name,
		Email:          email,
		LandingPageURL: domain.LandingPageOrUnknown(sub.Referer),
		CreatedAt:      s.now().UTC(),
	}
	if err := repo.Insert(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, reject(KindAlreadySubscribed)
		}
		return nil, internal(err)
	}

	logger.Info("subscriber stored", "id", record.ID, "email", record.Email, "landing_page", record.LandingPageURL)
	s.notify(ctx, *record)
	return record, nil
}

// acquire takes the per-address lock, polling for up to lockWait while
// another submission holds it. The caller then re-checks the store, so a
// holder that failed does not cause a false duplicate. A nil lock with a nil
// error means the lock backend failed and the caller proceeds unlocked.
func (s *Service) acquire(ctx context.Context, email string) (Lock, error) {
	lock := s.locks("subscribe:" + email)
	deadline := time.Now().Add(s.lockWait)
	for {
		ok, err := lock.Acquire(ctx)
		if err != nil {
			logger.Warn("subscribe lock unavailable, continuing unlocked", "email", email, "error", err)
			return nil, nil
		}
		if ok {
			return lock, nil
		}
		if !time.Now().Before(deadline) {
			logger.Info("concurrent submission still in flight", "email", email)
			return nil, reject(KindAlreadySubscribed)
		}

		timer := time.NewTimer(lockPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, internal(ctx.Err())
		case <-timer.C:
		}
	}
}

func (s *Service) release(ctx context.Context, lock Lock, email string) {
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("subscribe lock release failed", "email", email, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, sub domain.Subscriber) {
	if s.notifier == nil {
		return
	}
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.Welcome(nctx, sub); err != nil {
			logger.Warn("welcome notification failed", "id", sub.ID, "email", sub.Email, "error", err)
		}
	}()
}

// List returns every stored subscriber, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Subscriber, error) {
	subs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, internal(err)
	}
	if subs == nil {
		subs = []domain.Subscriber{}
	}
	if s.recorder != nil {
		s.recorder.RecordListed(len(subs))
	}
	return subs, nil
}

func (s *Service) record(err error) {
	if s.recorder == nil {
		return
	}
	if err == nil {
		s.recorder.RecordSubscribe("ok")
		return
	}
	s.recorder.RecordSubscribe(KindOf(err).String())
}

// NormalizeEmail is the form addresses are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
