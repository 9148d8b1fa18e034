// Package validation decides whether a submitted address is eligible for a
// subscription. Rules run in a fixed order and the first failure wins:
// format, disposable domain, then mail exchange.
package validation

import (
	"context"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/ignite/signup-capture/internal/pkg/logger"
)

// Reason identifies the rule an address failed. ReasonNone means it passed.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonInvalidFormat  Reason = "invalid_format"
	ReasonDisposable     Reason = "disposable"
	ReasonNoMailExchange Reason = "no_mail_exchange"
)

// DefaultDisposableDomains is used when configuration supplies no deny-list.
var DefaultDisposableDomains = []string{"tempmail.com", "10minutemail.com", "mailinator.com"}

// DefaultMXTimeout bounds a single MX lookup.
const DefaultMXTimeout = 5 * time.Second

var formatRegex = regexp.MustCompile(`(?i)^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Resolver looks up MX records. *net.Resolver satisfies it.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// LookupObserver receives the duration of every MX lookup.
type LookupObserver interface {
	ObserveMXLookup(d time.Duration)
}

// Validator applies the format, disposable and MX rules. It is safe for
// concurrent use.
type Validator struct {
	disposable map[string]struct{}
	resolver   Resolver
	timeout    time.Duration
	observer   LookupObserver
}

// Option configures a Validator.
type Option func(*Validator)

// WithTimeout overrides DefaultMXTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithLookupObserver reports MX lookup latency to o.
func WithLookupObserver(o LookupObserver) Option {
	return func(v *Validator) { v.observer = o }
}

// New builds a validator over the given deny-list. A nil resolver uses
// net.DefaultResolver. An empty deny-list falls back to
// DefaultDisposableDomains.
func New(disposableDomains []string, resolver Resolver, opts ...Option) *Validator {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if len(disposableDomains) == 0 {
		disposableDomains = DefaultDisposableDomains
	}
	v := &Validator{
		disposable: make(map[string]struct{}, len(disposableDomains)),
		resolver:   resolver,
		timeout:    DefaultMXTimeout,
	}
	for _, d := range disposableDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			v.disposable[d] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns the first failing rule for email, or ReasonNone.
func (v *Validator) Validate(ctx context.Context, email string) Reason {
	if !IsValidFormat(email) {
		return ReasonInvalidFormat
	}
	if v.IsDisposable(email) {
		return ReasonDisposable
	}
	if !v.HasMailExchange(ctx, email) {
		return ReasonNoMailExchange
	}
	return ReasonNone
}

// IsValidFormat reports whether email looks like local@domain.tld.
func IsValidFormat(email string) bool {
	return formatRegex.MatchString(email)
}

// IsDisposable reports whether the domain of email is on the deny-list.
func (v *Validator) IsDisposable(email string) bool {
	domain, ok := Domain(email)
	if !ok {
		return false
	}
	_, denied := v.disposable[strings.ToLower(domain)]
	return denied
}

// HasMailExchange reports whether the domain of email publishes at least
// one MX record. Lookup errors count as "no".
func (v *Validator) HasMailExchange(ctx context.Context, email string) bool {
	domain, ok := Domain(email)
	if !ok {
		return false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	records, err := v.resolver.LookupMX(lookupCtx, domain)
	if v.observer != nil {
		v.observer.ObserveMXLookup(time.Since(start))
	}
	if err != nil {
		logger.Debug("mx lookup failed", "domain", domain, "error", err)
		return false
	}
	return len(records) > 0
}

// Domain returns the part after the single "@" in email.
func Domain(email string) (string, bool) {
	_, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "", false
	}
	return domain, true
}
