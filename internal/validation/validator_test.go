package validation

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver answers MX lookups from a map and records every query.
type fakeResolver struct {
	mu      sync.Mutex
	records map[string][]*net.MX
	errs    map[string]error
	queries []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{records: map[string][]*net.MX{}, errs: map[string]error{}}
}

func (f *fakeResolver) withMX(domain string, hosts ...string) *fakeResolver {
	for i, h := range hosts {
		f.records[domain] = append(f.records[domain], &net.MX{Host: h, Pref: uint16(10 * (i + 1))})
	}
	return f
}

func (f *fakeResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, name)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	return f.records[name], nil
}

func (f *fakeResolver) queried() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type recordingObserver struct{ calls int }

func (o *recordingObserver) ObserveMXLookup(time.Duration) { o.calls++ }

func TestIsValidFormat(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@example.com", true},
		{"First.Last+tag@Sub.Example.CO.uk", true},
		{"a@b.c", true},
		{"foo", false},
		{"foo@bar", false},
		{"@bar.com", false},
		{"foo@.com", false},
		{"foo@bar.", false},
		{"foo bar@example.com", false},
		{" foo@example.com", false},
		{"foo@exa mple.com", false},
		{"foo@@example.com", false},
		{"a@b@c.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidFormat(tt.email))
		})
	}
}

func TestDomain(t *testing.T) {
	d, ok := Domain("user@example.com")
	require.True(t, ok)
	assert.Equal(t, "example.com", d)

	_, ok = Domain("no-at-sign")
	assert.False(t, ok)

	_, ok = Domain("trailing@")
	assert.False(t, ok)
}

func TestValidate_FormatFailsFirst(t *testing.T) {
	res := newFakeResolver()
	v := New(nil, res)

	for _, email := range []string{"foo", "foo@bar", "@bar.com"} {
		assert.Equal(t, ReasonInvalidFormat, v.Validate(context.Background(), email), email)
	}
	assert.Empty(t, res.queried(), "format failures must not reach DNS")
}

func TestValidate_DisposableBeatsMX(t *testing.T) {
	res := newFakeResolver().withMX("tempmail.com", "mx1.tempmail.com")
	v := New(nil, res)

	assert.Equal(t, ReasonDisposable, v.Validate(context.Background(), "user@tempmail.com"))
	assert.Empty(t, res.queried())
}

func TestValidate_DisposableMatchIgnoresCase(t *testing.T) {
	v := New([]string{" Mailinator.com "}, newFakeResolver())

	assert.Equal(t, ReasonDisposable, v.Validate(context.Background(), "User@MAILINATOR.com"))
}

func TestValidate_ConfiguredDenyListReplacesDefault(t *testing.T) {
	res := newFakeResolver().withMX("tempmail.com", "mx.tempmail.com")
	v := New([]string{"throwaway.io"}, res)

	assert.Equal(t, ReasonDisposable, v.Validate(context.Background(), "x@throwaway.io"))
	assert.Equal(t, ReasonNone, v.Validate(context.Background(), "x@tempmail.com"))
}

func TestValidate_NoMXRecords(t *testing.T) {
	res := newFakeResolver()
	v := New(nil, res)

	assert.Equal(t, ReasonNoMailExchange, v.Validate(context.Background(), "user@nomail.example"))
	assert.Equal(t, []string{"nomail.example"}, res.queried())
}

func TestValidate_LookupErrorIsNoMX(t *testing.T) {
	res := newFakeResolver()
	res.errs["broken.example"] = &net.DNSError{Err: "no such host", Name: "broken.example", IsNotFound: true}
	v := New(nil, res)

	assert.Equal(t, ReasonNoMailExchange, v.Validate(context.Background(), "user@broken.example"))
}

func TestValidate_Passes(t *testing.T) {
	res := newFakeResolver().withMX("example.com", "mx1.example.com", "mx2.example.com")
	obs := &recordingObserver{}
	v := New(nil, res, WithLookupObserver(obs))

	assert.Equal(t, ReasonNone, v.Validate(context.Background(), "a@example.com"))
	assert.Equal(t, 1, obs.calls)
}

func TestHasMailExchange_UnparseableAddress(t *testing.T) {
	res := newFakeResolver()
	v := New(nil, res)

	assert.False(t, v.HasMailExchange(context.Background(), "not-an-email"))
	assert.Empty(t, res.queried())
}

// slowResolver blocks until its context is done.
type slowResolver struct{}

func (slowResolver) LookupMX(ctx context.Context, _ string) ([]*net.MX, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestHasMailExchange_TimeoutIsNoMX(t *testing.T) {
	v := New(nil, slowResolver{}, WithTimeout(20*time.Millisecond))

	start := time.Now()
	ok := v.HasMailExchange(context.Background(), "a@slow.example")

	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHasMailExchange_CanceledContext(t *testing.T) {
	res := newFakeResolver()
	res.errs["example.com"] = errors.New("operation was canceled")
	v := New(nil, res)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, v.HasMailExchange(ctx, "a@example.com"))
}

func TestNew_DefaultsApply(t *testing.T) {
	v := New(nil, nil)

	assert.Equal(t, DefaultMXTimeout, v.timeout)
	assert.NotNil(t, v.resolver)
	for _, d := range DefaultDisposableDomains {
		assert.True(t, v.IsDisposable("x@"+d), d)
	}
}
