package subscription

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by repositories.
var (
	ErrNotFound  = errors.New("subscriber not found")
	ErrDuplicate = errors.New("subscriber email already exists")
)

// Kind classifies a failed operation. The transport layer maps kinds to
// status codes without inspecting message text.
type Kind int

const (
	KindInternal Kind = iota
	KindMissingField
	KindInvalidFormat
	KindDisposableEmail
	KindUndeliverableDomain
	KindAlreadySubscribed
)

var kindNames = map[Kind]string{
	KindInternal:            "internal",
	KindMissingField:        "missing_field",
	KindInvalidFormat:       "invalid_format",
	KindDisposableEmail:     "disposable_email",
	KindUndeliverableDomain: "undeliverable_domain",
	KindAlreadySubscribed:   "already_subscribed",
}

var kindMessages = map[Kind]string{
	KindMissingField:        "Name and email are required",
	KindInvalidFormat:       "Invalid email format",
	KindDisposableEmail:     "Disposable emails not allowed",
	KindUndeliverableDomain: "Email domain not valid",
	KindAlreadySubscribed:   "Email already subscribed!",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// UserFacing reports whether the kind is an expected rejection of the
// caller's input rather than a failure of the service.
func (k Kind) UserFacing() bool {
	return k != KindInternal
}

// Message is the fixed user-facing text for k. Internal failures have none.
func (k Kind) Message() string {
	return kindMessages[k]
}

// Error is the tagged error returned by Service operations.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if msg := e.Kind.Message(); msg != "" {
		return msg
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func reject(kind Kind) *Error { return &Error{Kind: kind} }

func internal(err error) *Error { return &Error{Kind: KindInternal, Err: err} }

// KindOf extracts the Kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
