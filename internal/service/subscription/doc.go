// Package subscription implements the landing-page subscribe and list
// operations.
//
// A submission is checked for required fields, validated (format,
// disposable domain, mail exchange), checked against the store for an
// existing subscription, and only then inserted. Every rejection happens
// before any mutation.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package subscription
