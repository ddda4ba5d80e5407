// Package extension defines the contract between the query coordinator and the
// providers that contribute results.
package extension

import (
	"context"

	"github.com/hyperjump/yobidashi/internal/models"
)

// Query is a handler's view of one running query session.
type Query interface {
	// Term returns the normalized search term.
	Term() models.Term
	// AddMatch appends one candidate. No-op once the session is invalid or finished.
	AddMatch(item *models.Item, score int16)
	// AddMatches appends several candidates under a single lock acquisition.
	AddMatches(candidates []models.Candidate)
	// IsValid reports whether contributions are still wanted. Long-running handlers
	// should poll it and return early once it is false.
	IsValid() bool
}

// Handler is a query provider. HandleQuery is called once per query on a pool goroutine
// and may call AddMatch any number of times before returning. A returned error or panic
// discards every candidate the handler added to that query.
type Handler interface {
	Name() string
	HandleQuery(ctx context.Context, q Query) error
}

// SessionHooks is implemented by handlers that need per-query setup. SetupSession runs
// before HandleQuery and TeardownSession after it, on the same goroutine.
type SessionHooks interface {
	SetupSession()
	TeardownSession()
}

// FallbackProvider is implemented by handlers that offer items shown only when a query
// yields no matches at all.
type FallbackProvider interface {
	Fallbacks(term models.Term) []*models.Item
}

// Closer is implemented by handlers owning background resources such as indexers.
type Closer interface {
	Close(ctx context.Context) error
}
