// Package cache memoizes ledger confirmation results for the public
// verification endpoint. Entries are short-lived; a stale positive is bounded
// by the TTL and the primary store remains authoritative either way.
package cache

import "context"

// ConfirmationCache stores per-credential ledger confirmation outcomes.
// Lookup's second return reports whether the key was present. Only successful
// reads are cached; failures must stay uncached so recovery is observed
// promptly.
type ConfirmationCache interface {
	Lookup(ctx context.Context, key string) (confirmed bool, ok bool, err error)
	Store(ctx context.Context, key string, confirmed bool) error
}
