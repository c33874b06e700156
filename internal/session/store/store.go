// Package store defines the durable session-state contract. The store is the
// only durable shared state in the console: the token pair, the serialized
// principal and the active-tenant id. Everything else is re-derived on demand.
package store

import (
	"context"
	"errors"

	"github.com/atlasboard/atlasboard/internal/session/domain"
)

// ErrNotFound reports a state key that has no value.
var ErrNotFound = errors.New("store: not found")

// Store persists session state across process restarts.
//
// Writes are last-writer-wins. SetTokens must be atomic per pair: a login and
// a background refresh resolving near-simultaneously may interleave, but the
// store never holds half a pair.
type Store interface {
	// SetTokens replaces the stored token pair in a single transaction.
	SetTokens(ctx context.Context, pair domain.TokenPair) error

	// Tokens returns the stored pair. ok is false when logged out.
	Tokens(ctx context.Context) (pair domain.TokenPair, ok bool, err error)

	// SetPrincipal replaces the serialized principal.
	SetPrincipal(ctx context.Context, p domain.Principal) error

	// Principal returns the stored principal. ok is false when absent.
	Principal(ctx context.Context) (p domain.Principal, ok bool, err error)

	// SetActiveTenant persists the selected tenant id.
	SetActiveTenant(ctx context.Context, tenantID string) error

	// ActiveTenant returns the persisted tenant id. ok is false when absent.
	ActiveTenant(ctx context.Context) (tenantID string, ok bool, err error)

	// Clear removes every persisted key in a single transaction. It is the
	// durable half of logout.
	Clear(ctx context.Context) error

	Close() error
}
