// Package identity exposes the current authenticated identity to the sync
// core. The core only reads identity; it never manages auth state beyond
// storing the token the user supplies at login.
package identity

import "context"

// Provider reports the current authenticated identity, or none.
type Provider interface {
	// Current returns the user id and true when an authenticated identity is
	// available. A missing or invalid token is not an error; sync is simply
	// deferred.
	Current(ctx context.Context) (string, bool)
}
