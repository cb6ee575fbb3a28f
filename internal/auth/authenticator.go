// Package auth guards the household behind a shared passphrase and issues session tokens.
package auth

import "context"

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping the passphrase for another method
// without changing the service layer code.
type Authenticator interface {
	// Authenticate verifies the credential and returns the subject to put in the session token.
	Authenticate(ctx context.Context, credential string) (string, error)
}
