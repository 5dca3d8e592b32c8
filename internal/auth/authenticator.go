package auth

import (
	"context"

	"github.com/mmynk/groupledger/internal/models"
)

// Authenticator verifies who is calling. Group membership checks happen in
// the service layer; an Authenticator only deals with accounts.
type Authenticator interface {
	// Register creates a new account. The credential format depends on the
	// implementation.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the credential and returns the matching user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks the credential against the implementation's rules.
	ValidateCredential(credential string) error
}
