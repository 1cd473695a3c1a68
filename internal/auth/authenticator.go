// Package auth issues and checks the bearer tokens that guard the RPC API.
package auth

import "context"

// Roles carried in tokens. An admin may call everything a collaborator may.
const (
	RoleAdmin        = "admin"
	RoleCollaborator = "collaborator"
)

// Principal is an authenticated caller.
type Principal struct {
	Subject string
	Role    string
}

// Allows reports whether the principal may act in role.
func (p Principal) Allows(role string) bool {
	return p.Role == role || p.Role == RoleAdmin
}

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (static
// admin password, an identity provider, etc.) without changing the service
// layer code.
type Authenticator interface {
	// Authenticate verifies the credential and returns the caller if
	// successful. Returns ErrInvalidCredentials otherwise.
	Authenticate(ctx context.Context, username, credential string) (*Principal, error)
}
