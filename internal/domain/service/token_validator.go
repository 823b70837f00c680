package service

import "context"

// TokenValidator resolves an opaque bearer credential to a user id. Any error
// means the credential must be rejected; callers never retry.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}
