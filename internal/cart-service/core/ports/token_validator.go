package ports

import "context"

type TokenValidator interface {
	// Validate resolves a bearer token to the id of the user it was issued to.
	Validate(ctx context.Context, token string) (userID string, err error)
}
