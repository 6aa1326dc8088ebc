package domain

import (
	"context"
	"errors"
)

// User is the identity resolved from a bearer credential. The identity
// service owns the record; this is a read-only view.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Service interface {
	// Resolve validates the bearer token against the identity service and
	// returns the user it belongs to. Every resolution failure, including
	// identity service outages, surfaces as ErrUnauthenticated so the
	// boundary never leaks a weaker failure mode for auth.
	Resolve(ctx context.Context, bearerToken string) (*User, error)
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
)
