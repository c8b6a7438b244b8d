package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned when an API key is unknown or inactive.
var ErrUnauthorized = errors.New("unauthorized")

// Role distinguishes the two kinds of canteen principals.
type Role string

const (
	// RoleStudent identifies a student account; SubjectID is the student
	// profile's user ID.
	RoleStudent Role = "student"
	// RoleStall identifies a stall owner account; SubjectID is the stall ID.
	RoleStall Role = "stall"
)

// Principal is the authenticated identity behind an API key.
type Principal struct {
	ID        string
	KeyHash   string
	Role      Role
	SubjectID string
	Email     string
}

// Repository provides lookup of API key principals by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Principal, error)
}
