package student

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested profile does not exist.
var ErrNotFound = errors.New("student profile not found")

// Profile holds a student's canteen account details.
type Profile struct {
	ID         string
	UserID     string
	StudentID  string
	Name       string
	Email      string
	Department string
	Year       int
	Phone      string
}

// Repository defines persistence operations for student profiles.
type Repository interface {
	GetByUser(ctx context.Context, userID string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
}
