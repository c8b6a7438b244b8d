package stall

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested stall does not exist.
var ErrNotFound = errors.New("stall not found")

// Stall represents a single food vendor unit in the canteen.
type Stall struct {
	ID            string
	Name          string
	Description   string
	OwnerEmail    string
	OwnerPhone    string
	FloorNumber   int
	OpeningTime   string
	ClosingTime   string
	OperatingDays []string
	IsRegistered  bool
	IsActive      bool
	CreatedAt     time.Time
}

// Orderable reports whether the stall can currently accept orders.
// A stall must complete registration and be switched active by its owner.
func (s *Stall) Orderable() bool {
	return s.IsRegistered && s.IsActive
}

// Repository defines persistence operations for stalls.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Stall, error)
	GetByOwner(ctx context.Context, ownerEmail string) (*Stall, error)
	ListActive(ctx context.Context) ([]Stall, error)
	Create(ctx context.Context, s *Stall) error
	SetRegistered(ctx context.Context, id string, registered bool) error
}
