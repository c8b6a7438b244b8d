package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a menu item offered by a single stall.
type Product struct {
	ID          string
	StallID     string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	// PrepMinutes is the estimated preparation time. Zero means unknown.
	PrepMinutes int
	Available   bool
	ImageURL    string
}

// Repository defines read operations for the menu catalog.
type Repository interface {
	ListByStall(ctx context.Context, stallID string) ([]Product, error)
	ListAvailable(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
