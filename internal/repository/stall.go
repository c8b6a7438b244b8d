package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/canteen-preorder/internal/domain/stall"
)

const stallColumns = `id, name, description, owner_email, owner_phone, floor_number,
	opening_time, closing_time, operating_days, is_registered, is_active, created_at`

var _ stall.Repository = (*StallRepository)(nil)

// StallRepository implements stall.Repository backed by PostgreSQL.
type StallRepository struct {
	pool *pgxpool.Pool
}

// NewStallRepository returns a StallRepository that uses the given pool.
func NewStallRepository(pool *pgxpool.Pool) *StallRepository {
	return &StallRepository{pool: pool}
}

// GetByID returns a single stall by its identifier.
func (r *StallRepository) GetByID(ctx context.Context, id string) (*stall.Stall, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+stallColumns+` FROM stalls WHERE id = $1`, id,
	)
	s, err := scanStall(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, stall.ErrNotFound
		}
		return nil, fmt.Errorf("getting stall %q: %w", id, err)
	}
	return &s, nil
}

// GetByOwner returns the stall registered under the given owner email.
func (r *StallRepository) GetByOwner(ctx context.Context, ownerEmail string) (*stall.Stall, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+stallColumns+` FROM stalls WHERE owner_email = $1`, ownerEmail,
	)
	s, err := scanStall(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, stall.ErrNotFound
		}
		return nil, fmt.Errorf("getting stall for owner %q: %w", ownerEmail, err)
	}
	return &s, nil
}

// ListActive returns all stalls currently able to take orders.
func (r *StallRepository) ListActive(ctx context.Context) ([]stall.Stall, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+stallColumns+` FROM stalls WHERE is_registered AND is_active ORDER BY floor_number, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing active stalls: %w", err)
	}
	defer rows.Close()

	var out []stall.Stall
	for rows.Next() {
		s, err := scanStall(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stall: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists a new stall. New stalls start unregistered and inactive
// unless the caller says otherwise.
func (r *StallRepository) Create(ctx context.Context, s *stall.Stall) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO stalls (name, description, owner_email, owner_phone, floor_number,
			opening_time, closing_time, operating_days, is_registered, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		s.Name, s.Description, s.OwnerEmail, s.OwnerPhone, s.FloorNumber,
		s.OpeningTime, s.ClosingTime, s.OperatingDays, s.IsRegistered, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating stall %q: %w", s.Name, err)
	}
	return nil
}

// SetRegistered flips the registration flag of a stall.
func (r *StallRepository) SetRegistered(ctx context.Context, id string, registered bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE stalls SET is_registered = $2, updated_at = now() WHERE id = $1`,
		id, registered,
	)
	if err != nil {
		return fmt.Errorf("updating stall %q registration: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return stall.ErrNotFound
	}
	return nil
}

func scanStall(row pgx.Row) (stall.Stall, error) {
	var s stall.Stall
	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &s.OwnerEmail, &s.OwnerPhone, &s.FloorNumber,
		&s.OpeningTime, &s.ClosingTime, &s.OperatingDays, &s.IsRegistered, &s.IsActive,
		&s.CreatedAt,
	)
	return s, err
}
