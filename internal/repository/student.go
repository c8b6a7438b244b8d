package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/canteen-preorder/internal/domain/student"
)

const studentColumns = `id, user_id, student_id, name, email, department, year, phone`

var _ student.Repository = (*StudentRepository)(nil)

// StudentRepository implements student.Repository backed by PostgreSQL.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository returns a StudentRepository that uses the given pool.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByUser returns the profile linked to an auth user ID.
func (r *StudentRepository) GetByUser(ctx context.Context, userID string) (*student.Profile, error) {
	return r.getOne(ctx, `SELECT `+studentColumns+` FROM student_profiles WHERE user_id = $1`, userID)
}

// GetByEmail returns the profile with the given email.
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*student.Profile, error) {
	return r.getOne(ctx, `SELECT `+studentColumns+` FROM student_profiles WHERE email = $1`, email)
}

func (r *StudentRepository) getOne(ctx context.Context, sql, arg string) (*student.Profile, error) {
	var p student.Profile
	err := r.pool.QueryRow(ctx, sql, arg).Scan(
		&p.ID, &p.UserID, &p.StudentID, &p.Name, &p.Email, &p.Department, &p.Year, &p.Phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, student.ErrNotFound
		}
		return nil, fmt.Errorf("getting student profile: %w", err)
	}
	return &p, nil
}

// Upsert creates or updates the profile keyed by its auth user ID.
func (r *StudentRepository) Upsert(ctx context.Context, p *student.Profile) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO student_profiles (user_id, student_id, name, email, department, year, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id)
		DO UPDATE SET student_id = EXCLUDED.student_id,
		              name = EXCLUDED.name,
		              email = EXCLUDED.email,
		              department = EXCLUDED.department,
		              year = EXCLUDED.year,
		              phone = EXCLUDED.phone,
		              updated_at = now()
		RETURNING id`,
		p.UserID, p.StudentID, p.Name, p.Email, p.Department, p.Year, p.Phone,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("upserting student profile %q: %w", p.UserID, err)
	}
	return nil
}
