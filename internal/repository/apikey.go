package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/canteen-preorder/internal/domain/auth"
)

const getAPIKeyByHashSQL = `SELECT id, key_hash, role, subject_id, email
	FROM api_keys WHERE key_hash = $1 AND active = TRUE`

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key principal lookups backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.Principal, error) {
	var p auth.Principal
	err := r.pool.QueryRow(ctx, getAPIKeyByHashSQL, hash).Scan(
		&p.ID, &p.KeyHash, &p.Role, &p.SubjectID, &p.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUnauthorized
		}
		return nil, errors.Wrap(err, "finding api key by hash")
	}
	return &p, nil
}
