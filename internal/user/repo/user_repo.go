package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/trident/service-board-go/internal/user/entity"
)

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// Convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id VARCHAR(32) PRIMARY KEY,
  external_id TEXT UNIQUE NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  image_url TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_external_id ON users(external_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const userColumns = `id, external_id, name, email, image_url, created_at, updated_at`

// GetByExternalID returns the user matching a provider-side id or sql.ErrNoRows.
func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE external_id=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, externalID); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByID fetches a user row by local id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByExternalIDs returns the local rows for a set of provider ids. Missing
// ids are simply absent from the result.
func (r *UserRepo) ListByExternalIDs(ctx context.Context, externalIDs []string) ([]*entity.User, error) {
	if len(externalIDs) == 0 {
		return []*entity.User{}, nil
	}
	q, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE external_id IN (?)`, externalIDs)
	if err != nil {
		return nil, err
	}
	q = r.db.Rebind(q)
	rows := []*entity.User{}
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
