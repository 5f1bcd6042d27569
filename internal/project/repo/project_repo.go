package repo

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/trident/service-board-go/internal/project/entity"
)

// ProjectRepo provides data access for the projects table using sqlx.
type ProjectRepo struct {
	db *sqlx.DB
}

func NewProjectRepo(db *sqlx.DB) *ProjectRepo { return &ProjectRepo{db: db} }

// EnsureTable creates the projects table if not exists (idempotent).
// Deleting a project cascades to its sprints and issues; the ON DELETE CASCADE
// clauses on the child tables are the store-enforced contract the services
// rely on for referential cleanliness.
func (r *ProjectRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS projects (
  id VARCHAR(32) PRIMARY KEY,
  name TEXT NOT NULL,
  key TEXT NOT NULL,
  description TEXT,
  organization_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (organization_id, key)
);
CREATE INDEX IF NOT EXISTS idx_projects_organization_id ON projects(organization_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const projectColumns = `id, name, key, description, organization_id, created_at, updated_at`

// Create inserts a new project row.
func (r *ProjectRepo) Create(ctx context.Context, p *entity.Project) error {
	const q = `INSERT INTO projects (id, name, key, description, organization_id)
		VALUES (:id, :name, :key, :description, :organization_id)
		RETURNING created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, p)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&p.CreatedAt, &p.UpdatedAt)
	}
	return errors.New("no row returned")
}

// GetByID fetches a project or sql.ErrNoRows.
func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	const q = `SELECT ` + projectColumns + ` FROM projects WHERE id=$1`
	var row entity.Project
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes a project; sprints and issues go with it via FK cascade.
// Returns the number of rows removed so callers can distinguish not-found.
func (r *ProjectRepo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByOrganization returns an organization's projects newest-first.
func (r *ProjectRepo) ListByOrganization(ctx context.Context, organizationID string) ([]*entity.Project, error) {
	const q = `SELECT ` + projectColumns + ` FROM projects WHERE organization_id=$1 ORDER BY created_at DESC`
	rows := []*entity.Project{}
	if err := r.db.SelectContext(ctx, &rows, q, organizationID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByOrganizations returns projects across a set of organizations,
// newest-first. An empty id set yields an empty slice.
func (r *ProjectRepo) ListByOrganizations(ctx context.Context, organizationIDs []string) ([]*entity.Project, error) {
	if len(organizationIDs) == 0 {
		return []*entity.Project{}, nil
	}
	q, args, err := sqlx.In(`SELECT `+projectColumns+` FROM projects WHERE organization_id IN (?) ORDER BY created_at DESC`, organizationIDs)
	if err != nil {
		return nil, err
	}
	q = r.db.Rebind(q)
	rows := []*entity.Project{}
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
