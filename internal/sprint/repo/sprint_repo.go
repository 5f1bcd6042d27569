package repo

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/trident/service-board-go/internal/sprint/entity"
)

// SprintRepo provides data access for the sprints table using sqlx.
type SprintRepo struct {
	db *sqlx.DB
}

func NewSprintRepo(db *sqlx.DB) *SprintRepo { return &SprintRepo{db: db} }

// EnsureTable creates the sprints table if not exists (idempotent).
func (r *SprintRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sprints (
  id VARCHAR(32) PRIMARY KEY,
  name TEXT NOT NULL,
  start_date TIMESTAMPTZ NOT NULL,
  end_date TIMESTAMPTZ NOT NULL,
  status TEXT NOT NULL DEFAULT 'PLANNED',
  project_id VARCHAR(32) NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (project_id, name)
);
CREATE INDEX IF NOT EXISTS idx_sprints_project_id ON sprints(project_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const sprintColumns = `id, name, start_date, end_date, status, project_id, created_at, updated_at`

// Create inserts a new sprint row.
func (r *SprintRepo) Create(ctx context.Context, sp *entity.Sprint) error {
	const q = `INSERT INTO sprints (id, name, start_date, end_date, status, project_id)
		VALUES (:id, :name, :start_date, :end_date, :status, :project_id)
		RETURNING created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, sp)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&sp.CreatedAt, &sp.UpdatedAt)
	}
	return errors.New("no row returned")
}

// GetByID fetches a sprint or sql.ErrNoRows.
func (r *SprintRepo) GetByID(ctx context.Context, id string) (*entity.Sprint, error) {
	const q = `SELECT ` + sprintColumns + ` FROM sprints WHERE id=$1`
	var row entity.Sprint
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// SprintWithOrg is a sprint joined with its project's organization, enough
// for the tenancy checks on status changes.
type SprintWithOrg struct {
	entity.Sprint
	OrganizationID string `db:"organization_id"`
}

// GetWithOrganization fetches a sprint plus the owning project's organization
// id in one round trip.
func (r *SprintRepo) GetWithOrganization(ctx context.Context, id string) (*SprintWithOrg, error) {
	const q = `SELECT s.id, s.name, s.start_date, s.end_date, s.status, s.project_id,
			s.created_at, s.updated_at, p.organization_id
		FROM sprints s
		JOIN projects p ON p.id = s.project_id
		WHERE s.id=$1`
	var row SprintWithOrg
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByProject returns a project's sprints newest-first.
func (r *SprintRepo) ListByProject(ctx context.Context, projectID string) ([]*entity.Sprint, error) {
	const q = `SELECT ` + sprintColumns + ` FROM sprints WHERE project_id=$1 ORDER BY created_at DESC`
	rows := []*entity.Sprint{}
	if err := r.db.SelectContext(ctx, &rows, q, projectID); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus persists a status change.
func (r *SprintRepo) UpdateStatus(ctx context.Context, id string, status entity.Status) (*entity.Sprint, error) {
	const q = `UPDATE sprints SET status=$2, updated_at=NOW() WHERE id=$1
		RETURNING ` + sprintColumns
	var row entity.Sprint
	if err := r.db.GetContext(ctx, &row, q, id, status); err != nil {
		return nil, err
	}
	return &row, nil
}
