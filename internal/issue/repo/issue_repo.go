package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/trident/service-board-go/internal/issue/entity"
	projectentity "github.com/ovaphlow/trident/service-board-go/internal/project/entity"
	userentity "github.com/ovaphlow/trident/service-board-go/internal/user/entity"
)

// IssueRepo provides data access for the issues table using sqlx. The column
// is named lane_order because ORDER is reserved in SQL.
type IssueRepo struct {
	db *sqlx.DB
}

func NewIssueRepo(db *sqlx.DB) *IssueRepo { return &IssueRepo{db: db} }

// EnsureTable creates the issues table if not exists (idempotent). Project
// deletion cascades here; sprint deletion detaches the issue instead.
func (r *IssueRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS issues (
  id VARCHAR(32) PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT,
  status TEXT NOT NULL DEFAULT 'TODO',
  priority TEXT NOT NULL DEFAULT 'MEDIUM',
  lane_order INT NOT NULL DEFAULT 0,
  project_id VARCHAR(32) NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  sprint_id VARCHAR(32) REFERENCES sprints(id) ON DELETE SET NULL,
  reporter_id VARCHAR(32) NOT NULL REFERENCES users(id),
  assignee_id VARCHAR(32) REFERENCES users(id),
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_issues_project_status ON issues(project_id, status, lane_order);
CREATE INDEX IF NOT EXISTS idx_issues_sprint_id ON issues(sprint_id);
CREATE INDEX IF NOT EXISTS idx_issues_reporter_id ON issues(reporter_id);
CREATE INDEX IF NOT EXISTS idx_issues_assignee_id ON issues(assignee_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const issueColumns = `id, title, description, status, priority, lane_order, project_id, sprint_id, reporter_id, assignee_id, created_at, updated_at`

// CreateAtLaneEnd inserts the issue at the end of its (project, status) lane.
// The next order value (max existing + 1, or 0 for an empty lane) is computed
// and consumed inside the same transaction so concurrent creates cannot mint
// duplicate positions.
func (r *IssueRepo) CreateAtLaneEnd(ctx context.Context, is *entity.Issue) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const nextQ = `SELECT COALESCE(MAX(lane_order) + 1, 0) FROM issues WHERE project_id=$1 AND status=$2`
	if err := tx.GetContext(ctx, &is.Order, nextQ, is.ProjectID, is.Status); err != nil {
		return err
	}

	const insQ = `INSERT INTO issues (id, title, description, status, priority, lane_order, project_id, sprint_id, reporter_id, assignee_id)
		VALUES (:id, :title, :description, :status, :priority, :lane_order, :project_id, :sprint_id, :reporter_id, :assignee_id)
		RETURNING created_at, updated_at`
	rows, err := tx.NamedQuery(insQ, is)
	if err != nil {
		return err
	}
	if rows.Next() {
		if err := rows.Scan(&is.CreatedAt, &is.UpdatedAt); err != nil {
			rows.Close()
			return err
		}
	}
	rows.Close()

	return tx.Commit()
}

// GetByID fetches an issue or sql.ErrNoRows.
func (r *IssueRepo) GetByID(ctx context.Context, id string) (*entity.Issue, error) {
	const q = `SELECT ` + issueColumns + ` FROM issues WHERE id=$1`
	var row entity.Issue
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// IssueWithAccess is an issue joined with the facts the mutation guard needs:
// who reported it (provider-side id) and which organization owns the project.
type IssueWithAccess struct {
	entity.Issue
	ReporterExternalID string `db:"reporter_external_id"`
	OrganizationID     string `db:"organization_id"`
}

// GetWithAccess fetches an issue plus reporter and tenant facts in one round
// trip. Guard decisions read this fresh on every call.
func (r *IssueRepo) GetWithAccess(ctx context.Context, id string) (*IssueWithAccess, error) {
	const q = `SELECT i.id, i.title, i.description, i.status, i.priority, i.lane_order,
			i.project_id, i.sprint_id, i.reporter_id, i.assignee_id, i.created_at, i.updated_at,
			u.external_id AS reporter_external_id, p.organization_id
		FROM issues i
		JOIN users u ON u.id = i.reporter_id
		JOIN projects p ON p.id = i.project_id
		WHERE i.id=$1`
	var row IssueWithAccess
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListBySprint returns a sprint's issues lane by lane (status asc, order asc)
// with reporter and assignee hydrated.
func (r *IssueRepo) ListBySprint(ctx context.Context, sprintID string) ([]*entity.HydratedIssue, error) {
	const q = `SELECT ` + issueColumns + ` FROM issues WHERE sprint_id=$1 ORDER BY status ASC, lane_order ASC`
	rows := []*entity.Issue{}
	if err := r.db.SelectContext(ctx, &rows, q, sprintID); err != nil {
		return nil, err
	}
	return r.hydrate(ctx, rows, nil)
}

// ListForUser returns the issues a user reported or is assigned to, most
// recently updated first. A non-empty organizationID narrows the result to
// that tenant's projects.
func (r *IssueRepo) ListForUser(ctx context.Context, userID, organizationID string) ([]*entity.HydratedIssue, error) {
	q := `SELECT i.id, i.title, i.description, i.status, i.priority, i.lane_order,
			i.project_id, i.sprint_id, i.reporter_id, i.assignee_id, i.created_at, i.updated_at
		FROM issues i`
	args := []any{userID}
	if organizationID != "" {
		q += ` JOIN projects p ON p.id = i.project_id`
	}
	q += ` WHERE (i.assignee_id=$1 OR i.reporter_id=$1)`
	if organizationID != "" {
		q += ` AND p.organization_id=$2`
		args = append(args, organizationID)
	}
	q += ` ORDER BY i.updated_at DESC`

	rows := []*entity.Issue{}
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}

	projects, err := r.projectsFor(ctx, rows)
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, rows, projects)
}

// UpdateInput is the set of mutable issue fields. Order and reporter are
// deliberately absent: order belongs to the reorder path, the reporter never
// changes.
type UpdateInput struct {
	Title       string          `db:"title"`
	Description *string         `db:"description"`
	Status      entity.Status   `db:"status"`
	Priority    entity.Priority `db:"priority"`
	SprintID    *string         `db:"sprint_id"`
	AssigneeID  *string         `db:"assignee_id"`
}

// Update overwrites the mutable fields of an issue.
func (r *IssueRepo) Update(ctx context.Context, id string, in UpdateInput) (*entity.Issue, error) {
	const q = `UPDATE issues SET title=$2, description=$3, status=$4, priority=$5,
			sprint_id=$6, assignee_id=$7, updated_at=NOW()
		WHERE id=$1
		RETURNING ` + issueColumns
	var row entity.Issue
	if err := r.db.GetContext(ctx, &row, q, id, in.Title, in.Description, in.Status, in.Priority, in.SprintID, in.AssigneeID); err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes an issue; returns rows affected.
func (r *IssueRepo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM issues WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReorderItem is one issue's target lane and position in a reorder batch.
type ReorderItem struct {
	ID     string        `json:"id"`
	Status entity.Status `json:"status"`
	Order  int           `json:"order"`
}

// ReorderBatch applies a full board reorder as one transaction: every listed
// issue moves to its target (status, order), or none do. The batch is trusted
// to be internally consistent; this method only guarantees atomicity.
func (r *IssueRepo) ReorderBatch(ctx context.Context, batch []ReorderItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `UPDATE issues SET status=$2, lane_order=$3, updated_at=NOW() WHERE id=$1`
	for _, item := range batch {
		res, err := tx.ExecContext(ctx, q, item.ID, item.Status, item.Order)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("issue %s vanished during reorder", item.ID)
		}
	}
	return tx.Commit()
}

// hydrate attaches reporter/assignee (and optionally project) records.
func (r *IssueRepo) hydrate(ctx context.Context, issues []*entity.Issue, projects map[string]*projectentity.Project) ([]*entity.HydratedIssue, error) {
	ids := make([]string, 0, len(issues)*2)
	seen := map[string]bool{}
	for _, is := range issues {
		if !seen[is.ReporterID] {
			seen[is.ReporterID] = true
			ids = append(ids, is.ReporterID)
		}
		if is.AssigneeID != nil && !seen[*is.AssigneeID] {
			seen[*is.AssigneeID] = true
			ids = append(ids, *is.AssigneeID)
		}
	}

	users := map[string]*userentity.User{}
	if len(ids) > 0 {
		q, args, err := sqlx.In(`SELECT id, external_id, name, email, image_url, created_at, updated_at FROM users WHERE id IN (?)`, ids)
		if err != nil {
			return nil, err
		}
		q = r.db.Rebind(q)
		rows := []*userentity.User{}
		if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
			return nil, err
		}
		for _, u := range rows {
			users[u.ID] = u
		}
	}

	out := make([]*entity.HydratedIssue, 0, len(issues))
	for _, is := range issues {
		h := &entity.HydratedIssue{Issue: *is, Reporter: users[is.ReporterID]}
		if is.AssigneeID != nil {
			h.Assignee = users[*is.AssigneeID]
		}
		if projects != nil {
			h.Project = projects[is.ProjectID]
		}
		out = append(out, h)
	}
	return out, nil
}

// projectsFor loads the distinct projects of a result set.
func (r *IssueRepo) projectsFor(ctx context.Context, issues []*entity.Issue) (map[string]*projectentity.Project, error) {
	ids := make([]string, 0, len(issues))
	seen := map[string]bool{}
	for _, is := range issues {
		if !seen[is.ProjectID] {
			seen[is.ProjectID] = true
			ids = append(ids, is.ProjectID)
		}
	}
	if len(ids) == 0 {
		return map[string]*projectentity.Project{}, nil
	}
	q, args, err := sqlx.In(`SELECT id, name, key, description, organization_id, created_at, updated_at FROM projects WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	q = r.db.Rebind(q)
	rows := []*projectentity.Project{}
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := map[string]*projectentity.Project{}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}
