package issue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/trident/service-board-go/internal/identity"
	"github.com/ovaphlow/trident/service-board-go/internal/issue/entity"
	issuerepo "github.com/ovaphlow/trident/service-board-go/internal/issue/repo"
	"github.com/ovaphlow/trident/service-board-go/internal/user"
	"github.com/ovaphlow/trident/service-board-go/pkg/utilities"
)

var (
	ErrIssueNotFound          = errors.New("issue not found")
	ErrNotReporterOrAdmin     = errors.New("only the issue reporter or an organization admin can modify this issue")
	ErrConcurrentModification = errors.New("board reorder could not be applied atomically")
)

// Store is the slice of IssueRepo the service needs.
type Store interface {
	CreateAtLaneEnd(ctx context.Context, is *entity.Issue) error
	GetWithAccess(ctx context.Context, id string) (*issuerepo.IssueWithAccess, error)
	ListBySprint(ctx context.Context, sprintID string) ([]*entity.HydratedIssue, error)
	ListForUser(ctx context.Context, userID, organizationID string) ([]*entity.HydratedIssue, error)
	Update(ctx context.Context, id string, in issuerepo.UpdateInput) (*entity.Issue, error)
	Delete(ctx context.Context, id string) (int64, error)
	ReorderBatch(ctx context.Context, batch []issuerepo.ReorderItem) error
}

// Service owns issue lifecycle and the per-lane ordering.
type Service struct {
	store  Store
	users  *user.Service
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, s Store, users *user.Service, logger *zap.SugaredLogger) *Service {
	if s == nil {
		s = issuerepo.NewIssueRepo(db)
	}
	return &Service{store: s, users: users, logger: logger}
}

// CreateInput is the caller-supplied part of a new issue. The reporter is
// always the creating user and the lane position is always the lane end;
// neither can be chosen.
type CreateInput struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Status      entity.Status   `json:"status"`
	Priority    entity.Priority `json:"priority"`
	SprintID    *string         `json:"sprint_id"`
	AssigneeID  *string         `json:"assignee_id"`
}

// Create appends a new issue to the (project, status) lane.
func (s *Service) Create(ctx context.Context, p identity.Principal, projectID string, in CreateInput) (*entity.HydratedIssue, error) {
	u, err := s.users.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	is := &entity.Issue{
		ID:          utilities.NewKSUID(),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		ProjectID:   projectID,
		SprintID:    in.SprintID,
		ReporterID:  u.ID,
		AssigneeID:  in.AssigneeID,
	}
	if err := s.store.CreateAtLaneEnd(ctx, is); err != nil {
		return nil, err
	}
	h := &entity.HydratedIssue{Issue: *is, Reporter: u}
	if in.AssigneeID != nil {
		if assignee, err := s.users.Get(ctx, *in.AssigneeID); err == nil {
			h.Assignee = assignee
		}
	}
	return h, nil
}

// canMutate is the update/delete guard: the reporter may always act, an
// admin may act when their active organization owns the issue's project.
// Decisions are recomputed from current data on every call, never cached.
func canMutate(p identity.Principal, access *issuerepo.IssueWithAccess) bool {
	if access.ReporterExternalID == p.UserID {
		return true
	}
	return p.OrgID != "" && p.OrgRole == identity.RoleAdmin && access.OrganizationID == p.OrgID
}

// UpdatePatch carries the fields an update may change. A nil field keeps the
// stored value, so partial payloads work. Nullable fields cannot be cleared
// through a patch, only replaced.
type UpdatePatch struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Status      *entity.Status   `json:"status"`
	Priority    *entity.Priority `json:"priority"`
	SprintID    *string          `json:"sprint_id"`
	AssigneeID  *string          `json:"assignee_id"`
}

// Update merges the patch onto the stored issue. Reporter and lane order are
// untouchable here.
func (s *Service) Update(ctx context.Context, p identity.Principal, issueID string, patch UpdatePatch) (*entity.Issue, error) {
	if _, err := s.users.Resolve(ctx, p); err != nil {
		return nil, err
	}
	access, err := s.store.GetWithAccess(ctx, issueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIssueNotFound
		}
		return nil, err
	}
	if !canMutate(p, access) {
		return nil, ErrNotReporterOrAdmin
	}
	in := issuerepo.UpdateInput{
		Title:       access.Title,
		Description: access.Description,
		Status:      access.Status,
		Priority:    access.Priority,
		SprintID:    access.SprintID,
		AssigneeID:  access.AssigneeID,
	}
	if patch.Title != nil {
		in.Title = *patch.Title
	}
	if patch.Description != nil {
		in.Description = patch.Description
	}
	if patch.Status != nil {
		in.Status = *patch.Status
	}
	if patch.Priority != nil {
		in.Priority = *patch.Priority
	}
	if patch.SprintID != nil {
		in.SprintID = patch.SprintID
	}
	if patch.AssigneeID != nil {
		in.AssigneeID = patch.AssigneeID
	}
	return s.store.Update(ctx, issueID, in)
}

// Delete removes an issue under the same guard as Update.
func (s *Service) Delete(ctx context.Context, p identity.Principal, issueID string) error {
	if _, err := s.users.Resolve(ctx, p); err != nil {
		return err
	}
	access, err := s.store.GetWithAccess(ctx, issueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrIssueNotFound
		}
		return err
	}
	if !canMutate(p, access) {
		return ErrNotReporterOrAdmin
	}
	rows, err := s.store.Delete(ctx, issueID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrIssueNotFound
	}
	return nil
}

// UpdateOrder applies a drag-and-drop reorder batch in one transaction. The
// caller supplies the complete new (status, order) assignment for every
// affected issue; this operation guarantees all-or-nothing application, not
// consistency of the submitted ordering.
func (s *Service) UpdateOrder(ctx context.Context, p identity.Principal, batch []issuerepo.ReorderItem) error {
	if !p.Authenticated() {
		return user.ErrUnauthenticated
	}
	if len(batch) == 0 {
		return nil
	}
	if err := s.store.ReorderBatch(ctx, batch); err != nil {
		return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	}
	return nil
}

// GetIssuesForSprint returns a sprint's board, lane by lane in ascending
// order, with reporter and assignee hydrated.
func (s *Service) GetIssuesForSprint(ctx context.Context, p identity.Principal, sprintID string) ([]*entity.HydratedIssue, error) {
	if !p.Authenticated() {
		return nil, user.ErrUnauthenticated
	}
	return s.store.ListBySprint(ctx, sprintID)
}

// GetUserIssues returns the issues a user reported or is assigned to, scoped
// to the principal's active organization when one is selected.
func (s *Service) GetUserIssues(ctx context.Context, p identity.Principal, externalUserID string) ([]*entity.HydratedIssue, error) {
	if externalUserID == "" {
		return nil, user.ErrUnauthenticated
	}
	u, err := s.users.GetByExternalID(ctx, externalUserID)
	if err != nil {
		return nil, err
	}
	return s.store.ListForUser(ctx, u.ID, p.OrgID)
}
