package sprint

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/trident/service-board-go/internal/identity"
	projectentity "github.com/ovaphlow/trident/service-board-go/internal/project/entity"
	"github.com/ovaphlow/trident/service-board-go/internal/sprint/entity"
	sprintrepo "github.com/ovaphlow/trident/service-board-go/internal/sprint/repo"
	"github.com/ovaphlow/trident/service-board-go/internal/user"
	"github.com/ovaphlow/trident/service-board-go/pkg/utilities"
)

var (
	ErrSprintNotFound = errors.New("sprint not found")
	// ErrProjectNotFound also masks organization mismatches on create, so a
	// foreign tenant cannot probe which project ids exist.
	ErrProjectNotFound   = errors.New("project not found")
	ErrAdminRequired     = errors.New("only organization admins can manage sprints")
	ErrWrongOrganization = errors.New("sprint belongs to another organization")
)

// Store is the slice of SprintRepo the service needs.
type Store interface {
	Create(ctx context.Context, sp *entity.Sprint) error
	GetWithOrganization(ctx context.Context, id string) (*sprintrepo.SprintWithOrg, error)
	ListByProject(ctx context.Context, projectID string) ([]*entity.Sprint, error)
	UpdateStatus(ctx context.Context, id string, status entity.Status) (*entity.Sprint, error)
}

// ProjectStore resolves the owning project for tenancy checks.
type ProjectStore interface {
	GetByID(ctx context.Context, id string) (*projectentity.Project, error)
}

// Service governs sprint creation and lifecycle transitions.
type Service struct {
	store    Store
	projects ProjectStore
	logger   *zap.SugaredLogger
	// now is injectable so the date-range guard is testable.
	now func() time.Time
}

func NewService(db *sqlx.DB, s Store, projects ProjectStore, logger *zap.SugaredLogger) *Service {
	if s == nil {
		s = sprintrepo.NewSprintRepo(db)
	}
	return &Service{store: s, projects: projects, logger: logger, now: time.Now}
}

// WithNow overrides the clock. Test hook.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateInput is the caller-supplied part of a new sprint.
type CreateInput struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Create makes a new PLANNED sprint in a project. When the principal carries
// an active organization it must own the project, and the principal must hold
// the admin role; without an active organization no role check applies.
func (s *Service) Create(ctx context.Context, p identity.Principal, projectID string, in CreateInput) (*entity.Sprint, error) {
	if !p.Authenticated() {
		return nil, user.ErrUnauthenticated
	}
	proj, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if p.OrgID != "" && proj.OrganizationID != p.OrgID {
		return nil, ErrProjectNotFound
	}
	if p.OrgID != "" && p.OrgRole != identity.RoleAdmin {
		return nil, ErrAdminRequired
	}

	sp := &entity.Sprint{
		ID:        utilities.NewKSUID(),
		Name:      in.Name,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Status:    entity.StatusPlanned,
		ProjectID: projectID,
	}
	if err := s.store.Create(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

// UpdateStatus moves a sprint through its lifecycle. Authorization runs
// before the state-machine guard, so an authorization failure is always
// reported over a transition failure.
func (s *Service) UpdateStatus(ctx context.Context, p identity.Principal, sprintID string, target entity.Status) (*entity.Sprint, error) {
	if !p.Authenticated() {
		return nil, user.ErrUnauthenticated
	}
	sp, err := s.store.GetWithOrganization(ctx, sprintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	if p.OrgID != "" && sp.OrganizationID != p.OrgID {
		return nil, ErrWrongOrganization
	}
	if p.OrgID != "" && p.OrgRole != identity.RoleAdmin {
		return nil, ErrAdminRequired
	}

	if err := Transition(sp.Status, target, sp.StartDate, sp.EndDate, s.now()); err != nil {
		return nil, err
	}
	return s.store.UpdateStatus(ctx, sprintID, target)
}
