package sprint_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/trident/service-board-go/internal/identity"
	projectentity "github.com/ovaphlow/trident/service-board-go/internal/project/entity"
	"github.com/ovaphlow/trident/service-board-go/internal/sprint"
	"github.com/ovaphlow/trident/service-board-go/internal/sprint/entity"
	sprintrepo "github.com/ovaphlow/trident/service-board-go/internal/sprint/repo"
	"github.com/ovaphlow/trident/service-board-go/internal/user"
)

type fakeSprintStore struct {
	sprints map[string]*sprintrepo.SprintWithOrg
	created []*entity.Sprint
}

func (f *fakeSprintStore) Create(_ context.Context, sp *entity.Sprint) error {
	f.created = append(f.created, sp)
	return nil
}

func (f *fakeSprintStore) GetWithOrganization(_ context.Context, id string) (*sprintrepo.SprintWithOrg, error) {
	if sp, ok := f.sprints[id]; ok {
		return sp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSprintStore) ListByProject(_ context.Context, projectID string) ([]*entity.Sprint, error) {
	return []*entity.Sprint{}, nil
}

func (f *fakeSprintStore) UpdateStatus(_ context.Context, id string, status entity.Status) (*entity.Sprint, error) {
	sp := f.sprints[id]
	sp.Status = status
	return &sp.Sprint, nil
}

type fakeProjectStore struct {
	projects map[string]*projectentity.Project
}

func (f *fakeProjectStore) GetByID(_ context.Context, id string) (*projectentity.Project, error) {
	if p, ok := f.projects[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }

func newSprintService(store *fakeSprintStore, projects *fakeProjectStore) *sprint.Service {
	return sprint.NewService(nil, store, projects, zap.NewNop().Sugar())
}

func plannedSprint(org string) *sprintrepo.SprintWithOrg {
	return &sprintrepo.SprintWithOrg{
		Sprint: entity.Sprint{
			ID:        "s1",
			Name:      "Sprint 1",
			StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC),
			Status:    entity.StatusPlanned,
			ProjectID: "p1",
		},
		OrganizationID: org,
	}
}

func TestUpdateStatus_ActivateWithinRange(t *testing.T) {
	store := &fakeSprintStore{sprints: map[string]*sprintrepo.SprintWithOrg{"s1": plannedSprint("org-1")}}
	svc := newSprintService(store, nil).WithNow(fixedNow(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))

	p := identity.Principal{UserID: "ext-1", OrgID: "org-1", OrgRole: identity.RoleAdmin}
	sp, err := svc.UpdateStatus(context.Background(), p, "s1", entity.StatusActive)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if sp.Status != entity.StatusActive {
		t.Errorf("want ACTIVE, got %s", sp.Status)
	}
}

func TestUpdateStatus_ActivateAfterEndDate(t *testing.T) {
	store := &fakeSprintStore{sprints: map[string]*sprintrepo.SprintWithOrg{"s1": plannedSprint("org-1")}}
	svc := newSprintService(store, nil).WithNow(fixedNow(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	p := identity.Principal{UserID: "ext-1", OrgID: "org-1", OrgRole: identity.RoleAdmin}
	_, err := svc.UpdateStatus(context.Background(), p, "s1", entity.StatusActive)
	if !errors.Is(err, sprint.ErrOutOfDateRange) {
		t.Fatalf("want ErrOutOfDateRange, got %v", err)
	}
}

func TestUpdateStatus_AuthorizationBeforeGuard(t *testing.T) {
	// the sprint is out of range AND the caller is from another org; the
	// authorization failure must win
	store := &fakeSprintStore{sprints: map[string]*sprintrepo.SprintWithOrg{"s1": plannedSprint("org-1")}}
	svc := newSprintService(store, nil).WithNow(fixedNow(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	p := identity.Principal{UserID: "ext-1", OrgID: "org-2", OrgRole: identity.RoleAdmin}
	_, err := svc.UpdateStatus(context.Background(), p, "s1", entity.StatusActive)
	if !errors.Is(err, sprint.ErrWrongOrganization) {
		t.Fatalf("want ErrWrongOrganization, got %v", err)
	}
}

func TestUpdateStatus_AdminRequired(t *testing.T) {
	store := &fakeSprintStore{sprints: map[string]*sprintrepo.SprintWithOrg{"s1": plannedSprint("org-1")}}
	svc := newSprintService(store, nil).WithNow(fixedNow(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))

	p := identity.Principal{UserID: "ext-1", OrgID: "org-1", OrgRole: identity.RoleMember}
	_, err := svc.UpdateStatus(context.Background(), p, "s1", entity.StatusActive)
	if !errors.Is(err, sprint.ErrAdminRequired) {
		t.Fatalf("want ErrAdminRequired, got %v", err)
	}
}

func TestUpdateStatus_Unauthenticated(t *testing.T) {
	svc := newSprintService(&fakeSprintStore{}, nil)
	_, err := svc.UpdateStatus(context.Background(), identity.Principal{}, "s1", entity.StatusActive)
	if !errors.Is(err, user.ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc := newSprintService(&fakeSprintStore{sprints: map[string]*sprintrepo.SprintWithOrg{}}, nil)
	p := identity.Principal{UserID: "ext-1"}
	_, err := svc.UpdateStatus(context.Background(), p, "nope", entity.StatusActive)
	if !errors.Is(err, sprint.ErrSprintNotFound) {
		t.Fatalf("want ErrSprintNotFound, got %v", err)
	}
}

func TestCreate_StartsPlanned(t *testing.T) {
	store := &fakeSprintStore{}
	projects := &fakeProjectStore{projects: map[string]*projectentity.Project{
		"p1": {ID: "p1", OrganizationID: "org-1"},
	}}
	svc := newSprintService(store, projects)

	p := identity.Principal{UserID: "ext-1", OrgID: "org-1", OrgRole: identity.RoleAdmin}
	sp, err := svc.Create(context.Background(), p, "p1", sprint.CreateInput{Name: "Sprint 1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sp.Status != entity.StatusPlanned {
		t.Errorf("want PLANNED, got %s", sp.Status)
	}
}

func TestCreate_MasksForeignProject(t *testing.T) {
	projects := &fakeProjectStore{projects: map[string]*projectentity.Project{
		"p1": {ID: "p1", OrganizationID: "org-1"},
	}}
	svc := newSprintService(&fakeSprintStore{}, projects)

	p := identity.Principal{UserID: "ext-1", OrgID: "org-2", OrgRole: identity.RoleAdmin}
	_, err := svc.Create(context.Background(), p, "p1", sprint.CreateInput{Name: "Sprint 1"})
	if !errors.Is(err, sprint.ErrProjectNotFound) {
		t.Fatalf("want ErrProjectNotFound, got %v", err)
	}
}

func TestCreate_MemberDenied(t *testing.T) {
	projects := &fakeProjectStore{projects: map[string]*projectentity.Project{
		"p1": {ID: "p1", OrganizationID: "org-1"},
	}}
	svc := newSprintService(&fakeSprintStore{}, projects)

	p := identity.Principal{UserID: "ext-1", OrgID: "org-1", OrgRole: identity.RoleMember}
	_, err := svc.Create(context.Background(), p, "p1", sprint.CreateInput{Name: "Sprint 1"})
	if !errors.Is(err, sprint.ErrAdminRequired) {
		t.Fatalf("want ErrAdminRequired, got %v", err)
	}
}

func TestCreate_NoActiveOrgSkipsRoleCheck(t *testing.T) {
	store := &fakeSprintStore{}
	projects := &fakeProjectStore{projects: map[string]*projectentity.Project{
		"p1": {ID: "p1", OrganizationID: "org-1"},
	}}
	svc := newSprintService(store, projects)

	p := identity.Principal{UserID: "ext-1"}
	if _, err := svc.Create(context.Background(), p, "p1", sprint.CreateInput{Name: "Sprint 1"}); err != nil {
		t.Fatalf("create without active org: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("want 1 created sprint, got %d", len(store.created))
	}
}
