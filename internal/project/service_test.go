package project_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ovaphlow/trident/service-board-go/internal/identity"
	"github.com/ovaphlow/trident/service-board-go/internal/organization"
	"github.com/ovaphlow/trident/service-board-go/internal/project"
	"github.com/ovaphlow/trident/service-board-go/internal/project/entity"
	sprintentity "github.com/ovaphlow/trident/service-board-go/internal/sprint/entity"
	"github.com/ovaphlow/trident/service-board-go/internal/user"
	userentity "github.com/ovaphlow/trident/service-board-go/internal/user/entity"
)

type fakeUserStore struct {
	users []*userentity.User
}

func (f *fakeUserStore) GetByExternalID(_ context.Context, externalID string) (*userentity.User, error) {
	for _, u := range f.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*userentity.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserStore) ListByExternalIDs(_ context.Context, externalIDs []string) ([]*userentity.User, error) {
	return f.users, nil
}

type fakeProvider struct {
	memberships    map[string][]identity.Membership
	members        map[string][]identity.Member
	membershipsErr error
	membersErr     error
}

func (f *fakeProvider) ListMemberships(_ context.Context, userID string) ([]identity.Membership, error) {
	if f.membershipsErr != nil {
		return nil, f.membershipsErr
	}
	return f.memberships[userID], nil
}

func (f *fakeProvider) ListMembers(_ context.Context, organizationID string) ([]identity.Member, error) {
	if f.membersErr != nil {
		return nil, f.membersErr
	}
	return f.members[organizationID], nil
}

func (f *fakeProvider) GetOrganizationBySlug(_ context.Context, slug string) (*identity.Organization, error) {
	return nil, identity.ErrProviderUnavailable
}

type fakeProjectStore struct {
	projects map[string]*entity.Project
	created  []*entity.Project
}

func (f *fakeProjectStore) Create(_ context.Context, p *entity.Project) error {
	f.created = append(f.created, p)
	if f.projects == nil {
		f.projects = map[string]*entity.Project{}
	}
	f.projects[p.ID] = p
	return nil
}

func (f *fakeProjectStore) GetByID(_ context.Context, id string) (*entity.Project, error) {
	if p, ok := f.projects[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProjectStore) Delete(_ context.Context, id string) (int64, error) {
	if _, ok := f.projects[id]; !ok {
		return 0, nil
	}
	delete(f.projects, id)
	return 1, nil
}

func (f *fakeProjectStore) ListByOrganization(_ context.Context, organizationID string) ([]*entity.Project, error) {
	out := []*entity.Project{}
	for _, p := range f.projects {
		if p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjectStore) ListByOrganizations(_ context.Context, organizationIDs []string) ([]*entity.Project, error) {
	out := []*entity.Project{}
	for _, id := range organizationIDs {
		byOrg, _ := f.ListByOrganization(context.Background(), id)
		out = append(out, byOrg...)
	}
	return out, nil
}

type fakeSprintLister struct{}

func (fakeSprintLister) ListByProject(_ context.Context, projectID string) ([]*sprintentity.Sprint, error) {
	return []*sprintentity.Sprint{}, nil
}

var self = &userentity.User{ID: "u1", ExternalID: "ext-1"}

func newProjectService(store *fakeProjectStore, provider *fakeProvider, cfg project.Config) *project.Service {
	users := user.NewService(nil, &fakeUserStore{users: []*userentity.User{self}})
	orgs := organization.NewService(users, provider, zap.NewNop().Sugar())
	return project.NewService(nil, store, fakeSprintLister{}, users, orgs, cfg, zap.NewNop().Sugar())
}

func adminProvider(orgID string) *fakeProvider {
	return &fakeProvider{
		memberships: map[string][]identity.Membership{
			"ext-1": {{OrganizationID: orgID, Role: identity.RoleAdmin}},
		},
		members: map[string][]identity.Member{
			orgID: {{UserID: "ext-1", Role: identity.RoleAdmin}},
		},
	}
}

func TestCreate_UsesActiveOrganization(t *testing.T) {
	store := &fakeProjectStore{}
	svc := newProjectService(store, adminProvider("org-1"), project.Config{})

	p := identity.Principal{UserID: "ext-1", OrgID: "org-1", OrgRole: identity.RoleAdmin}
	proj, err := svc.Create(context.Background(), p, project.CreateInput{Name: "Board", Key: "BRD"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if proj.OrganizationID != "org-1" {
		t.Errorf("want org-1, got %s", proj.OrganizationID)
	}
}

func TestCreate_FallsBackToFirstMembership(t *testing.T) {
	store := &fakeProjectStore{}
	svc := newProjectService(store, adminProvider("org-fallback"), project.Config{})

	p := identity.Principal{UserID: "ext-1"}
	proj, err := svc.Create(context.Background(), p, project.CreateInput{Name: "Board", Key: "BRD"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if proj.OrganizationID != "org-fallback" {
		t.Errorf("want org-fallback, got %s", proj.OrganizationID)
	}
}

func TestCreate_NoMemberships(t *testing.T) {
	svc := newProjectService(&fakeProjectStore{}, &fakeProvider{}, project.Config{})
	_, err := svc.Create(context.Background(), identity.Principal{UserID: "ext-1"}, project.CreateInput{Name: "Board"})
	if !errors.Is(err, organization.ErrNoOrganization) {
		t.Fatalf("want ErrNoOrganization, got %v", err)
	}
}

func TestCreate_MembershipLookupFailure(t *testing.T) {
	provider := &fakeProvider{membershipsErr: identity.ErrProviderUnavailable}
	svc := newProjectService(&fakeProjectStore{}, provider, project.Config{})
	_, err := svc.Create(context.Background(), identity.Principal{UserID: "ext-1"}, project.CreateInput{Name: "Board"})
	if !errors.Is(err, organization.ErrNoOrganization) {
		t.Fatalf("want ErrNoOrganization, got %v", err)
	}
}

func TestCreate_NonAdminDenied(t *testing.T) {
	provider := adminProvider("org-1")
	provider.members["org-1"] = []identity.Member{{UserID: "ext-1", Role: identity.RoleMember}}
	svc := newProjectService(&fakeProjectStore{}, provider, project.Config{})

	p := identity.Principal{UserID: "ext-1", OrgID: "org-1", OrgRole: identity.RoleMember}
	_, err := svc.Create(context.Background(), p, project.CreateInput{Name: "Board"})
	if !errors.Is(err, project.ErrAdminRequired) {
		t.Fatalf("want ErrAdminRequired, got %v", err)
	}
}

func TestCreate_AdminCheckFailureLenient(t *testing.T) {
	provider := adminProvider("org-1")
	provider.membersErr = identity.ErrProviderUnavailable
	store := &fakeProjectStore{}
	svc := newProjectService(store, provider, project.Config{})

	p := identity.Principal{UserID: "ext-1", OrgID: "org-1", OrgRole: identity.RoleAdmin}
	if _, err := svc.Create(context.Background(), p, project.CreateInput{Name: "Board"}); err != nil {
		t.Fatalf("lenient mode should continue, got %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("want 1 project, got %d", len(store.created))
	}
}

func TestCreate_AdminCheckFailureStrict(t *testing.T) {
	provider := adminProvider("org-1")
	provider.membersErr = identity.ErrProviderUnavailable
	svc := newProjectService(&fakeProjectStore{}, provider, project.Config{StrictAdminCheck: true})

	p := identity.Principal{UserID: "ext-1", OrgID: "org-1", OrgRole: identity.RoleAdmin}
	_, err := svc.Create(context.Background(), p, project.CreateInput{Name: "Board"})
	if !errors.Is(err, identity.ErrProviderUnavailable) {
		t.Fatalf("strict mode should fail closed, got %v", err)
	}
}

func TestList_DegradesWhenMembershipLookupFails(t *testing.T) {
	provider := &fakeProvider{membershipsErr: identity.ErrProviderUnavailable}
	svc := newProjectService(&fakeProjectStore{}, provider, project.Config{})

	projects, err := svc.List(context.Background(), identity.Principal{UserID: "ext-1"}, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("want empty result, got %d", len(projects))
	}
}

func TestList_SpansAllMemberships(t *testing.T) {
	store := &fakeProjectStore{projects: map[string]*entity.Project{
		"p1": {ID: "p1", OrganizationID: "org-a"},
		"p2": {ID: "p2", OrganizationID: "org-b"},
		"p3": {ID: "p3", OrganizationID: "org-c"},
	}}
	provider := &fakeProvider{memberships: map[string][]identity.Membership{
		"ext-1": {
			{OrganizationID: "org-a", Role: identity.RoleMember},
			{OrganizationID: "org-b", Role: identity.RoleMember},
		},
	}}
	svc := newProjectService(store, provider, project.Config{})

	projects, err := svc.List(context.Background(), identity.Principal{UserID: "ext-1"}, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(projects) != 2 {
		t.Errorf("want projects from 2 orgs, got %d", len(projects))
	}
}

func TestDelete_Unknown(t *testing.T) {
	svc := newProjectService(&fakeProjectStore{}, &fakeProvider{}, project.Config{})
	err := svc.Delete(context.Background(), identity.Principal{UserID: "ext-1"}, "missing")
	if !errors.Is(err, project.ErrProjectNotFound) {
		t.Fatalf("want ErrProjectNotFound, got %v", err)
	}
}

func TestGet_Unauthenticated(t *testing.T) {
	svc := newProjectService(&fakeProjectStore{}, &fakeProvider{}, project.Config{})
	_, err := svc.Get(context.Background(), identity.Principal{}, "p1")
	if !errors.Is(err, user.ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
}
