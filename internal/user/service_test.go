package user_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/ovaphlow/trident/service-board-go/internal/identity"
	"github.com/ovaphlow/trident/service-board-go/internal/user"
	"github.com/ovaphlow/trident/service-board-go/internal/user/entity"
)

type fakeStore struct {
	byExternal map[string]*entity.User
	byID       map[string]*entity.User
}

func (f *fakeStore) GetByExternalID(_ context.Context, externalID string) (*entity.User, error) {
	if u, ok := f.byExternal[externalID]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*entity.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) ListByExternalIDs(_ context.Context, externalIDs []string) ([]*entity.User, error) {
	out := []*entity.User{}
	for _, id := range externalIDs {
		if u, ok := f.byExternal[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func newFakeStore(users ...*entity.User) *fakeStore {
	f := &fakeStore{byExternal: map[string]*entity.User{}, byID: map[string]*entity.User{}}
	for _, u := range users {
		f.byExternal[u.ExternalID] = u
		f.byID[u.ID] = u
	}
	return f
}

func TestResolve_NoSession(t *testing.T) {
	svc := user.NewService(nil, newFakeStore())
	_, err := svc.Resolve(context.Background(), identity.Principal{})
	if !errors.Is(err, user.ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
}

func TestResolve_UnknownPrincipal(t *testing.T) {
	svc := user.NewService(nil, newFakeStore())
	_, err := svc.Resolve(context.Background(), identity.Principal{UserID: "ext-1"})
	if !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestResolve_Found(t *testing.T) {
	svc := user.NewService(nil, newFakeStore(&entity.User{ID: "u1", ExternalID: "ext-1", Name: "Ada"}))
	u, err := svc.Resolve(context.Background(), identity.Principal{UserID: "ext-1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if u.ID != "u1" {
		t.Errorf("want u1, got %s", u.ID)
	}
}
