package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/trident/service-board-go/internal/identity"
	"github.com/ovaphlow/trident/service-board-go/internal/user/entity"
	userrepo "github.com/ovaphlow/trident/service-board-go/internal/user/repo"
)

var (
	ErrUnauthenticated = errors.New("unauthorized")
	ErrUserNotFound    = errors.New("user not found")
)

// Store is the slice of UserRepo this service needs; fakes implement it in tests.
type Store interface {
	GetByExternalID(ctx context.Context, externalID string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListByExternalIDs(ctx context.Context, externalIDs []string) ([]*entity.User, error)
}

// Service maps authenticated principals onto local user rows. Pure lookup,
// no side effects: accounts are provisioned by the onboarding flow, not here.
type Service struct {
	store Store
}

func NewService(db *sqlx.DB, s Store) *Service {
	if s == nil {
		s = userrepo.NewUserRepo(db)
	}
	return &Service{store: s}
}

// Resolve returns the local user for the principal. Fails ErrUnauthenticated
// when the request carried no session, ErrUserNotFound when the session is
// valid but no local row exists yet.
func (s *Service) Resolve(ctx context.Context, p identity.Principal) (*entity.User, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthenticated
	}
	u, err := s.store.GetByExternalID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// GetByExternalID fetches a user row by provider-side id.
func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*entity.User, error) {
	u, err := s.store.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Get fetches a user row by local id.
func (s *Service) Get(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// ListUsersByExternalIDs returns the local rows for a set of provider ids.
func (s *Service) ListUsersByExternalIDs(ctx context.Context, externalIDs []string) ([]*entity.User, error) {
	return s.store.ListByExternalIDs(ctx, externalIDs)
}
