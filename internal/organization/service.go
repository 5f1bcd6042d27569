package organization

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/trident/service-board-go/internal/identity"
	"github.com/ovaphlow/trident/service-board-go/internal/user"
	userentity "github.com/ovaphlow/trident/service-board-go/internal/user/entity"
)

// ErrNoOrganization means tenant resolution ran out of options: no active
// organization on the session and no memberships at the provider.
var ErrNoOrganization = errors.New("no organization available - create or join an organization first")

// Service resolves the effective tenant for an operation and exposes the
// organization-scoped listings.
type Service struct {
	users    *user.Service
	provider identity.Provider
	logger   *zap.SugaredLogger
}

func NewService(users *user.Service, provider identity.Provider, logger *zap.SugaredLogger) *Service {
	return &Service{users: users, provider: provider, logger: logger}
}

// ResolveOrganization computes the effective organization for the principal.
// Order: active organization on the session, else the first membership the
// provider returns. Returns "" with no error when the caller has no
// organizations at all; operations that require a tenant turn that into
// ErrNoOrganization. Compute-only: nothing is activated remotely.
func (s *Service) ResolveOrganization(ctx context.Context, p identity.Principal) (string, error) {
	if p.OrgID != "" {
		return p.OrgID, nil
	}
	memberships, err := s.provider.ListMemberships(ctx, p.UserID)
	if err != nil {
		return "", err
	}
	if len(memberships) == 0 {
		return "", nil
	}
	return memberships[0].OrganizationID, nil
}

// MemberOrganizations returns every organization id the principal belongs to,
// in provider order.
func (s *Service) MemberOrganizations(ctx context.Context, p identity.Principal) ([]string, error) {
	memberships, err := s.provider.ListMemberships(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.OrganizationID)
	}
	return ids, nil
}

// IsAdmin reports whether the user holds the admin role in the organization,
// per the provider's current member list. Never cached.
func (s *Service) IsAdmin(ctx context.Context, organizationID, externalUserID string) (bool, error) {
	members, err := s.provider.ListMembers(ctx, organizationID)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m.UserID == externalUserID {
			return m.Role == identity.RoleAdmin, nil
		}
	}
	return false, nil
}

// GetOrganization resolves an organization by slug, but only for members.
// Non-members get nil, not an error, so existence is not leaked.
func (s *Service) GetOrganization(ctx context.Context, p identity.Principal, slug string) (*identity.Organization, error) {
	if _, err := s.users.Resolve(ctx, p); err != nil {
		return nil, err
	}
	org, err := s.provider.GetOrganizationBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	members, err := s.provider.ListMembers(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.UserID == p.UserID {
			return org, nil
		}
	}
	return nil, nil
}

// GetOrganizationUsers lists the local user rows of an organization's members.
// Without an organization id it returns just the caller. A provider failure on
// this display-only path degrades to the caller instead of failing the request.
func (s *Service) GetOrganizationUsers(ctx context.Context, p identity.Principal, organizationID string) ([]*userentity.User, error) {
	var (
		self    *userentity.User
		members []identity.Member
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.users.Resolve(gctx, p)
		if err != nil {
			return err
		}
		self = u
		return nil
	})
	if organizationID != "" {
		g.Go(func() error {
			m, err := s.provider.ListMembers(gctx, organizationID)
			if err != nil {
				// display-only lookup, degrade to the caller
				s.logger.Warnw("organization member lookup failed", "org", organizationID, "err", err)
				return nil
			}
			members = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if organizationID == "" || members == nil {
		return []*userentity.User{self}, nil
	}
	externalIDs := make([]string, 0, len(members))
	for _, m := range members {
		externalIDs = append(externalIDs, m.UserID)
	}
	return s.users.ListUsersByExternalIDs(ctx, externalIDs)
}
