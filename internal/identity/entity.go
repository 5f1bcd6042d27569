package identity

import "errors"

// Role is the closed set of organization roles recognized by the board core.
// Values mirror the identity provider's wire format.
type Role string

const (
	RoleAdmin  Role = "org:admin"
	RoleMember Role = "org:member"
)

// ParseRole normalizes a provider role string. Unknown values degrade to
// member so a new provider role can never grant admin rights by accident.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// Principal is the authenticated caller as resolved by the request layer.
// It is passed explicitly into every service operation; the core keeps no
// ambient session state.
type Principal struct {
	// UserID is the provider-side (external) user id. Empty means the
	// request carried no valid session.
	UserID string
	// OrgID is the caller's active organization, empty when none selected.
	OrgID string
	// OrgRole is only meaningful when OrgID is set.
	OrgRole Role
}

// Authenticated reports whether the request carried a valid session.
func (p Principal) Authenticated() bool { return p.UserID != "" }

// Membership is one entry of a user's organization membership list, in the
// provider's stable order.
type Membership struct {
	OrganizationID string `json:"organization_id"`
	Role           Role   `json:"role"`
}

// Member is one user inside an organization.
type Member struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Organization is the provider-owned tenant record. It is never persisted
// locally; projects reference it by id only.
type Organization struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// ErrProviderUnavailable is returned when an identity-provider call fails
// after the client's own retries are exhausted.
var ErrProviderUnavailable = errors.New("identity provider unavailable")
