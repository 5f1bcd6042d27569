package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Provider is the read-only surface the board core needs from the external
// identity service. All calls may fail with ErrProviderUnavailable.
type Provider interface {
	// ListMemberships returns the user's organization memberships in the
	// provider's stable order; the first entry is the fallback tenant.
	ListMemberships(ctx context.Context, userID string) ([]Membership, error)
	// ListMembers returns every user of an organization with their role.
	ListMembers(ctx context.Context, organizationID string) ([]Member, error)
	// GetOrganizationBySlug resolves an organization by its slug.
	GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error)
}

// HTTPProvider talks JSON to the identity service.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProviderFromEnv reads IDENTITY_API_URL and IDENTITY_API_KEY.
func NewHTTPProviderFromEnv() (*HTTPProvider, error) {
	base := os.Getenv("IDENTITY_API_URL")
	if base == "" {
		return nil, fmt.Errorf("IDENTITY_API_URL not set")
	}
	return &HTTPProvider{
		baseURL: base,
		apiKey:  os.Getenv("IDENTITY_API_KEY"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (p *HTTPProvider) ListMemberships(ctx context.Context, userID string) ([]Membership, error) {
	var out []Membership
	path := "/users/" + url.PathEscape(userID) + "/memberships"
	if err := p.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *HTTPProvider) ListMembers(ctx context.Context, organizationID string) ([]Member, error) {
	var out []Member
	path := "/organizations/" + url.PathEscape(organizationID) + "/members"
	if err := p.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *HTTPProvider) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	var out Organization
	if err := p.getJSON(ctx, "/organizations/slug/"+url.PathEscape(slug), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d on %s", ErrProviderUnavailable, resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrProviderUnavailable, path, err)
	}
	return nil
}
