package identity

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
)

// ResilientProvider decorates a Provider with short retries and a call
// timeout. Retrying belongs to the provider client; the board core itself
// never retries a failed operation.
type ResilientProvider struct {
	inner Provider
}

func NewResilientProvider(inner Provider) *ResilientProvider {
	return &ResilientProvider{inner: inner}
}

const providerCallTimeout = 15 * time.Second

func execute[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	r := retry.New[T](retry.Config{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		BackoffPolicy: retry.BackoffExponential,
	})
	t := timeout.New[T](timeout.Config{
		DefaultTimeout: providerCallTimeout,
	})
	return t.Execute(ctx, providerCallTimeout, func(ctx context.Context) (T, error) {
		return r.Do(ctx, fn)
	})
}

func (p *ResilientProvider) ListMemberships(ctx context.Context, userID string) ([]Membership, error) {
	return execute(ctx, func(ctx context.Context) ([]Membership, error) {
		return p.inner.ListMemberships(ctx, userID)
	})
}

func (p *ResilientProvider) ListMembers(ctx context.Context, organizationID string) ([]Member, error) {
	return execute(ctx, func(ctx context.Context) ([]Member, error) {
		return p.inner.ListMembers(ctx, organizationID)
	})
}

func (p *ResilientProvider) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	return execute(ctx, func(ctx context.Context) (*Organization, error) {
		return p.inner.GetOrganizationBySlug(ctx, slug)
	})
}
