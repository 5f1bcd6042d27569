package identity

import "context"

type principalKey struct{}

// WithPrincipal stashes the resolved principal on the request context. Only
// the router's auth middleware writes this; handlers read it back and pass
// the principal explicitly into service calls.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the request's principal, zero when none was resolved.
func PrincipalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}
