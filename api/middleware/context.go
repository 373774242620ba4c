package middleware

import "context"

type contextKey string

const (
	ctxIdentity contextKey = "identity"
	ctxRole     contextKey = "actor_role"
)

// IdentityFromContext returns the caller identity or "" for anonymous requests.
func IdentityFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxIdentity).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithIdentity injects the caller identity and role into the context.
func WithIdentity(ctx context.Context, identity, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxIdentity, identity)
	return context.WithValue(ctx, ctxRole, role)
}
