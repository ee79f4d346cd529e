package api

import (
	"context"
	"time"

	"github.com/shaj13/go-guardian/auth"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

type userContextKey struct{}

// WithUser stores the authenticated user on the context
func WithUser(ctx context.Context, user auth.Info) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the authenticated user, if the request had one
func UserFromContext(ctx context.Context) (auth.Info, bool) {
	user, ok := ctx.Value(userContextKey{}).(auth.Info)
	return user, ok && user != nil
}
