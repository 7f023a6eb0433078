package auth

import (
	"context"

	"pipecrm/internal/models"
)

type ctxKey string

const userKey ctxKey = "authUser"

// WithUser attaches the authenticated user to the request context.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the authenticated user, or nil outside a gated route.
func UserFrom(ctx context.Context) *models.User {
	if u, ok := ctx.Value(userKey).(*models.User); ok {
		return u
	}
	return nil
}

// Subject returns the authenticated user's id, or "" when absent.
func Subject(ctx context.Context) string {
	if u := UserFrom(ctx); u != nil {
		return u.ID
	}
	return ""
}
