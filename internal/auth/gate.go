package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pipecrm/internal/apierror"
	"pipecrm/internal/models"
)

// UserSource resolves the acting user for a verified access token. The
// returned user is a projection without the password hash.
type UserSource interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Gate authenticates bearer tokens and checks role rights per request.
// It holds no per-request state; a request either proceeds with the
// resolved user in its context or is rejected with 401/403.
type Gate struct {
	users  UserSource
	secret string
}

func NewGate(users UserSource, secret string) *Gate {
	return &Gate{users: users, secret: secret}
}

// Authorize decides allow/deny for one request. header is the raw
// Authorization header; selfTarget is the id of the resource owner when
// the route grants the self-access override, "" otherwise. A user acting
// on their own record passes even without the named rights.
func (g *Gate) Authorize(ctx context.Context, header, selfTarget string, required []string) (*models.User, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, apierror.Unauthenticated("please authenticate")
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	payload, err := DecodeToken(raw, g.secret)
	if err != nil || payload.Kind != models.TokenAccess {
		return nil, apierror.Unauthenticated("please authenticate")
	}
	u, err := g.users.FindByID(ctx, payload.Subject)
	if err != nil || u == nil {
		return nil, apierror.Unauthenticated("please authenticate")
	}
	if len(required) > 0 && !HasRights(u.Role, required...) {
		if selfTarget == "" || selfTarget != u.ID {
			return nil, apierror.Forbidden("missing required rights")
		}
	}
	return u, nil
}

// Require gates a route on authentication plus the given rights. With no
// rights listed, authentication alone suffices.
func (g *Gate) Require(required ...string) func(http.Handler) http.Handler {
	return g.middleware("", required)
}

// RequireSelfOr is Require with the self-access override: when the URL
// parameter named by param equals the acting user's id, the rights check
// is skipped. Only routes mounted with this variant get the override.
func (g *Gate) RequireSelfOr(param string, required ...string) func(http.Handler) http.Handler {
	return g.middleware(param, required)
}

func (g *Gate) middleware(selfParam string, required []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			selfTarget := ""
			if selfParam != "" {
				selfTarget = chi.URLParam(r, selfParam)
			}
			u, err := g.Authorize(r.Context(), r.Header.Get("Authorization"), selfTarget, required)
			if err != nil {
				http.Error(w, err.Error(), apierror.StatusOf(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
