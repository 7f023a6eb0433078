package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"pipecrm/internal/models"
)

func newGateRouter(users *memUserStore) *chi.Mux {
	g := NewGate(users, testSecret)
	ok := func(w http.ResponseWriter, r *http.Request) {
		if UserFrom(r.Context()) == nil {
			http.Error(w, "no user in context", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}

	r := chi.NewRouter()
	r.With(g.Require()).Get("/me", ok)
	r.With(g.Require("editarUsuarios")).Post("/users", ok)
	r.With(g.RequireSelfOr("userID", "editarUsuarios")).Patch("/users/{userID}", ok)
	return r
}

func accessTokenFor(t *testing.T, userID string) string {
	t.Helper()
	value, err := IssueToken(userID, time.Now().Add(time.Minute), models.TokenAccess, testSecret)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return value
}

func doGate(r http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGateRejectsMissingAndMalformedHeader(t *testing.T) {
	r := newGateRouter(newMemUserStore())

	if w := doGate(r, http.MethodGet, "/me", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no header status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abcdef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("non-bearer scheme status = %d, want 401", w.Code)
	}

	if w := doGate(r, http.MethodGet, "/me", "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", w.Code)
	}
}

func TestGateRejectsNonAccessKinds(t *testing.T) {
	users := newMemUserStore()
	u := users.add("ana@example.com", "pw", models.RoleAdmin)
	r := newGateRouter(users)

	for _, kind := range []models.TokenKind{models.TokenRefresh, models.TokenResetPassword, models.TokenVerifyEmail} {
		value, _ := IssueToken(u.ID, time.Now().Add(time.Minute), kind, testSecret)
		if w := doGate(r, http.MethodGet, "/me", value); w.Code != http.StatusUnauthorized {
			t.Errorf("%s bearer status = %d, want 401", kind, w.Code)
		}
	}
}

func TestGateRejectsExpiredAndUnknownSubject(t *testing.T) {
	users := newMemUserStore()
	u := users.add("ana@example.com", "pw", models.RoleAdmin)
	r := newGateRouter(users)

	expired, _ := IssueToken(u.ID, time.Now().Add(-time.Minute), models.TokenAccess, testSecret)
	if w := doGate(r, http.MethodGet, "/me", expired); w.Code != http.StatusUnauthorized {
		t.Errorf("expired status = %d, want 401", w.Code)
	}

	ghost := accessTokenFor(t, "deleted-user-id")
	if w := doGate(r, http.MethodGet, "/me", ghost); w.Code != http.StatusUnauthorized {
		t.Errorf("unknown subject status = %d, want 401", w.Code)
	}
}

func TestGateAuthenticatedOnlyRoute(t *testing.T) {
	users := newMemUserStore()
	u := users.add("ana@example.com", "pw", models.RoleUser)
	r := newGateRouter(users)

	if w := doGate(r, http.MethodGet, "/me", accessTokenFor(t, u.ID)); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestGateRightsCheck(t *testing.T) {
	users := newMemUserStore()
	plain := users.add("ana@example.com", "pw", models.RoleUser)
	admin := users.add("root@example.com", "pw", models.RoleAdmin)
	r := newGateRouter(users)

	if w := doGate(r, http.MethodPost, "/users", accessTokenFor(t, plain.ID)); w.Code != http.StatusForbidden {
		t.Errorf("USER create status = %d, want 403", w.Code)
	}
	if w := doGate(r, http.MethodPost, "/users", accessTokenFor(t, admin.ID)); w.Code != http.StatusOK {
		t.Errorf("ADMIN create status = %d, want 200", w.Code)
	}
}

func TestGateSelfAccessOverride(t *testing.T) {
	users := newMemUserStore()
	plain := users.add("ana@example.com", "pw", models.RoleUser)
	other := users.add("bob@example.com", "pw", models.RoleUser)
	admin := users.add("root@example.com", "pw", models.RoleAdmin)
	r := newGateRouter(users)

	// Own record: allowed without editarUsuarios.
	if w := doGate(r, http.MethodPatch, "/users/"+plain.ID, accessTokenFor(t, plain.ID)); w.Code != http.StatusOK {
		t.Errorf("self patch status = %d, want 200", w.Code)
	}
	// Someone else's record: denied.
	if w := doGate(r, http.MethodPatch, "/users/"+other.ID, accessTokenFor(t, plain.ID)); w.Code != http.StatusForbidden {
		t.Errorf("cross patch status = %d, want 403", w.Code)
	}
	// Admin passes on rights regardless of the target.
	if w := doGate(r, http.MethodPatch, "/users/"+other.ID, accessTokenFor(t, admin.ID)); w.Code != http.StatusOK {
		t.Errorf("admin patch status = %d, want 200", w.Code)
	}
}
