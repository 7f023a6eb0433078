package auth

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pipecrm/internal/apierror"
	"pipecrm/internal/config"
	"pipecrm/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		AccessTTL:        30 * time.Minute,
		RefreshTTL:       30 * 24 * time.Hour,
		ResetPasswordTTL: 10 * time.Minute,
		VerifyEmailTTL:   10 * time.Minute,
	}
}

// memUserStore and memTokenStore are in-memory fakes mirroring the
// contract of the gorm stores, including the atomic consume.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*models.User{}}
}

func (m *memUserStore) add(email, password string, role models.Role) *models.User {
	hash, _ := HashPassword(password)
	u := &models.User{ID: uuid.NewString(), Email: email, CNPJ: uuid.NewString()[:14], PasswordHash: hash, Role: role}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return u
}

func (m *memUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp, nil
}

func (m *memUserStore) Update(_ context.Context, id string, patch map[string]any) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if v, ok := patch["password_hash"].(string); ok {
		u.PasswordHash = v
	}
	if v, ok := patch["is_email_verified"].(bool); ok {
		u.IsEmailVerified = v
	}
	if v, ok := patch["name"].(string); ok {
		u.Name = v
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp, nil
}

// hashOf exposes the stored hash so tests can assert a password did or
// did not change.
func (m *memUserStore) hashOf(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].PasswordHash
}

type memTokenStore struct {
	mu   sync.Mutex
	rows map[string]*models.Token
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{rows: map[string]*models.Token{}}
}

func (m *memTokenStore) Save(_ context.Context, t *models.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}

func (m *memTokenStore) FindValid(_ context.Context, value string, kind models.TokenKind, userID string) (*models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.Value == value && t.Kind == kind && t.UserID == userID && !t.Blacklisted {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memTokenStore) FindValidByKind(_ context.Context, value string, kind models.TokenKind) (*models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.Value == value && t.Kind == kind && !t.Blacklisted {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memTokenStore) Consume(_ context.Context, value string, kind models.TokenKind, userID string) (*models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.rows {
		if t.Value == value && t.Kind == kind && t.UserID == userID && !t.Blacklisted {
			cp := *t
			delete(m.rows, id)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memTokenStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memTokenStore) DeleteAllOfKind(_ context.Context, userID string, kind models.TokenKind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.rows {
		if t.UserID == userID && t.Kind == kind {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memTokenStore) countOfKind(kind models.TokenKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.rows {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

func newTestService() (*Service, *memUserStore, *memTokenStore) {
	users := newMemUserStore()
	tokens := newMemTokenStore()
	svc := NewService(users, tokens, nil, testConfig(), zap.NewNop().Sugar())
	return svc, users, tokens
}

func TestLoginSuccess(t *testing.T) {
	svc, users, _ := newTestService()
	users.add("ana@example.com", "s3cret123", models.RoleUser)

	u, err := svc.Login(context.Background(), "Ana@Example.com ", "s3cret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if u.Email != "ana@example.com" {
		t.Errorf("email = %q", u.Email)
	}
	if u.PasswordHash != "" {
		t.Error("password hash leaked from login")
	}
}

func TestLoginFailureIsUniform(t *testing.T) {
	svc, users, _ := newTestService()
	users.add("ana@example.com", "s3cret123", models.RoleUser)

	_, errWrongPw := svc.Login(context.Background(), "ana@example.com", "nope")
	_, errNoUser := svc.Login(context.Background(), "ghost@example.com", "nope")

	if errWrongPw == nil || errNoUser == nil {
		t.Fatal("expected both logins to fail")
	}
	if errWrongPw.Error() != errNoUser.Error() {
		t.Errorf("messages differ: %q vs %q", errWrongPw, errNoUser)
	}
	if apierror.StatusOf(errWrongPw) != apierror.StatusOf(errNoUser) {
		t.Error("statuses differ between unknown-email and bad-password")
	}
}

func TestGenerateAuthTokens(t *testing.T) {
	svc, users, tokens := newTestService()
	u := users.add("ana@example.com", "s3cret123", models.RoleUser)

	pair, err := svc.GenerateAuthTokens(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if pair.Refresh == nil {
		t.Fatal("refresh token missing")
	}
	if got := tokens.countOfKind(models.TokenRefresh); got != 1 {
		t.Errorf("persisted refresh rows = %d, want 1", got)
	}
	if got := tokens.countOfKind(models.TokenAccess); got != 0 {
		t.Errorf("access tokens must not be persisted, found %d", got)
	}
	payload, err := DecodeToken(pair.Access.Token, testConfig().JWTSecret)
	if err != nil || payload.Kind != models.TokenAccess || payload.Subject != u.ID {
		t.Errorf("access decode = %+v, %v", payload, err)
	}

	// A second pair must not disturb the first (multi-device).
	if _, err := svc.GenerateAuthTokens(context.Background(), u.ID); err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if got := tokens.countOfKind(models.TokenRefresh); got != 2 {
		t.Errorf("refresh rows after second login = %d, want 2", got)
	}
}

func TestLogoutTwice(t *testing.T) {
	svc, users, _ := newTestService()
	u := users.add("ana@example.com", "s3cret123", models.RoleUser)
	pair, _ := svc.GenerateAuthTokens(context.Background(), u.ID)

	if err := svc.Logout(context.Background(), pair.Refresh.Token); err != nil {
		t.Fatalf("first logout: %v", err)
	}
	err := svc.Logout(context.Background(), pair.Refresh.Token)
	if apierror.StatusOf(err) != http.StatusNotFound {
		t.Errorf("second logout status = %d, want 404", apierror.StatusOf(err))
	}
}

func TestRefreshRotation(t *testing.T) {
	svc, users, _ := newTestService()
	u := users.add("ana@example.com", "s3cret123", models.RoleUser)
	pair, _ := svc.GenerateAuthTokens(context.Background(), u.ID)

	next, err := svc.Refresh(context.Background(), pair.Refresh.Token)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.Refresh.Token == pair.Refresh.Token {
		t.Error("refresh token was not rotated")
	}

	// The consumed token is single-use.
	_, err = svc.Refresh(context.Background(), pair.Refresh.Token)
	if apierror.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("reused refresh status = %d, want 401", apierror.StatusOf(err))
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, users, _ := newTestService()
	u := users.add("ana@example.com", "s3cret123", models.RoleUser)
	pair, _ := svc.GenerateAuthTokens(context.Background(), u.ID)

	_, err := svc.Refresh(context.Background(), pair.Access.Token)
	if apierror.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apierror.StatusOf(err))
	}
}

func TestConcurrentRefreshSingleUse(t *testing.T) {
	svc, users, _ := newTestService()
	u := users.add("ana@example.com", "s3cret123", models.RoleUser)
	pair, _ := svc.GenerateAuthTokens(context.Background(), u.ID)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(context.Background(), pair.Refresh.Token)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			if apierror.StatusOf(err) != http.StatusUnauthorized {
				t.Errorf("unexpected failure status %d", apierror.StatusOf(err))
			}
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("want exactly one winner, got %d failures of 2", failures)
	}
}

func TestResetPasswordInvalidatesAllResetTokens(t *testing.T) {
	svc, users, _ := newTestService()
	u := users.add("ana@example.com", "oldpassword", models.RoleUser)

	tok1, err := svc.GenerateResetPasswordToken(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("first reset token: %v", err)
	}
	tok2, err := svc.GenerateResetPasswordToken(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("second reset token: %v", err)
	}

	if err := svc.ResetPassword(context.Background(), tok1, "newpassword"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !CheckPassword(users.hashOf(u.ID), "newpassword") {
		t.Error("password was not updated")
	}

	err = svc.ResetPassword(context.Background(), tok2, "otherpassword")
	if apierror.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("outstanding reset token status = %d, want 401", apierror.StatusOf(err))
	}
	if CheckPassword(users.hashOf(u.ID), "otherpassword") {
		t.Error("second reset token still changed the password")
	}
}

func TestResetPasswordUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.GenerateResetPasswordToken(context.Background(), "ghost@example.com")
	if apierror.StatusOf(err) != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apierror.StatusOf(err))
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, users, tokens := newTestService()
	u := users.add("ana@example.com", "oldpassword", models.RoleUser)

	expired := time.Now().Add(-time.Minute)
	value, err := IssueToken(u.ID, expired, models.TokenResetPassword, testConfig().JWTSecret)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_ = tokens.Save(context.Background(), &models.Token{
		Value: value, UserID: u.ID, Kind: models.TokenResetPassword, Expires: expired,
	})

	err = svc.ResetPassword(context.Background(), value, "newpassword")
	if apierror.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apierror.StatusOf(err))
	}
	if !CheckPassword(users.hashOf(u.ID), "oldpassword") {
		t.Error("password changed despite expired token")
	}
}

func TestVerifyEmail(t *testing.T) {
	svc, users, tokens := newTestService()
	u := users.add("ana@example.com", "s3cret123", models.RoleUser)

	tok1, err := svc.GenerateVerifyEmailToken(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	tok2, err := svc.GenerateVerifyEmailToken(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("second verify token: %v", err)
	}

	if err := svc.VerifyEmail(context.Background(), tok1); err != nil {
		t.Fatalf("verify: %v", err)
	}
	got, _ := users.FindByID(context.Background(), u.ID)
	if !got.IsEmailVerified {
		t.Error("isEmailVerified not set")
	}
	if n := tokens.countOfKind(models.TokenVerifyEmail); n != 0 {
		t.Errorf("verify rows remaining = %d, want 0", n)
	}

	err = svc.VerifyEmail(context.Background(), tok2)
	if apierror.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("outstanding verify token status = %d, want 401", apierror.StatusOf(err))
	}
}
