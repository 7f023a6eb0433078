package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"pipecrm/internal/apierror"
	"pipecrm/internal/config"
	"pipecrm/internal/models"
)

// UserStore is the user-lookup collaborator. FindByEmail returns the full
// row including the password hash; FindByID returns a projection without
// it.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, patch map[string]any) (*models.User, error)
}

// TokenStore persists REFRESH/RESET_PASSWORD/VERIFY_EMAIL tokens. Consume
// must be atomic (delete-returning-row) so two concurrent refreshes with
// the same token cannot both win.
type TokenStore interface {
	Save(ctx context.Context, t *models.Token) error
	FindValid(ctx context.Context, value string, kind models.TokenKind, userID string) (*models.Token, error)
	FindValidByKind(ctx context.Context, value string, kind models.TokenKind) (*models.Token, error)
	Consume(ctx context.Context, value string, kind models.TokenKind, userID string) (*models.Token, error)
	Delete(ctx context.Context, id string) error
	DeleteAllOfKind(ctx context.Context, userID string, kind models.TokenKind) (int64, error)
}

// Auditor records auth events. May be nil; recording is best-effort and
// never fails an operation.
type Auditor interface {
	Record(ctx context.Context, userID, action string, meta map[string]any)
}

// TokenDetail is one issued token with its expiry instant.
type TokenDetail struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// AuthTokens is the access/refresh pair returned to route handlers.
type AuthTokens struct {
	Access  TokenDetail  `json:"access"`
	Refresh *TokenDetail `json:"refresh,omitempty"`
}

// Service orchestrates login, logout, token rotation, password reset and
// email verification over the injected stores.
type Service struct {
	users  UserStore
	tokens TokenStore
	audit  Auditor
	cfg    *config.Config
	lg     *zap.SugaredLogger
}

func NewService(users UserStore, tokens TokenStore, audit Auditor, cfg *config.Config, lg *zap.SugaredLogger) *Service {
	return &Service{users: users, tokens: tokens, audit: audit, cfg: cfg, lg: lg}
}

// Login verifies email/password and returns the user without the hash.
// The failure message never distinguishes unknown email from bad
// password.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || u == nil || !CheckPassword(u.PasswordHash, password) {
		return nil, apierror.BadRequest("invalid email or password")
	}
	u.PasswordHash = ""
	s.record(ctx, u.ID, "auth.login", map[string]any{"email": u.Email})
	return u, nil
}

// GenerateAuthTokens issues a short-lived ACCESS token (not persisted)
// and a long-lived REFRESH token (persisted). Existing refresh rows for
// the user are left alone so concurrent sessions keep working.
func (s *Service) GenerateAuthTokens(ctx context.Context, userID string) (*AuthTokens, error) {
	accessExp := time.Now().Add(s.cfg.AccessTTL)
	access, err := IssueToken(userID, accessExp, models.TokenAccess, s.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	refreshExp := time.Now().Add(s.cfg.RefreshTTL)
	refresh, err := IssueToken(userID, refreshExp, models.TokenRefresh, s.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	rec := &models.Token{Value: refresh, UserID: userID, Kind: models.TokenRefresh, Expires: refreshExp}
	if err := s.tokens.Save(ctx, rec); err != nil {
		return nil, err
	}

	return &AuthTokens{
		Access:  TokenDetail{Token: access, Expires: accessExp},
		Refresh: &TokenDetail{Token: refresh, Expires: refreshExp},
	}, nil
}

// Logout deletes the matching refresh row. A second call with the same
// token fails NotFound.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	rec, err := s.tokens.FindValidByKind(ctx, refreshToken, models.TokenRefresh)
	if err != nil || rec == nil {
		return apierror.NotFound("token not found")
	}
	if err := s.tokens.Delete(ctx, rec.ID); err != nil {
		return err
	}
	s.record(ctx, rec.UserID, "auth.logout", nil)
	return nil
}

// Refresh rotates a refresh token: verify, atomically consume the stored
// row, then issue a fresh pair for the same subject. Every failure in the
// chain collapses to the same 401 so callers cannot tell expired from
// missing from tampered.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	payload, err := DecodeToken(refreshToken, s.cfg.JWTSecret)
	if err != nil || payload.Kind != models.TokenRefresh {
		return nil, apierror.Unauthenticated("please authenticate")
	}
	rec, err := s.tokens.Consume(ctx, refreshToken, models.TokenRefresh, payload.Subject)
	if err != nil || rec == nil {
		return nil, apierror.Unauthenticated("please authenticate")
	}
	s.record(ctx, rec.UserID, "auth.refresh", nil)
	return s.GenerateAuthTokens(ctx, rec.UserID)
}

// GenerateResetPasswordToken issues and persists a RESET_PASSWORD token
// for the user owning the email. Fails NotFound for unknown emails.
func (s *Service) GenerateResetPasswordToken(ctx context.Context, email string) (string, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || u == nil {
		return "", apierror.NotFound("no user found with this email")
	}
	expires := time.Now().Add(s.cfg.ResetPasswordTTL)
	token, err := IssueToken(u.ID, expires, models.TokenResetPassword, s.cfg.JWTSecret)
	if err != nil {
		return "", err
	}
	rec := &models.Token{Value: token, UserID: u.ID, Kind: models.TokenResetPassword, Expires: expires}
	if err := s.tokens.Save(ctx, rec); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword stores a new password hash and invalidates every
// outstanding reset token for the user. Failures collapse to 401.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	rec, err := s.verifyStored(ctx, token, models.TokenResetPassword)
	if err != nil {
		return apierror.Unauthenticated("password reset failed")
	}
	u, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil || u == nil {
		return apierror.Unauthenticated("password reset failed")
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return apierror.Unauthenticated("password reset failed")
	}
	if _, err := s.users.Update(ctx, u.ID, map[string]any{"password_hash": hash}); err != nil {
		return apierror.Unauthenticated("password reset failed")
	}
	if _, err := s.tokens.DeleteAllOfKind(ctx, u.ID, models.TokenResetPassword); err != nil {
		return apierror.Unauthenticated("password reset failed")
	}
	s.record(ctx, u.ID, "auth.reset_password", nil)
	return nil
}

// GenerateVerifyEmailToken issues and persists a VERIFY_EMAIL token.
func (s *Service) GenerateVerifyEmailToken(ctx context.Context, userID string) (string, error) {
	expires := time.Now().Add(s.cfg.VerifyEmailTTL)
	token, err := IssueToken(userID, expires, models.TokenVerifyEmail, s.cfg.JWTSecret)
	if err != nil {
		return "", err
	}
	rec := &models.Token{Value: token, UserID: userID, Kind: models.TokenVerifyEmail, Expires: expires}
	if err := s.tokens.Save(ctx, rec); err != nil {
		return "", err
	}
	return token, nil
}

// VerifyEmail marks the owning user as verified and drops every
// outstanding verify token. Failures collapse to 401.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	rec, err := s.verifyStored(ctx, token, models.TokenVerifyEmail)
	if err != nil {
		return apierror.Unauthenticated("email verification failed")
	}
	if _, err := s.tokens.DeleteAllOfKind(ctx, rec.UserID, models.TokenVerifyEmail); err != nil {
		return apierror.Unauthenticated("email verification failed")
	}
	if _, err := s.users.Update(ctx, rec.UserID, map[string]any{"is_email_verified": true}); err != nil {
		return apierror.Unauthenticated("email verification failed")
	}
	s.record(ctx, rec.UserID, "auth.verify_email", nil)
	return nil
}

// verifyStored decodes the token and requires a matching non-blacklisted
// store row pinned to the decoded subject.
func (s *Service) verifyStored(ctx context.Context, token string, kind models.TokenKind) (*models.Token, error) {
	payload, err := DecodeToken(token, s.cfg.JWTSecret)
	if err != nil || payload.Kind != kind {
		return nil, ErrTokenInvalid
	}
	rec, err := s.tokens.FindValid(ctx, token, kind, payload.Subject)
	if err != nil || rec == nil {
		return nil, ErrTokenInvalid
	}
	return rec, nil
}

func (s *Service) record(ctx context.Context, userID, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, userID, action, meta)
}
