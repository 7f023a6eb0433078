package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"pipecrm/internal/auth"
	"pipecrm/internal/models"
	"pipecrm/internal/store"
)

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	CNPJ     string `json:"cnpj"`
}

func Register(users *store.UserStore, svc *auth.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		req.CNPJ = strings.TrimSpace(req.CNPJ)
		if req.Email == "" || req.Password == "" || req.CNPJ == "" {
			http.Error(w, "email, password and cnpj required", http.StatusBadRequest)
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}
		u := models.User{Email: req.Email, CNPJ: req.CNPJ, Name: req.Name, PasswordHash: hash, Role: models.RoleUser}
		if err := users.Create(r.Context(), &u); err != nil {
			http.Error(w, "email or cnpj already registered", http.StatusBadRequest)
			return
		}
		tokens, err := svc.GenerateAuthTokens(r.Context(), u.ID)
		if err != nil {
			respondError(w, err)
			return
		}
		u.PasswordHash = ""
		respondCreated(w, map[string]any{"user": u, "tokens": tokens})
	}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(svc *auth.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		u, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			respondError(w, err)
			return
		}
		tokens, err := svc.GenerateAuthTokens(r.Context(), u.ID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, map[string]any{"user": u, "tokens": tokens})
	}
}

type refreshTokenReq struct {
	RefreshToken string `json:"refresh_token"`
}

func Logout(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshTokenReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := svc.Logout(r.Context(), req.RefreshToken); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func RefreshTokens(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshTokenReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tokens, err := svc.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, tokens)
	}
}

// ForgotPassword issues a reset token. Mail delivery is not wired; the
// token lands in the service log for the operator to relay.
func ForgotPassword(svc *auth.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		token, err := svc.GenerateResetPasswordToken(r.Context(), req.Email)
		if err != nil {
			respondError(w, err)
			return
		}
		lg.Infow("password reset token issued", "email", req.Email, "token", token)
		w.WriteHeader(http.StatusNoContent)
	}
}

func ResetPassword(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		var req struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if token == "" || req.Password == "" {
			http.Error(w, "token and password required", http.StatusBadRequest)
			return
		}
		if err := svc.ResetPassword(r.Context(), token, req.Password); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func SendVerificationEmail(svc *auth.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := auth.UserFrom(r.Context())
		token, err := svc.GenerateVerifyEmailToken(r.Context(), actor.ID)
		if err != nil {
			respondError(w, err)
			return
		}
		lg.Infow("email verification token issued", "user_id", actor.ID, "email", actor.Email, "token", token)
		w.WriteHeader(http.StatusNoContent)
	}
}

func VerifyEmail(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "token required", http.StatusBadRequest)
			return
		}
		if err := svc.VerifyEmail(r.Context(), token); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
