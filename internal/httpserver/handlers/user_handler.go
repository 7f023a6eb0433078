package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pipecrm/internal/apierror"
	"pipecrm/internal/auth"
	"pipecrm/internal/models"
	"pipecrm/internal/store"
)

func ListUsers(users *store.UserStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		us, err := users.List(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, us)
	}
}

func CreateUser(users *store.UserStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string      `json:"email"`
			Password string      `json:"password"`
			Name     string      `json:"name,omitempty"`
			CNPJ     string      `json:"cnpj"`
			Role     models.Role `json:"role,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" || req.CNPJ == "" {
			http.Error(w, "email, password and cnpj required", http.StatusBadRequest)
			return
		}
		if req.Role == "" {
			req.Role = models.RoleUser
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}
		u := models.User{Email: req.Email, CNPJ: req.CNPJ, Name: req.Name, PasswordHash: hash, Role: req.Role}
		if err := users.Create(r.Context(), &u); err != nil {
			http.Error(w, "email or cnpj already registered", http.StatusBadRequest)
			return
		}
		u.PasswordHash = ""
		respondCreated(w, u)
	}
}

func GetUser(users *store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := users.FindByID(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			respondError(w, storeError(err))
			return
		}
		respondJSON(w, u)
	}
}

func UpdateUser(users *store.UserStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "userID")
		var req struct {
			Name     *string      `json:"name"`
			Email    *string      `json:"email"`
			Password *string      `json:"password"`
			Role     *models.Role `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		patch := map[string]any{}
		if req.Name != nil {
			patch["name"] = *req.Name
		}
		if req.Email != nil {
			patch["email"] = strings.TrimSpace(strings.ToLower(*req.Email))
		}
		if req.Password != nil && *req.Password != "" {
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				http.Error(w, "hash error", http.StatusInternalServerError)
				return
			}
			patch["password_hash"] = hash
		}
		if req.Role != nil {
			// Self-access lets users edit their own record, but role
			// changes stay admin-only.
			actor := auth.UserFrom(r.Context())
			if !auth.HasRights(actor.Role, "editarUsuarios") {
				respondError(w, apierror.Forbidden("missing required rights"))
				return
			}
			patch["role"] = *req.Role
		}
		if len(patch) == 0 {
			http.Error(w, "nothing to update", http.StatusBadRequest)
			return
		}
		u, err := users.Update(r.Context(), id, patch)
		if err != nil {
			respondError(w, storeError(err))
			return
		}
		respondJSON(w, u)
	}
}

func DeleteUser(users *store.UserStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "userID")
		if err := users.Delete(r.Context(), id); err != nil {
			respondError(w, storeError(err))
			return
		}
		lg.Infow("user deleted", "user_id", id, "by", auth.Subject(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}
}
