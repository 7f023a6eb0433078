package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pipecrm/internal/auth"
	"pipecrm/internal/models"
	"pipecrm/internal/store"
)

func CreateClient(clients *store.ClientStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name    string              `json:"name"`
			Email   string              `json:"email"`
			Phone   string              `json:"phone,omitempty"`
			Company string              `json:"company,omitempty"`
			Status  models.ClientStatus `json:"status,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.Email == "" {
			http.Error(w, "name and email required", http.StatusBadRequest)
			return
		}
		if req.Status == "" {
			req.Status = models.ClientLead
		}
		actor := auth.UserFrom(r.Context())
		c := models.Client{
			Name: req.Name, Email: req.Email, Phone: req.Phone,
			Company: req.Company, Status: req.Status, UserID: actor.ID,
		}
		if err := clients.Create(r.Context(), &c); err != nil {
			respondError(w, err)
			return
		}
		respondCreated(w, c)
	}
}

func ListClients(clients *store.ClientStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := clients.List(r.Context(), auth.UserFrom(r.Context()))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, cs)
	}
}

func GetClient(clients *store.ClientStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := clients.Get(r.Context(), auth.UserFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, storeError(err))
			return
		}
		respondJSON(w, c)
	}
}

func UpdateClient(clients *store.ClientStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name    *string              `json:"name"`
			Email   *string              `json:"email"`
			Phone   *string              `json:"phone"`
			Company *string              `json:"company"`
			Status  *models.ClientStatus `json:"status"`
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
			patch["email"] = *req.Email
		}
		if req.Phone != nil {
			patch["phone"] = *req.Phone
		}
		if req.Company != nil {
			patch["company"] = *req.Company
		}
		if req.Status != nil {
			patch["status"] = *req.Status
		}
		if len(patch) == 0 {
			http.Error(w, "nothing to update", http.StatusBadRequest)
			return
		}
		c, err := clients.Update(r.Context(), auth.UserFrom(r.Context()), chi.URLParam(r, "id"), patch)
		if err != nil {
			respondError(w, storeError(err))
			return
		}
		respondJSON(w, c)
	}
}

func DeleteClient(clients *store.ClientStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := clients.Delete(r.Context(), auth.UserFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			respondError(w, storeError(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
