package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pipecrm/internal/auth"
	"pipecrm/internal/models"
	"pipecrm/internal/store"
)

func CreateDeal(deals *store.DealStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title     string     `json:"title"`
			Value     float64    `json:"value"`
			ClientID  string     `json:"client_id"`
			CloseDate *time.Time `json:"close_date,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" || req.ClientID == "" {
			http.Error(w, "title and client_id required", http.StatusBadRequest)
			return
		}
		if req.Value <= 0 {
			http.Error(w, "deal value must be greater than zero", http.StatusBadRequest)
			return
		}
		if req.CloseDate != nil && req.CloseDate.Before(time.Now()) {
			http.Error(w, "close date must be in the future", http.StatusBadRequest)
			return
		}
		ok, err := deals.ClientExists(r.Context(), req.ClientID)
		if err != nil {
			respondError(w, err)
			return
		}
		if !ok {
			http.Error(w, "client not found", http.StatusNotFound)
			return
		}
		actor := auth.UserFrom(r.Context())
		d := models.Deal{
			Title: req.Title, Value: req.Value, Stage: models.DealInitialContact,
			ClientID: req.ClientID, UserID: actor.ID, CloseDate: req.CloseDate,
		}
		if err := deals.Create(r.Context(), &d); err != nil {
			respondError(w, err)
			return
		}
		respondCreated(w, d)
	}
}

func ListDeals(deals *store.DealStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := deals.List(r.Context(), auth.UserFrom(r.Context()))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, ds)
	}
}

func GetDeal(deals *store.DealStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := deals.Get(r.Context(), auth.UserFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, storeError(err))
			return
		}
		respondJSON(w, d)
	}
}

func UpdateDeal(deals *store.DealStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title     *string           `json:"title"`
			Value     *float64          `json:"value"`
			Stage     *models.DealStage `json:"stage"`
			CloseDate *time.Time        `json:"close_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		patch := map[string]any{}
		if req.Title != nil {
			patch["title"] = *req.Title
		}
		if req.Value != nil {
			if *req.Value <= 0 {
				http.Error(w, "deal value must be greater than zero", http.StatusBadRequest)
				return
			}
			patch["value"] = *req.Value
		}
		if req.Stage != nil {
			patch["stage"] = *req.Stage
		}
		if req.CloseDate != nil {
			patch["close_date"] = *req.CloseDate
		}
		if len(patch) == 0 {
			http.Error(w, "nothing to update", http.StatusBadRequest)
			return
		}
		d, err := deals.Update(r.Context(), auth.UserFrom(r.Context()), chi.URLParam(r, "id"), patch)
		if err != nil {
			respondError(w, storeError(err))
			return
		}
		respondJSON(w, d)
	}
}

func DeleteDeal(deals *store.DealStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deals.Delete(r.Context(), auth.UserFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			respondError(w, storeError(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
