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

func CreateNote(notes *store.NoteStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content  string  `json:"content"`
			ClientID *string `json:"client_id,omitempty"`
			DealID   *string `json:"deal_id,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			http.Error(w, "content required", http.StatusBadRequest)
			return
		}
		actor := auth.UserFrom(r.Context())
		n := models.Note{Content: req.Content, UserID: actor.ID, ClientID: req.ClientID, DealID: req.DealID}
		if err := notes.Create(r.Context(), &n); err != nil {
			respondError(w, err)
			return
		}
		respondCreated(w, n)
	}
}

func ListNotes(notes *store.NoteStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns, err := notes.List(r.Context(), auth.UserFrom(r.Context()))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, ns)
	}
}

func GetNote(notes *store.NoteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := notes.Get(r.Context(), auth.UserFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, storeError(err))
			return
		}
		respondJSON(w, n)
	}
}

func UpdateNote(notes *store.NoteStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			http.Error(w, "content required", http.StatusBadRequest)
			return
		}
		n, err := notes.Update(r.Context(), auth.UserFrom(r.Context()), chi.URLParam(r, "id"), map[string]any{"content": req.Content})
		if err != nil {
			respondError(w, storeError(err))
			return
		}
		respondJSON(w, n)
	}
}

func DeleteNote(notes *store.NoteStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := notes.Delete(r.Context(), auth.UserFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			respondError(w, storeError(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
