package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"pipecrm/internal/auth"
	"pipecrm/internal/store"
)

// MyLogs returns recent auth audit events. Regular users see their own;
// admins see everyone's.
func MyLogs(audits *store.AuditStore, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := audits.ListFor(r.Context(), auth.UserFrom(r.Context()))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, logs)
	}
}
