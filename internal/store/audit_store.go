package store

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pipecrm/internal/models"
)

// AuditStore appends auth events. Writes are best-effort; a failed write
// is logged and swallowed so it can never fail the request that caused
// it.
type AuditStore struct {
	db *gorm.DB
	lg *zap.SugaredLogger
}

func NewAuditStore(db *gorm.DB, lg *zap.SugaredLogger) *AuditStore {
	return &AuditStore{db: db, lg: lg}
}

func (s *AuditStore) Record(ctx context.Context, userID, action string, meta map[string]any) {
	payload := []byte("{}")
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			payload = b
		}
	}
	row := models.AuditLog{Action: action, Metadata: models.JSONB(payload)}
	if userID != "" {
		row.UserID = &userID
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.lg.Warnw("audit write failed", "action", action, "error", err)
	}
}

// ListFor returns recent events: admins see everyone's, others their own.
func (s *AuditStore) ListFor(ctx context.Context, actor *models.User) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Order("created_at desc").Limit(200)
	if actor.Role != models.RoleAdmin {
		q = q.Where("user_id = ?", actor.ID)
	}
	var logs []models.AuditLog
	err := q.Find(&logs).Error
	return logs, err
}
