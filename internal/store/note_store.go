package store

import (
	"context"

	"gorm.io/gorm"

	"pipecrm/internal/models"
)

type NoteStore struct {
	db *gorm.DB
}

func NewNoteStore(db *gorm.DB) *NoteStore { return &NoteStore{db: db} }

func (s *NoteStore) Create(ctx context.Context, n *models.Note) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *NoteStore) List(ctx context.Context, actor *models.User) ([]models.Note, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if actor.Role != models.RoleAdmin {
		q = q.Where("user_id = ?", actor.ID)
	}
	var ns []models.Note
	err := q.Find(&ns).Error
	return ns, err
}

func (s *NoteStore) Get(ctx context.Context, actor *models.User, id string) (*models.Note, error) {
	var n models.Note
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && n.UserID != actor.ID {
		return nil, ErrDenied
	}
	return &n, nil
}

func (s *NoteStore) Update(ctx context.Context, actor *models.User, id string, patch map[string]any) (*models.Note, error) {
	n, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(n).Updates(patch).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NoteStore) Delete(ctx context.Context, actor *models.User, id string) error {
	n, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(n).Error
}
