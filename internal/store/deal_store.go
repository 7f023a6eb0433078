package store

import (
	"context"

	"gorm.io/gorm"

	"pipecrm/internal/models"
)

type DealStore struct {
	db *gorm.DB
}

func NewDealStore(db *gorm.DB) *DealStore { return &DealStore{db: db} }

func (s *DealStore) Create(ctx context.Context, d *models.Deal) error {
	return s.db.WithContext(ctx).Create(d).Error
}

// ClientExists lets the handler reject deals pointing at unknown clients.
func (s *DealStore) ClientExists(ctx context.Context, clientID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", clientID).Count(&n).Error
	return n > 0, err
}

func (s *DealStore) List(ctx context.Context, actor *models.User) ([]models.Deal, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if actor.Role != models.RoleAdmin {
		q = q.Where("user_id = ?", actor.ID)
	}
	var ds []models.Deal
	err := q.Find(&ds).Error
	return ds, err
}

func (s *DealStore) Get(ctx context.Context, actor *models.User, id string) (*models.Deal, error) {
	var d models.Deal
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && d.UserID != actor.ID {
		return nil, ErrDenied
	}
	return &d, nil
}

func (s *DealStore) Update(ctx context.Context, actor *models.User, id string, patch map[string]any) (*models.Deal, error) {
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(d).Updates(patch).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DealStore) Delete(ctx context.Context, actor *models.User, id string) error {
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(d).Error
}
