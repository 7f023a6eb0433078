// Package store holds the persistence layer. Every store takes its
// *gorm.DB at construction; nothing here reaches for globals. The
// client/deal/note stores apply the same role scoping: non-ADMIN actors
// only see and touch rows they own.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"pipecrm/internal/models"
)

// ErrDenied marks a row that exists but belongs to another user; the
// HTTP layer maps it to 403.
var ErrDenied = errors.New("access denied")

type ClientStore struct {
	db *gorm.DB
}

func NewClientStore(db *gorm.DB) *ClientStore { return &ClientStore{db: db} }

func (s *ClientStore) Create(ctx context.Context, c *models.Client) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *ClientStore) List(ctx context.Context, actor *models.User) ([]models.Client, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if actor.Role != models.RoleAdmin {
		q = q.Where("user_id = ?", actor.ID)
	}
	var cs []models.Client
	err := q.Find(&cs).Error
	return cs, err
}

func (s *ClientStore) Get(ctx context.Context, actor *models.User, id string) (*models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && c.UserID != actor.ID {
		return nil, ErrDenied
	}
	return &c, nil
}

func (s *ClientStore) Update(ctx context.Context, actor *models.User, id string, patch map[string]any) (*models.Client, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(c).Updates(patch).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientStore) Delete(ctx context.Context, actor *models.User, id string) error {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(c).Error
}
