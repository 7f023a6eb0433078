package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pipecrm/internal/models"
)

type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore { return &TokenStore{db: db} }

func (s *TokenStore) Save(ctx context.Context, t *models.Token) error {
	return s.db.WithContext(ctx).Create(t).Error
}

// FindValid returns the row only if it is not blacklisted and belongs to
// userID. Expiry is not re-checked here; the signed token carries it.
func (s *TokenStore) FindValid(ctx context.Context, value string, kind models.TokenKind, userID string) (*models.Token, error) {
	var t models.Token
	err := s.db.WithContext(ctx).
		First(&t, "value = ? AND kind = ? AND user_id = ? AND blacklisted = false", value, kind, userID).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindValidByKind is FindValid without the user binding; logout uses it
// because the request carries no trusted user id.
func (s *TokenStore) FindValidByKind(ctx context.Context, value string, kind models.TokenKind) (*models.Token, error) {
	var t models.Token
	err := s.db.WithContext(ctx).
		First(&t, "value = ? AND kind = ? AND blacklisted = false", value, kind).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Consume deletes the matching row and returns it in one statement
// (DELETE ... RETURNING). Of two concurrent callers holding the same
// token, exactly one gets the row; the other sees ErrRecordNotFound.
func (s *TokenStore) Consume(ctx context.Context, value string, kind models.TokenKind, userID string) (*models.Token, error) {
	var deleted []models.Token
	res := s.db.WithContext(ctx).Clauses(clause.Returning{}).
		Where("value = ? AND kind = ? AND user_id = ? AND blacklisted = false", value, kind, userID).
		Delete(&deleted)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 || len(deleted) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &deleted[0], nil
}

func (s *TokenStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Token{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAllOfKind removes every token of one kind a user owns, e.g. all
// outstanding reset links after a successful password reset.
func (s *TokenStore) DeleteAllOfKind(ctx context.Context, userID string, kind models.TokenKind) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&models.Token{}, "user_id = ? AND kind = ?", userID, kind)
	return res.RowsAffected, res.Error
}
