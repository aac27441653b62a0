package repository

import (
	"context"
	"fmt"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// DeactivateUser flips an active user to inactive. It returns ErrConflict
// when the user was already inactive.
func (s *Store) DeactivateUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *Store) CreateMenuItem(ctx context.Context, m *models.MenuItem) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create menu item: %w", translate(err))
	}
	return nil
}

func (s *Store) GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	var m models.MenuItem
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// UpdateMenuItemPrice is used by catalog sync jobs; placed orders never see it.
func (s *Store) UpdateMenuItemPrice(ctx context.Context, m *models.MenuItem) error {
	if err := s.db.WithContext(ctx).Model(m).Update("price", m.Price).Error; err != nil {
		return fmt.Errorf("update menu item price: %w", err)
	}
	return nil
}
