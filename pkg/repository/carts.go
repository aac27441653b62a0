package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
)

// GetCart loads the owner's cart with its lines in insertion order. When
// lock is set the cart row is held until the transaction ends.
func (s *Store) GetCart(ctx context.Context, ownerID string, lock bool) (*models.Cart, error) {
	var cart models.Cart
	err := s.query(ctx, lock).
		Preload("Lines", byID).
		Where("owner_id = ?", ownerID).
		First(&cart).Error
	if err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

// GetOrCreateCart returns the owner's locked cart, creating it on first use.
func (s *Store) GetOrCreateCart(ctx context.Context, ownerID string) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, ownerID, true)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	cart = &models.Cart{OwnerID: ownerID}
	if err := translate(s.db.WithContext(ctx).Create(cart).Error); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return s.GetCart(ctx, ownerID, true)
		}
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

// SaveCartLine inserts or updates a single line.
func (s *Store) SaveCartLine(ctx context.Context, line *models.CartLine) error {
	if err := s.db.WithContext(ctx).Save(line).Error; err != nil {
		return fmt.Errorf("save cart line: %w", translate(err))
	}
	return nil
}

func (s *Store) DeleteCartLine(ctx context.Context, lineID uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.CartLine{}, lineID).Error; err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

// DeleteCartLines empties a cart. Deleting from an empty cart is not an error.
func (s *Store) DeleteCartLines(ctx context.Context, cartID uint) error {
	if err := s.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartLine{}).Error; err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}
	return nil
}

// TouchCart bumps the cart row after its lines changed. Loaded lines are
// never written back.
func (s *Store) TouchCart(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).
		Model(&models.Cart{ID: cart.ID}).
		UpdateColumn("updated_at", cart.UpdatedAt).Error
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}
