// Package cart manages each customer's mutable shopping cart. Mutations for
// one owner are serialized; different owners never contend.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/catalog"
	apperrors "github.com/InfiniteGosi/YolmaFoodApp/pkg/errors"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/lock"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/repository"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/view"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxLineQuantity bounds the units of one menu item in a cart.
const MaxLineQuantity = 999

// maxAmount is the largest value a decimal(10,2) money column holds.
var maxAmount = decimal.RequireFromString("99999999.99")

var errTooMany = apperrors.Validation(fmt.Sprintf("quantity must not exceed %d", MaxLineQuantity))

// checkTotal rejects a cart whose total no longer fits a money column.
func checkTotal(c *models.Cart) error {
	if c.Total().GreaterThan(maxAmount) {
		return apperrors.Validation("cart total is too large")
	}
	return nil
}

// LockKey is the per-owner lock shared by every writer of a cart.
func LockKey(ownerID string) string {
	return "cart:" + ownerID
}

type Service struct {
	store   *repository.Store
	catalog catalog.Lookup
	locker  lock.Locker
	logger  *zap.Logger
}

func NewService(store *repository.Store, lookup catalog.Lookup, locker lock.Locker, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		catalog: lookup,
		locker:  locker,
		logger:  logger.Named("cart"),
	}
}

// withCart runs fn on the owner's locked cart inside one transaction.
// Without create, a missing cart is a NotFoundError.
func (s *Service) withCart(ctx context.Context, ownerID string, create bool, fn func(tx *repository.Store, c *models.Cart) error) (*models.Cart, error) {
	release, err := s.locker.Lock(ctx, LockKey(ownerID))
	if err != nil {
		return nil, apperrors.Unavailable("cart is busy", err)
	}
	defer release()

	var cart *models.Cart
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if create {
			cart, err = tx.GetOrCreateCart(ctx, ownerID)
		} else {
			cart, err = tx.GetCart(ctx, ownerID, true)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("cart not found")
		}
		if err != nil {
			return err
		}
		if err := fn(tx, cart); err != nil {
			return err
		}
		return tx.TouchCart(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem puts quantity units of menuItemID in the owner's cart, merging
// into an existing line at the price captured when that line was created.
func (s *Service) AddItem(ctx context.Context, ownerID string, menuItemID uint, quantity int) (view.Cart, error) {
	if quantity <= 0 {
		return view.Cart{}, apperrors.Validation("quantity must be greater than zero")
	}
	if quantity > MaxLineQuantity {
		return view.Cart{}, errTooMany
	}

	item, err := s.catalog.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return view.Cart{}, err
	}
	if !item.Exists {
		return view.Cart{}, apperrors.NotFound("menu item not found")
	}

	cart, err := s.withCart(ctx, ownerID, true, func(tx *repository.Store, c *models.Cart) error {
		if line := c.LineFor(menuItemID); line != nil {
			if line.Quantity > MaxLineQuantity-quantity {
				return errTooMany
			}
			line.SetQuantity(line.Quantity + quantity)
			if err := checkTotal(c); err != nil {
				return err
			}
			return tx.SaveCartLine(ctx, line)
		}

		c.Lines = append(c.Lines, models.CartLine{CartID: c.ID, MenuItemID: menuItemID, UnitPrice: item.Price})
		line := &c.Lines[len(c.Lines)-1]
		line.SetQuantity(quantity)
		if err := checkTotal(c); err != nil {
			return err
		}
		return tx.SaveCartLine(ctx, line)
	})
	if err != nil {
		return view.Cart{}, err
	}

	s.logger.Debug("Item added to cart",
		zap.String("owner_id", ownerID),
		zap.Uint("menu_item_id", menuItemID),
		zap.Int("quantity", quantity))
	return view.FromCart(cart), nil
}

// AdjustQuantity changes a line's quantity by delta. A line whose quantity
// drops to zero or below is removed.
func (s *Service) AdjustQuantity(ctx context.Context, ownerID string, menuItemID uint, delta int) (view.Cart, error) {
	if delta == 0 {
		return view.Cart{}, apperrors.Validation("quantity change must not be zero")
	}

	cart, err := s.withCart(ctx, ownerID, false, func(tx *repository.Store, c *models.Cart) error {
		line := c.LineFor(menuItemID)
		if line == nil {
			return apperrors.NotFound("menu item is not in the cart")
		}

		if delta > MaxLineQuantity-line.Quantity {
			return errTooMany
		}
		if quantity := line.Quantity + delta; quantity > 0 {
			line.SetQuantity(quantity)
			if err := checkTotal(c); err != nil {
				return err
			}
			return tx.SaveCartLine(ctx, line)
		}
		if err := tx.DeleteCartLine(ctx, line.ID); err != nil {
			return err
		}
		c.Lines = removeLine(c.Lines, line.ID)
		return nil
	})
	if err != nil {
		return view.Cart{}, err
	}
	return view.FromCart(cart), nil
}

func (s *Service) Increment(ctx context.Context, ownerID string, menuItemID uint) (view.Cart, error) {
	return s.AdjustQuantity(ctx, ownerID, menuItemID, 1)
}

func (s *Service) Decrement(ctx context.Context, ownerID string, menuItemID uint) (view.Cart, error) {
	return s.AdjustQuantity(ctx, ownerID, menuItemID, -1)
}

// RemoveItem deletes a line by id. The line must belong to the owner's cart.
func (s *Service) RemoveItem(ctx context.Context, ownerID string, lineID uint) (view.Cart, error) {
	cart, err := s.withCart(ctx, ownerID, false, func(tx *repository.Store, c *models.Cart) error {
		for _, line := range c.Lines {
			if line.ID == lineID {
				if err := tx.DeleteCartLine(ctx, lineID); err != nil {
					return err
				}
				c.Lines = removeLine(c.Lines, lineID)
				return nil
			}
		}
		return apperrors.NotFound("cart line not found")
	})
	if err != nil {
		return view.Cart{}, err
	}
	return view.FromCart(cart), nil
}

// Snapshot returns the cart with a freshly computed total.
func (s *Service) Snapshot(ctx context.Context, ownerID string) (view.Cart, error) {
	cart, err := s.store.GetCart(ctx, ownerID, false)
	if errors.Is(err, repository.ErrNotFound) {
		return view.Cart{}, apperrors.NotFound("cart not found")
	}
	if err != nil {
		return view.Cart{}, err
	}
	return view.FromCart(cart), nil
}

// Clear empties the cart. Clearing a missing or empty cart succeeds.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	_, err := s.withCart(ctx, ownerID, false, func(tx *repository.Store, c *models.Cart) error {
		if len(c.Lines) == 0 {
			return nil
		}
		if err := tx.DeleteCartLines(ctx, c.ID); err != nil {
			return err
		}
		c.Lines = nil
		return nil
	})
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return nil
	}
	return err
}

func removeLine(lines []models.CartLine, id uint) []models.CartLine {
	out := lines[:0]
	for _, l := range lines {
		if l.ID != id {
			out = append(out, l)
		}
	}
	return out
}
