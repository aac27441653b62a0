package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
)

// CreateOrder inserts the order together with its items.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order: %w", translate(err))
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string, lock bool) (*models.Order, error) {
	var order models.Order
	err := s.query(ctx, lock).
		Preload("Items", byID).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// StatusChange is a compare-and-swap on the two lifecycle statuses.
type StatusChange struct {
	FromOrder   models.OrderStatus
	FromPayment models.PaymentStatus
	ToOrder     models.OrderStatus
	ToPayment   models.PaymentStatus
}

// UpdateOrderStatus applies change only if the row still holds the From
// statuses. It returns ErrConflict when another writer got there first.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, change StatusChange) error {
	res := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status = ? AND payment_status = ?", id, change.FromOrder, change.FromPayment).
		Updates(map[string]interface{}{
			"order_status":   change.ToOrder,
			"payment_status": change.ToPayment,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// OrderFilter narrows ListOrders. A nil Status lists every order.
type OrderFilter struct {
	Status *models.OrderStatus
	Offset int
	Limit  int
}

// ListOrders returns one page of orders, newest first with id as the
// tie-breaker, plus the total number of matching orders.
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if f.Status != nil {
		query = query.Where("order_status = ?", *f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var orders []models.Order
	err := query.
		Preload("Items", byID).
		Order("placed_at DESC").Order("id DESC").
		Offset(f.Offset).Limit(f.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (s *Store) ListOrdersByOwner(ctx context.Context, ownerID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", byID).
		Where("owner_id = ?", ownerID).
		Order("placed_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders of owner: %w", err)
	}
	return orders, nil
}

func (s *Store) GetOrderItem(ctx context.Context, id uint) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// CountDistinctOwners counts customers that have placed at least one order.
func (s *Store) CountDistinctOwners(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).Distinct("owner_id").Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}
