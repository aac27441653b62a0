package order

import (
	"context"
	"errors"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/cart"
	apperrors "github.com/InfiniteGosi/YolmaFoodApp/pkg/errors"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/lock"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/notification"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/repository"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/view"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Builder turns a customer's cart into an immutable order.
type Builder struct {
	store     *repository.Store
	locker    lock.Locker
	composer  *notification.Composer
	publisher notification.Publisher
	auditor   *Auditor
	logger    *zap.Logger
	now       func() time.Time
}

func NewBuilder(store *repository.Store, locker lock.Locker, composer *notification.Composer, publisher notification.Publisher, auditor *Auditor, logger *zap.Logger) *Builder {
	return &Builder{
		store:     store,
		locker:    locker,
		composer:  composer,
		publisher: publisher,
		auditor:   auditor,
		logger:    logger.Named("order-builder"),
		now:       time.Now,
	}
}

// PlaceOrder snapshots the owner's cart into a new order and empties the
// cart in the same transaction. The order-placed notification is sent
// after commit without waiting for delivery.
func (b *Builder) PlaceOrder(ctx context.Context, ownerID string) (view.Order, error) {
	user, err := b.store.GetUser(ctx, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return view.Order{}, apperrors.NotFound("customer not found")
	}
	if err != nil {
		return view.Order{}, err
	}
	if !user.HasDeliveryAddress() {
		return view.Order{}, apperrors.Validation("a delivery address is required to place an order")
	}

	release, err := b.locker.Lock(ctx, cart.LockKey(ownerID))
	if err != nil {
		return view.Order{}, apperrors.Unavailable("cart is busy", err)
	}
	defer release()

	var order *models.Order
	err = b.store.Transaction(ctx, func(tx *repository.Store) error {
		c, err := tx.GetCart(ctx, ownerID, true)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.EmptyCart("cart is empty")
		}
		if err != nil {
			return err
		}
		if len(c.Lines) == 0 {
			return apperrors.EmptyCart("cart is empty")
		}

		order = snapshot(c, b.now())
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.DeleteCartLines(ctx, c.ID); err != nil {
			return err
		}
		c.Lines = nil
		return tx.TouchCart(ctx, c)
	})
	if err != nil {
		return view.Order{}, err
	}

	b.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("owner_id", ownerID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)))

	b.auditor.Record(ActionOrderPlaced, order.ID, ownerID, bson.M{
		"total_amount": order.TotalAmount.StringFixed(2),
		"items":        len(order.Items),
	})

	msg, err := b.composer.OrderPlaced(user, order)
	if err != nil {
		b.logger.Error("Failed to compose order notification", zap.String("order_id", order.ID), zap.Error(err))
	} else {
		b.publisher.Publish(msg)
	}

	return view.FromOrder(order), nil
}

// snapshot copies cart lines by value; the catalog is not consulted.
func snapshot(c *models.Cart, placedAt time.Time) *models.Order {
	order := &models.Order{
		ID:            uuid.NewString(),
		OwnerID:       c.OwnerID,
		PlacedAt:      placedAt.UTC(),
		OrderStatus:   models.OrderStatusInitialized,
		PaymentStatus: models.PaymentStatusPending,
		Items:         make([]models.OrderItem, 0, len(c.Lines)),
	}
	total := decimal.Zero
	for _, line := range c.Lines {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:    order.ID,
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Subtotal:   line.Subtotal,
		})
		total = total.Add(line.Subtotal)
	}
	order.TotalAmount = total
	return order
}
