package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/InfiniteGosi/YolmaFoodApp/pkg/errors"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/notification"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/payment"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/repository"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/view"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	auditTrailLimit = 100

	// staleReadWindow covers a cache fill that read the row before a
	// writer committed and lands after the writer's first invalidation.
	staleReadWindow = 500 * time.Millisecond
)

// errLostRace aborts a transaction whose compare-and-swap found the order
// already changed by a concurrent writer.
var errLostRace = errors.New("order changed concurrently")

// OrderCache is satisfied by repository.RedisRepository.
type OrderCache interface {
	CacheOrder(ctx context.Context, order *view.Order) error
	GetCachedOrder(ctx context.Context, orderID string) (*view.Order, error)
	InvalidateOrder(ctx context.Context, orderID string) error
}

// Caller identifies who is asking. Admins may read any order.
type Caller struct {
	ID    string
	Admin bool
}

func (c Caller) canRead(ownerID string) bool {
	return c.Admin || c.ID == ownerID
}

// OutcomeResult reports what RecordPaymentOutcome did. Applied is false
// when the callback was a replay or otherwise left the order unchanged.
type OutcomeResult struct {
	Applied bool          `json:"applied"`
	Order   view.Order    `json:"order"`
	Payment *view.Payment `json:"payment,omitempty"`
}

// Coordinator owns every order and payment status transition.
type Coordinator struct {
	store     *repository.Store
	cache     OrderCache
	gateway   payment.Gateway
	currency  string
	composer  *notification.Composer
	publisher notification.Publisher
	auditor   *Auditor
	logger    *zap.Logger
	group     singleflight.Group
	now       func() time.Time

	reinvalidateAfter time.Duration
}

// NewCoordinator wires a coordinator. cache may be nil.
func NewCoordinator(store *repository.Store, cache OrderCache, gateway payment.Gateway, currency string,
	composer *notification.Composer, publisher notification.Publisher, auditor *Auditor, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		cache:     cache,
		gateway:   gateway,
		currency:  currency,
		composer:  composer,
		publisher: publisher,
		auditor:   auditor,
		logger:    logger.Named("coordinator"),
		now:       time.Now,

		reinvalidateAfter: staleReadWindow,
	}
}

// InitiatePayment asks the gateway for a payment intent covering the whole
// order. Nothing is persisted until the gateway reports an outcome.
func (c *Coordinator) InitiatePayment(ctx context.Context, callerID, orderID string, amount decimal.Decimal) (view.PaymentIntent, error) {
	order, err := c.store.GetOrder(ctx, orderID, false)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && order.OwnerID != callerID) {
		return view.PaymentIntent{}, apperrors.NotFound("order not found")
	}
	if err != nil {
		return view.PaymentIntent{}, err
	}

	switch {
	case order.PaymentStatus == models.PaymentStatusCompleted:
		return view.PaymentIntent{}, apperrors.AlreadyPaid("order is already paid")
	case order.OrderStatus != models.OrderStatusInitialized:
		return view.PaymentIntent{}, apperrors.InvalidTransition(fmt.Sprintf("order in status %s cannot be paid", order.OrderStatus))
	case !amount.Equal(order.TotalAmount):
		return view.PaymentIntent{}, apperrors.Validation("amount does not match the order total")
	}

	minor, err := payment.ToMinorUnits(amount)
	if err != nil {
		return view.PaymentIntent{}, apperrors.Wrap(apperrors.CodeValidation, "amount cannot be charged", err)
	}

	intent, err := c.gateway.CreateIntent(ctx, minor, c.currency, map[string]string{
		"order_id": order.ID,
		"owner_id": order.OwnerID,
	})
	if err != nil {
		c.logger.Warn("Payment intent failed", zap.String("order_id", order.ID), zap.Error(err))
		if apperrors.GetCode(err) == apperrors.CodeInternal {
			err = apperrors.Gateway("payment intent creation failed", err)
		}
		return view.PaymentIntent{}, err
	}

	c.logger.Info("Payment intent created", zap.String("order_id", order.ID), zap.String("intent_id", intent.ID))
	return view.PaymentIntent{
		OrderID:      order.ID,
		Amount:       order.TotalAmount,
		Currency:     c.currency,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// RecordPaymentOutcome applies a verified gateway callback. Replays of a
// transaction id and callbacks for an already paid order are no-ops.
func (c *Coordinator) RecordPaymentOutcome(ctx context.Context, out payment.Outcome) (OutcomeResult, error) {
	var (
		result   OutcomeResult
		order    *models.Order
		recorded *models.Payment
	)
	err := c.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		order, err = tx.GetOrder(ctx, out.OrderID, true)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("order not found")
		}
		if err != nil {
			return err
		}
		result.Order = view.FromOrder(order)

		if !out.Amount.Equal(order.TotalAmount) {
			return apperrors.Validation("amount does not match the order total")
		}
		if order.PaymentStatus == models.PaymentStatusCompleted {
			return nil
		}

		existing, err := tx.GetPaymentByTransactionID(ctx, out.TransactionID)
		switch {
		case err == nil && existing.OrderID != order.ID:
			return apperrors.Validation("transaction belongs to another order")
		case err == nil:
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		// Only a pending, initialized order can still change status.
		open := order.OrderStatus == models.OrderStatusInitialized && order.PaymentStatus == models.PaymentStatusPending
		if out.Success && !open {
			return apperrors.InvalidTransition(fmt.Sprintf("order in status %s cannot accept a payment", order.OrderStatus))
		}

		recorded = &models.Payment{
			ID:            uuid.NewString(),
			OrderID:       order.ID,
			Amount:        out.Amount,
			Gateway:       models.PaymentGatewayStripe,
			TransactionID: out.TransactionID,
			PaymentStatus: models.PaymentStatusCompleted,
			PaidAt:        c.now().UTC(),
		}
		if !out.Success {
			reason := out.FailureReason
			recorded.PaymentStatus = models.PaymentStatusFailed
			recorded.FailureReason = &reason
		}
		if err := tx.CreatePayment(ctx, recorded); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errLostRace
			}
			return err
		}
		pv := view.FromPayment(recorded)
		result.Payment = &pv

		if !open {
			// A further failed attempt on a closed order is kept for audit only.
			return nil
		}

		change := repository.StatusChange{
			FromOrder:   order.OrderStatus,
			FromPayment: order.PaymentStatus,
			ToOrder:     models.OrderStatusConfirmed,
			ToPayment:   models.PaymentStatusCompleted,
		}
		if !out.Success {
			change.ToOrder = models.OrderStatusCancelled
			change.ToPayment = models.PaymentStatusFailed
		}
		if err := tx.UpdateOrderStatus(ctx, order.ID, change); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errLostRace
			}
			return err
		}
		order.OrderStatus = change.ToOrder
		order.PaymentStatus = change.ToPayment
		result.Order = view.FromOrder(order)
		result.Applied = true
		return nil
	})
	if errors.Is(err, errLostRace) {
		current, err := c.store.GetOrder(ctx, out.OrderID, false)
		if err != nil {
			return OutcomeResult{}, err
		}
		c.logger.Info("Concurrent payment callback already applied", zap.String("order_id", out.OrderID))
		return OutcomeResult{Order: view.FromOrder(current)}, nil
	}
	if err != nil {
		return OutcomeResult{}, err
	}

	if result.Payment != nil {
		c.invalidate(ctx, order.ID)
		c.auditor.Record(ActionPaymentRecorded, order.ID, "", bson.M{
			"transaction_id": out.TransactionID,
			"success":        out.Success,
			"applied":        result.Applied,
			"order_status":   string(order.OrderStatus),
			"payment_status": string(order.PaymentStatus),
		})
	}
	if !result.Applied {
		c.logger.Info("Payment outcome left order unchanged",
			zap.String("order_id", out.OrderID),
			zap.String("transaction_id", out.TransactionID))
		return result, nil
	}

	c.logger.Info("Payment outcome applied",
		zap.String("order_id", order.ID),
		zap.String("transaction_id", out.TransactionID),
		zap.String("payment_status", string(order.PaymentStatus)))
	c.notifyOutcome(ctx, order, recorded)
	return result, nil
}

func (c *Coordinator) notifyOutcome(ctx context.Context, order *models.Order, p *models.Payment) {
	user, err := c.store.GetUser(ctx, order.OwnerID)
	if err != nil {
		c.logger.Error("Failed to load customer for notification", zap.String("order_id", order.ID), zap.Error(err))
		return
	}

	var msg notification.Message
	if p.PaymentStatus == models.PaymentStatusCompleted {
		msg, err = c.composer.PaymentSucceeded(user, order, p)
	} else {
		msg, err = c.composer.PaymentFailed(user, order, p)
	}
	if err != nil {
		c.logger.Error("Failed to compose payment notification", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	c.publisher.Publish(msg)
}

// AdvanceOrderStatus moves an order one step along its lifecycle or cancels
// it. CONFIRMED is reachable only through a successful payment.
func (c *Coordinator) AdvanceOrderStatus(ctx context.Context, actorID, orderID string, next models.OrderStatus) (view.Order, error) {
	if next == models.OrderStatusConfirmed {
		return view.Order{}, apperrors.InvalidTransition("orders are confirmed by payment only")
	}

	var (
		order *models.Order
		from  models.OrderStatus
	)
	err := c.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID, true)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("order not found")
		}
		if err != nil {
			return err
		}

		from = order.OrderStatus
		if !CanTransition(from, next) {
			return apperrors.InvalidTransition(fmt.Sprintf("cannot move order from %s to %s", from, next))
		}

		err = tx.UpdateOrderStatus(ctx, orderID, repository.StatusChange{
			FromOrder:   from,
			FromPayment: order.PaymentStatus,
			ToOrder:     next,
			ToPayment:   order.PaymentStatus,
		})
		if errors.Is(err, repository.ErrConflict) {
			return apperrors.InvalidTransition("order was modified concurrently")
		}
		if err != nil {
			return err
		}
		order.OrderStatus = next
		return nil
	})
	if err != nil {
		return view.Order{}, err
	}

	c.invalidate(ctx, orderID)
	c.auditor.Record(ActionStatusChanged, orderID, actorID, bson.M{
		"from": string(from),
		"to":   string(next),
	})
	c.logger.Info("Order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(next)))
	return view.FromOrder(order), nil
}

func normalizePage(page, pageSize int) (int, int, error) {
	if page < 0 || pageSize < 0 {
		return 0, 0, apperrors.Validation("page and page size must not be negative")
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize, nil
}

// ListOrders pages through all orders, newest first. page is 1-based.
func (c *Coordinator) ListOrders(ctx context.Context, status *models.OrderStatus, page, pageSize int) (view.Page[view.Order], error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return view.Page[view.Order]{}, err
	}

	orders, total, err := c.store.ListOrders(ctx, repository.OrderFilter{
		Status: status,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		return view.Page[view.Order]{}, err
	}
	return view.Page[view.Order]{Items: view.FromOrders(orders), Total: total, Page: page, PageSize: pageSize}, nil
}

// GetOrder reads an order through the cache. Concurrent misses for one id
// share a single database read.
func (c *Coordinator) GetOrder(ctx context.Context, caller Caller, orderID string) (view.Order, error) {
	if c.cache != nil {
		cached, err := c.cache.GetCachedOrder(ctx, orderID)
		if err == nil {
			if !caller.canRead(cached.OwnerID) {
				return view.Order{}, apperrors.NotFound("order not found")
			}
			return *cached, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			c.logger.Warn("Order cache read failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	v, err, _ := c.group.Do(orderID, func() (interface{}, error) {
		o, err := c.store.GetOrder(ctx, orderID, false)
		if err != nil {
			return nil, err
		}
		ov := view.FromOrder(o)
		if c.cache != nil {
			if err := c.cache.CacheOrder(ctx, &ov); err != nil {
				c.logger.Warn("Order cache write failed", zap.String("order_id", orderID), zap.Error(err))
			}
		}
		return ov, nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return view.Order{}, apperrors.NotFound("order not found")
	}
	if err != nil {
		return view.Order{}, err
	}

	ov := v.(view.Order)
	if !caller.canRead(ov.OwnerID) {
		return view.Order{}, apperrors.NotFound("order not found")
	}
	// Items is shared between singleflight waiters.
	ov.Items = append([]view.OrderItem(nil), ov.Items...)
	return ov, nil
}

// ListCustomerOrders returns the owner's orders, newest first.
func (c *Coordinator) ListCustomerOrders(ctx context.Context, ownerID string) ([]view.Order, error) {
	orders, err := c.store.ListOrdersByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return view.FromOrders(orders), nil
}

func (c *Coordinator) GetOrderItem(ctx context.Context, caller Caller, itemID uint) (view.OrderItem, error) {
	item, err := c.store.GetOrderItem(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return view.OrderItem{}, apperrors.NotFound("order item not found")
	}
	if err != nil {
		return view.OrderItem{}, err
	}
	if !caller.Admin {
		order, err := c.store.GetOrder(ctx, item.OrderID, false)
		if err != nil {
			return view.OrderItem{}, err
		}
		if order.OwnerID != caller.ID {
			return view.OrderItem{}, apperrors.NotFound("order item not found")
		}
	}
	return view.FromOrderItem(item), nil
}

// CountUniqueCustomers counts customers with at least one order.
func (c *Coordinator) CountUniqueCustomers(ctx context.Context) (int64, error) {
	return c.store.CountDistinctOwners(ctx)
}

func (c *Coordinator) ListPayments(ctx context.Context, status *models.PaymentStatus, page, pageSize int) (view.Page[view.Payment], error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return view.Page[view.Payment]{}, err
	}

	payments, total, err := c.store.ListPayments(ctx, repository.PaymentFilter{
		Status: status,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		return view.Page[view.Payment]{}, err
	}
	return view.Page[view.Payment]{Items: view.FromPayments(payments), Total: total, Page: page, PageSize: pageSize}, nil
}

func (c *Coordinator) GetPayment(ctx context.Context, paymentID string) (view.Payment, error) {
	p, err := c.store.GetPayment(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return view.Payment{}, apperrors.NotFound("payment not found")
	}
	if err != nil {
		return view.Payment{}, err
	}
	return view.FromPayment(p), nil
}

// OrderPayments lists every recorded attempt for an order, oldest first.
func (c *Coordinator) OrderPayments(ctx context.Context, orderID string) ([]view.Payment, error) {
	if _, err := c.GetOrder(ctx, Caller{Admin: true}, orderID); err != nil {
		return nil, err
	}
	payments, err := c.store.ListOrderPayments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return view.FromPayments(payments), nil
}

// AuditTrail returns the recorded lifecycle events of an order.
func (c *Coordinator) AuditTrail(ctx context.Context, orderID string) ([]*repository.AuditLog, error) {
	if _, err := c.GetOrder(ctx, Caller{Admin: true}, orderID); err != nil {
		return nil, err
	}
	return c.auditor.Trail(ctx, orderID, auditTrailLimit)
}

// invalidate drops the cached view now and once more after
// reinvalidateAfter, evicting a concurrent GetOrder fill that read the row
// before this write committed.
func (c *Coordinator) invalidate(ctx context.Context, orderID string) {
	if c.cache == nil {
		return
	}
	c.evict(ctx, orderID)
	time.AfterFunc(c.reinvalidateAfter, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		c.evict(ctx, orderID)
	})
}

func (c *Coordinator) evict(ctx context.Context, orderID string) {
	if err := c.cache.InvalidateOrder(ctx, orderID); err != nil {
		c.logger.Warn("Order cache invalidation failed", zap.String("order_id", orderID), zap.Error(err))
	}
}
