package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/testkit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testkit.NewTestDB(t))
}

func TestGetOrCreateCartIsLazy(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetCart(ctx, "owner-1", false)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := store.GetOrCreateCart(ctx, "owner-1")
	require.NoError(t, err)
	second, err := store.GetOrCreateCart(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCartLinesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	cart, err := store.GetOrCreateCart(ctx, "owner-1")
	require.NoError(t, err)

	for _, id := range []uint{3, 1, 2} {
		line := &models.CartLine{CartID: cart.ID, MenuItemID: id, UnitPrice: decimal.RequireFromString("2.50")}
		line.SetQuantity(2)
		require.NoError(t, store.SaveCartLine(ctx, line))
	}

	cart, err = store.GetCart(ctx, "owner-1", false)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 3)
	assert.Equal(t, uint(3), cart.Lines[0].MenuItemID, "lines keep insertion order")
	assert.True(t, cart.Total().Equal(decimal.NewFromInt(15)))

	require.NoError(t, store.DeleteCartLine(ctx, cart.Lines[0].ID))
	cart, err = store.GetCart(ctx, "owner-1", false)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)

	require.NoError(t, store.DeleteCartLines(ctx, cart.ID))
	require.NoError(t, store.DeleteCartLines(ctx, cart.ID))
	cart, err = store.GetCart(ctx, "owner-1", false)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestTouchCartDoesNotRestoreDeletedLines(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	cart, err := store.GetOrCreateCart(ctx, "owner-1")
	require.NoError(t, err)
	line := &models.CartLine{CartID: cart.ID, MenuItemID: 4, UnitPrice: decimal.RequireFromString("1.00")}
	line.SetQuantity(1)
	require.NoError(t, store.SaveCartLine(ctx, line))

	cart, err = store.GetCart(ctx, "owner-1", false)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)

	require.NoError(t, store.DeleteCartLines(ctx, cart.ID))
	require.NoError(t, store.TouchCart(ctx, cart))

	cart, err = store.GetCart(ctx, "owner-1", false)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func newOrder(owner string, placedAt time.Time) *models.Order {
	id := uuid.NewString()
	return &models.Order{
		ID:            id,
		OwnerID:       owner,
		PlacedAt:      placedAt,
		TotalAmount:   decimal.RequireFromString("9.00"),
		OrderStatus:   models.OrderStatusInitialized,
		PaymentStatus: models.PaymentStatusPending,
		Items: []models.OrderItem{{
			MenuItemID: 1,
			Quantity:   3,
			UnitPrice:  decimal.RequireFromString("3.00"),
			Subtotal:   decimal.RequireFromString("9.00"),
		}},
	}
}

func TestCreateAndGetOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	order := newOrder("owner-1", time.Now().UTC())
	require.NoError(t, store.CreateOrder(ctx, order))

	got, err := store.GetOrder(ctx, order.ID, false)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, order.ID, got.Items[0].OrderID)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(9)))

	item, err := store.GetOrderItem(ctx, got.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	_, err = store.GetOrder(ctx, "missing", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOrderStatusIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	order := newOrder("owner-1", time.Now().UTC())
	require.NoError(t, store.CreateOrder(ctx, order))

	change := StatusChange{
		FromOrder:   models.OrderStatusInitialized,
		FromPayment: models.PaymentStatusPending,
		ToOrder:     models.OrderStatusConfirmed,
		ToPayment:   models.PaymentStatusCompleted,
	}
	require.NoError(t, store.UpdateOrderStatus(ctx, order.ID, change))
	assert.ErrorIs(t, store.UpdateOrderStatus(ctx, order.ID, change), ErrConflict)

	got, err := store.GetOrder(ctx, order.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, got.OrderStatus)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
}

func TestListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		o := newOrder("owner-"+string(rune('a'+i%2)), base.Add(time.Duration(i)*time.Minute))
		if i == 4 {
			o.OrderStatus = models.OrderStatusCancelled
		}
		require.NoError(t, store.CreateOrder(ctx, o))
		ids = append(ids, o.ID)
	}

	page, total, err := store.ListOrders(ctx, OrderFilter{Offset: 0, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	status := models.OrderStatusCancelled
	page, total, err = store.ListOrders(ctx, OrderFilter{Status: &status, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, ids[4], page[0].ID)

	owned, err := store.ListOrdersByOwner(ctx, "owner-a")
	require.NoError(t, err)
	assert.Len(t, owned, 3)

	n, err := store.CountDistinctOwners(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestPaymentsByTransactionID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	order := newOrder("owner-1", time.Now().UTC())
	require.NoError(t, store.CreateOrder(ctx, order))

	p := &models.Payment{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		Amount:        order.TotalAmount,
		Gateway:       models.PaymentGatewayStripe,
		TransactionID: "pi_123",
		PaymentStatus: models.PaymentStatusCompleted,
		PaidAt:        time.Now().UTC(),
	}
	require.NoError(t, store.CreatePayment(ctx, p))

	got, err := store.GetPaymentByTransactionID(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	dup := *p
	dup.ID = uuid.NewString()
	assert.Error(t, store.CreatePayment(ctx, &dup))

	list, total, err := store.ListPayments(ctx, PaymentFilter{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)

	byOrder, err := store.ListOrderPayments(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, byOrder, 1)
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	boom := errors.New("boom")

	order := newOrder("owner-1", time.Now().UTC())
	err := store.Transaction(ctx, func(tx *Store) error {
		require.NoError(t, tx.CreateOrder(ctx, order))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetOrder(ctx, order.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivateUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	u := &models.User{ID: uuid.NewString(), Name: "Ada", Email: "ada@example.com", Active: true}
	require.NoError(t, store.CreateUser(ctx, u))

	require.NoError(t, store.DeactivateUser(ctx, u.ID))
	assert.ErrorIs(t, store.DeactivateUser(ctx, u.ID), ErrConflict)

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}
