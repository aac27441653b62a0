// Package view holds the read models returned to callers. Views are built
// by projection from the gorm entities and never share memory with them.
package view

import (
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
	"github.com/shopspring/decimal"
)

type CartLine struct {
	ID         uint            `json:"id"`
	MenuItemID uint            `json:"menu_item_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type Cart struct {
	OwnerID     string          `json:"owner_id"`
	Lines       []CartLine      `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type OrderItem struct {
	ID         uint            `json:"id"`
	OrderID    string          `json:"order_id"`
	MenuItemID uint            `json:"menu_item_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID            string               `json:"id"`
	OwnerID       string               `json:"owner_id"`
	PlacedAt      time.Time            `json:"placed_at"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	OrderStatus   models.OrderStatus   `json:"order_status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Items         []OrderItem          `json:"items"`
}

type Payment struct {
	ID            string                `json:"id"`
	OrderID       string                `json:"order_id"`
	Amount        decimal.Decimal       `json:"amount"`
	Gateway       models.PaymentGateway `json:"gateway"`
	TransactionID string                `json:"transaction_id"`
	PaymentStatus models.PaymentStatus  `json:"payment_status"`
	FailureReason string                `json:"failure_reason,omitempty"`
	PaidAt        time.Time             `json:"paid_at"`
}

type Profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Active  bool   `json:"active"`
}

// Page is one page of a most-recent-first listing.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func FromCart(c *models.Cart) Cart {
	lines := make([]CartLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, CartLine{
			ID:         l.ID,
			MenuItemID: l.MenuItemID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			Subtotal:   l.Subtotal,
		})
	}
	return Cart{OwnerID: c.OwnerID, Lines: lines, TotalAmount: c.Total()}
}

func FromOrderItem(i *models.OrderItem) OrderItem {
	return OrderItem{
		ID:         i.ID,
		OrderID:    i.OrderID,
		MenuItemID: i.MenuItemID,
		Quantity:   i.Quantity,
		UnitPrice:  i.UnitPrice,
		Subtotal:   i.Subtotal,
	}
}

func FromOrder(o *models.Order) Order {
	items := make([]OrderItem, 0, len(o.Items))
	for i := range o.Items {
		items = append(items, FromOrderItem(&o.Items[i]))
	}
	return Order{
		ID:            o.ID,
		OwnerID:       o.OwnerID,
		PlacedAt:      o.PlacedAt,
		TotalAmount:   o.TotalAmount,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		Items:         items,
	}
}

func FromOrders(orders []models.Order) []Order {
	out := make([]Order, 0, len(orders))
	for i := range orders {
		out = append(out, FromOrder(&orders[i]))
	}
	return out
}

func FromPayment(p *models.Payment) Payment {
	v := Payment{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Gateway:       p.Gateway,
		TransactionID: p.TransactionID,
		PaymentStatus: p.PaymentStatus,
		PaidAt:        p.PaidAt,
	}
	if p.FailureReason != nil {
		v.FailureReason = *p.FailureReason
	}
	return v
}

func FromPayments(payments []models.Payment) []Payment {
	out := make([]Payment, 0, len(payments))
	for i := range payments {
		out = append(out, FromPayment(&payments[i]))
	}
	return out
}

func FromUser(u *models.User) Profile {
	p := Profile{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Active: u.Active}
	if u.Address != nil {
		p.Address = *u.Address
	}
	return p
}

// PaymentIntent is what a customer's client needs to complete payment.
type PaymentIntent struct {
	OrderID      string          `json:"order_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	ClientSecret string          `json:"client_secret"`
}
