package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusInitialized    OrderStatus = "INITIALIZED"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// ParseOrderStatus validates a client-supplied status name.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderStatusInitialized, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled:
		return st, true
	}
	return "", false
}

// Order is the immutable snapshot of a cart at placement time plus the
// two lifecycle statuses. Items never change after creation.
type Order struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID       string          `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	PlacedAt      time.Time       `gorm:"not null;index" json:"placed_at"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	OrderStatus   OrderStatus     `gorm:"type:varchar(20);not null;index" json:"order_status"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(20);not null" json:"payment_status"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Payments      []Payment       `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT" json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	MenuItemID uint            `gorm:"not null" json:"menu_item_id"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price_at_order_time;type:decimal(10,2);not null" json:"unit_price"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
