package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart holds one customer's mutable line items. One cart per owner.
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	OwnerID   string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"owner_id"`
	Lines     []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

// Total sums the line subtotals. It is always recomputed from the lines.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Subtotal)
	}
	return total
}

// LineFor returns the line holding menuItemID, or nil.
func (c *Cart) LineFor(menuItemID uint) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].MenuItemID == menuItemID {
			return &c.Lines[i]
		}
	}
	return nil
}

type CartLine struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CartID     uint            `gorm:"not null;uniqueIndex:idx_cart_line_item" json:"cart_id"`
	MenuItemID uint            `gorm:"not null;uniqueIndex:idx_cart_line_item" json:"menu_item_id"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (CartLine) TableName() string {
	return "cart_lines"
}

// SetQuantity updates the quantity and recomputes the subtotal from the
// unit price captured when the line was created.
func (l *CartLine) SetQuantity(quantity int) {
	l.Quantity = quantity
	l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
