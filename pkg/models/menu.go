package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is the catalog row consulted for prices. Catalog management
// lives elsewhere; this service only reads it.
type MenuItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(100);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (MenuItem) TableName() string {
	return "menu_items"
}
