package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the customer record the lifecycle engine reads for delivery and
// notification details. Identity itself is owned by the auth service.
type User struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string         `gorm:"type:varchar(100);not null" json:"name"`
	Email     string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Phone     string         `gorm:"type:varchar(20)" json:"phone"`
	Address   *string        `gorm:"type:varchar(255)" json:"address"`
	Active    bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// HasDeliveryAddress reports whether the user can receive a delivery.
func (u *User) HasDeliveryAddress() bool {
	return u.Address != nil && *u.Address != ""
}
