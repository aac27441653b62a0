package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// ParsePaymentStatus validates a client-supplied status name.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch st := PaymentStatus(s); st {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return st, true
	}
	return "", false
}

type PaymentGateway string

const PaymentGatewayStripe PaymentGateway = "STRIPE"

// Payment is one recorded gateway outcome. Payments form an audit trail and
// are never deleted with their order.
type Payment struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID       string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Gateway       PaymentGateway  `gorm:"type:varchar(20);not null" json:"gateway"`
	TransactionID string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"transaction_id"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	FailureReason *string         `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`
	PaidAt        time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}
