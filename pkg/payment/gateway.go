// Package payment adapts the external payment processor: outbound intent
// creation and inbound outcome callbacks.
package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Intent is a created payment intent. ClientSecret is handed to the
// customer's client to complete the payment.
type Intent struct {
	ID           string
	ClientSecret string
}

type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Intent, error)
}

// ToMinorUnits converts a major-unit amount (e.g. 12.50) into minor units
// (1250). Amounts with sub-cent precision are rejected.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than two decimal places", amount)
	}
	if !minor.IsPositive() {
		return 0, fmt.Errorf("amount %s must be positive", amount)
	}
	return minor.IntPart(), nil
}
