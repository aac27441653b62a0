package payment

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/InfiniteGosi/YolmaFoodApp/pkg/errors"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// StripeGateway creates Stripe payment intents.
type StripeGateway struct {
	client  *client.API
	timeout time.Duration
	logger  *zap.Logger
}

// NewStripeGateway builds a gateway. A nil backends uses Stripe's public API.
func NewStripeGateway(secretKey string, backends *stripe.Backends, timeout time.Duration, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{
		client:  client.New(secretKey, backends),
		timeout: timeout,
		logger:  logger.Named("stripe"),
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.client.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			g.logger.Warn("Stripe rejected payment intent",
				zap.String("type", string(stripeErr.Type)),
				zap.String("code", string(stripeErr.Code)),
				zap.Int("status", stripeErr.HTTPStatusCode))
		} else {
			g.logger.Warn("Stripe request failed", zap.Error(err))
		}
		return Intent{}, apperrors.Gateway("payment intent creation failed", err)
	}

	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
