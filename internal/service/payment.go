package service

import (
	"context"
	"fmt"
	"math"

	"storefront/internal/domain"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"go.uber.org/zap"
)

// PaymentProcessor charges an order and returns a provider reference.
// Implementations that cannot charge (no provider configured) return
// ok=false and the order stays pending for offline settlement.
type PaymentProcessor interface {
	Charge(ctx context.Context, order *domain.Order) (ref string, ok bool, err error)
}

// NoopPaymentProcessor is used when no Stripe keys are configured.
type NoopPaymentProcessor struct{}

func (NoopPaymentProcessor) Charge(ctx context.Context, order *domain.Order) (string, bool, error) {
	return "", false, nil
}

// StripePaymentProcessor charges orders through Stripe PaymentIntents.
type StripePaymentProcessor struct {
	logger *zap.Logger
}

// NewStripePaymentProcessor sets the Stripe API key and returns a
// processor. The key is process-global per the Stripe SDK's design.
func NewStripePaymentProcessor(secretKey string, logger *zap.Logger) *StripePaymentProcessor {
	stripe.Key = secretKey
	return &StripePaymentProcessor{logger: logger}
}

func (p *StripePaymentProcessor) Charge(ctx context.Context, order *domain.Order) (string, bool, error) {
	// Stripe amounts are in the smallest currency unit
	amount := int64(math.Round(order.TotalAmount * 100))

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_id", order.ID.String())
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", false, fmt.Errorf("failed to create payment intent: %w", err)
	}

	p.logger.Info("Payment intent created",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_intent_id", intent.ID),
	)

	return intent.ID, true, nil
}
