package billing

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/refund"
)

// StripeProvider implements Provider using the Stripe API.
type StripeProvider struct{}

// NewStripeProvider creates a Stripe-backed billing provider.
// secretKey is the Stripe secret API key.
func NewStripeProvider(secretKey string) Provider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

// RefundPayment refunds a Stripe payment intent.
func (s *StripeProvider) RefundPayment(ctx context.Context, params RefundParams) (*Refund, error) {
	refundParams := &stripe.RefundParams{
		PaymentIntent: stripe.String(params.TransactionID),
		Amount:        stripe.Int64(params.AmountCents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	refundParams.Context = ctx
	// Stripe's reason field is an enum; the operator's free-form reason
	// travels in metadata for audit.
	refundParams.AddMetadata("reason", params.Reason)

	r, err := refund.New(refundParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe refund for %s: %w", params.TransactionID, err)
	}

	return &Refund{
		ID:          r.ID,
		AmountCents: r.Amount,
		Currency:    string(r.Currency),
		Status:      string(r.Status),
		CreatedAt:   timeFromUnix(r.Created),
	}, nil
}
