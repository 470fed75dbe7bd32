package billing

import (
	"context"
	"time"
)

// Provider defines the interface for payment refund processing.
// Implementations can use Stripe, PayPal, Square, etc.
type Provider interface {
	// RefundPayment refunds part or all of a completed payment.
	// Required when a committed order modification lowers the total.
	RefundPayment(ctx context.Context, params RefundParams) (*Refund, error)
}

// RefundParams contains parameters for refunding a payment.
type RefundParams struct {
	// TransactionID is the provider-side payment identifier
	// (e.g. a Stripe payment intent ID).
	TransactionID string

	// AmountCents is the amount to refund in minor units.
	AmountCents int64

	// Currency code (ISO 4217), e.g. "usd".
	Currency string

	// Reason is the operator-supplied justification, recorded with the
	// refund for audit.
	Reason string
}

// Refund represents a processed refund.
type Refund struct {
	ID          string
	AmountCents int64
	Currency    string
	Status      string
	CreatedAt   time.Time
}
