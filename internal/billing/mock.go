package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeFromUnix converts a Stripe epoch-seconds timestamp.
func timeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// MockProvider is a mock billing provider for testing.
// Simulates refund flows without calling the Stripe API.
type MockProvider struct {
	// RefundPaymentFunc allows customizing refund behavior per test.
	RefundPaymentFunc func(ctx context.Context, params RefundParams) (*Refund, error)

	// Refunds stores processed refunds keyed by refund ID.
	Refunds map[string]*Refund

	// CallLog tracks method calls for test assertions.
	CallLog []string
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Refunds: make(map[string]*Refund),
		CallLog: []string{},
	}
}

// RefundPayment records a successful mock refund.
func (m *MockProvider) RefundPayment(ctx context.Context, params RefundParams) (*Refund, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("RefundPayment(%s, %d)", params.TransactionID, params.AmountCents))

	if m.RefundPaymentFunc != nil {
		return m.RefundPaymentFunc(ctx, params)
	}

	r := &Refund{
		ID:          "re_" + uuid.New().String(),
		AmountCents: params.AmountCents,
		Currency:    params.Currency,
		Status:      "succeeded",
		CreatedAt:   time.Now().UTC(),
	}
	m.Refunds[r.ID] = r
	return r, nil
}
