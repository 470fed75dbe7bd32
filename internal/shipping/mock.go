package shipping

import (
	"context"
	"fmt"
)

// MockProvider is a test implementation of Provider.
type MockProvider struct {
	// QuoteFunc allows customizing quote behavior per test.
	QuoteFunc func(ctx context.Context, params QuoteParams) (*Quote, error)

	// FixedCost is quoted when QuoteFunc is nil.
	FixedCost int64

	// CallLog tracks method calls for test assertions.
	CallLog []string
}

// NewMockProvider creates a mock shipping provider quoting fixedCost.
func NewMockProvider(fixedCost int64) *MockProvider {
	return &MockProvider{FixedCost: fixedCost}
}

// Quote delegates to QuoteFunc or returns the fixed cost.
func (m *MockProvider) Quote(ctx context.Context, params QuoteParams) (*Quote, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("Quote(qty=%d, subtotal=%d)", params.TotalQuantity, params.SubTotal))
	if m.QuoteFunc != nil {
		return m.QuoteFunc(ctx, params)
	}
	return &Quote{ServiceName: "Mock Shipping", ServiceCode: "mock", Cost: m.FixedCost}, nil
}
