package tax

import (
	"context"
	"fmt"

	"github.com/dukerupert/vidar/internal/domain"
)

// MockRateProvider is a test implementation of RateProvider.
type MockRateProvider struct {
	// RateForFunc allows customizing rate resolution per test.
	RateForFunc func(ctx context.Context, category string, addr domain.Address) (float64, error)

	// DefaultRate is returned when RateForFunc is nil.
	DefaultRate float64

	// CallLog tracks method calls for test assertions.
	CallLog []string
}

// NewMockRateProvider creates a mock rate provider returning defaultRate.
func NewMockRateProvider(defaultRate float64) *MockRateProvider {
	return &MockRateProvider{DefaultRate: defaultRate}
}

// RateFor delegates to RateForFunc or returns DefaultRate.
func (m *MockRateProvider) RateFor(ctx context.Context, category string, addr domain.Address) (float64, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("RateFor(%s)", category))
	if m.RateForFunc != nil {
		return m.RateForFunc(ctx, category, addr)
	}
	return m.DefaultRate, nil
}
