package shipping

import (
	"context"
)

// FlatRateProvider returns a predefined flat-rate quote, optionally free
// above a spend threshold. Used when carrier integration is not needed.
type FlatRateProvider struct {
	serviceName       string
	costCents         int64
	freeAboveSubTotal int64
}

// NewFlatRateProvider creates a flat-rate shipping provider.
// freeAboveSubTotal of zero disables the free-shipping threshold.
func NewFlatRateProvider(serviceName string, costCents, freeAboveSubTotal int64) Provider {
	return &FlatRateProvider{
		serviceName:       serviceName,
		costCents:         costCents,
		freeAboveSubTotal: freeAboveSubTotal,
	}
}

// Quote returns the flat rate, or zero when the subtotal clears the
// free-shipping threshold.
func (p *FlatRateProvider) Quote(_ context.Context, params QuoteParams) (*Quote, error) {
	if params.TotalQuantity <= 0 {
		return &Quote{ServiceName: p.serviceName, ServiceCode: "flat", Cost: 0}, nil
	}

	cost := p.costCents
	if p.freeAboveSubTotal > 0 && params.SubTotal >= p.freeAboveSubTotal {
		cost = 0
	}

	return &Quote{
		ServiceName: p.serviceName,
		ServiceCode: "flat",
		Cost:        cost,
	}, nil
}
