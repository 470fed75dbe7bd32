package tax

import (
	"context"

	"github.com/dukerupert/vidar/internal/domain"
)

// FixedRateProvider applies configured rates per category, ignoring the
// destination address. Suitable for single-jurisdiction deployments.
type FixedRateProvider struct {
	standardRate float64
	shippingRate float64
}

// NewFixedRateProvider creates a fixed-rate tax provider. Rates are
// expressed as percentages, e.g. 8.5 for 8.5%.
func NewFixedRateProvider(standardRate, shippingRate float64) RateProvider {
	return &FixedRateProvider{standardRate: standardRate, shippingRate: shippingRate}
}

// RateFor returns the configured rate for the category regardless of address.
func (p *FixedRateProvider) RateFor(_ context.Context, category string, _ domain.Address) (float64, error) {
	if category == CategoryShipping {
		return p.shippingRate, nil
	}
	return p.standardRate, nil
}
