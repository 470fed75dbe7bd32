package tax

import (
	"context"

	"github.com/dukerupert/vidar/internal/domain"
)

// RateProvider resolves the applicable tax rate for a charge.
// Implementations: FixedRateProvider, MockRateProvider.
type RateProvider interface {
	// RateFor returns the tax rate percent (e.g. 20 for 20%) for a tax
	// category shipped to the given address.
	RateFor(ctx context.Context, category string, addr domain.Address) (float64, error)
}

// Tax categories used by the modification engine.
const (
	CategoryStandard = "standard"
	CategoryShipping = "shipping"
)
