package shipping

import (
	"context"

	"github.com/dukerupert/vidar/internal/domain"
)

// Provider quotes shipping cost for an order's current line set.
// Implementations: FlatRateProvider, MockProvider.
type Provider interface {
	// Quote returns the net shipping cost for the given shipment.
	Quote(ctx context.Context, params QuoteParams) (*Quote, error)
}

// QuoteParams describes the shipment to price.
type QuoteParams struct {
	DestinationAddress domain.Address

	// TotalQuantity is the unit count across all order lines.
	TotalQuantity int

	// SubTotal is the net merchandise value in minor units.
	SubTotal int64
}

// Quote is a priced shipping option.
type Quote struct {
	ServiceName string
	ServiceCode string

	// Cost is net, in minor units. Tax is applied by the caller.
	Cost int64
}
