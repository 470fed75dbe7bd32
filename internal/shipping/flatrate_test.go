package shipping_test

import (
	"context"
	"testing"

	"github.com/dukerupert/vidar/internal/shipping"
	"github.com/stretchr/testify/assert"
)

func Test_FlatRateProvider_Quote(t *testing.T) {
	tests := []struct {
		name         string
		quantity     int
		subTotal     int64
		expectedCost int64
		explanation  string
	}{
		{
			name:         "standard order",
			quantity:     3,
			subTotal:     4500,
			expectedCost: 500,
			explanation:  "below threshold pays the flat rate",
		},
		{
			name:         "free above threshold",
			quantity:     2,
			subTotal:     10000,
			expectedCost: 0,
			explanation:  "subtotal at threshold ships free",
		},
		{
			name:         "empty shipment",
			quantity:     0,
			subTotal:     0,
			expectedCost: 0,
			explanation:  "nothing to ship costs nothing",
		},
	}

	p := shipping.NewFlatRateProvider("Standard", 500, 10000)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := p.Quote(context.Background(), shipping.QuoteParams{
				TotalQuantity: tt.quantity,
				SubTotal:      tt.subTotal,
			})

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedCost, quote.Cost, tt.explanation)
		})
	}
}

func Test_FlatRateProvider_NoThreshold(t *testing.T) {
	p := shipping.NewFlatRateProvider("Standard", 500, 0)

	quote, err := p.Quote(context.Background(), shipping.QuoteParams{
		TotalQuantity: 1,
		SubTotal:      1000000,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(500), quote.Cost, "threshold of zero never grants free shipping")
}
