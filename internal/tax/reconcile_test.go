package tax_test

import (
	"context"
	"testing"

	"github.com/dukerupert/vidar/internal/domain"
	"github.com/dukerupert/vidar/internal/tax"
	"github.com/stretchr/testify/assert"
)

func Test_Reconcile_TaxExclusive(t *testing.T) {
	tests := []struct {
		name          string
		price         int64
		rate          float64
		expectedNet   int64
		expectedGross int64
		explanation   string
	}{
		{
			name:          "zero rate",
			price:         1000,
			rate:          0,
			expectedNet:   1000,
			expectedGross: 1000,
			explanation:   "0% tax leaves net and gross equal",
		},
		{
			name:          "ten percent",
			price:         500,
			rate:          10,
			expectedNet:   500,
			expectedGross: 550,
			explanation:   "500 * 1.10 = 550",
		},
		{
			name:          "twenty percent",
			price:         1234,
			rate:          20,
			expectedNet:   1234,
			expectedGross: 1481,
			explanation:   "1234 * 1.20 = 1480.8, rounds to 1481",
		},
		{
			name:          "rounds half up",
			price:         50,
			rate:          5,
			expectedNet:   50,
			expectedGross: 53,
			explanation:   "50 * 1.05 = 52.5, rounds half-up to 53",
		},
		{
			name:          "fractional rate",
			price:         4723,
			rate:          8.5,
			expectedNet:   4723,
			expectedGross: 5124,
			explanation:   "4723 * 1.085 = 5124.455, rounds to 5124",
		},
		{
			name:          "one hundred percent edge case",
			price:         777,
			rate:          100,
			expectedNet:   777,
			expectedGross: 1554,
			explanation:   "100% tax doubles the price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tax.Reconcile(tt.price, false, tt.rate)
			assert.Equal(t, tt.expectedNet, got.Net, tt.explanation)
			assert.Equal(t, tt.expectedGross, got.Gross, tt.explanation)
		})
	}
}

func Test_Reconcile_TaxInclusive(t *testing.T) {
	tests := []struct {
		name          string
		price         int64
		rate          float64
		expectedNet   int64
		expectedGross int64
		explanation   string
	}{
		{
			name:          "twenty percent inclusive",
			price:         1200,
			rate:          20,
			expectedNet:   1000,
			expectedGross: 1200,
			explanation:   "1200 / 1.20 = 1000",
		},
		{
			name:          "ten percent inclusive with rounding",
			price:         999,
			rate:          10,
			expectedNet:   908,
			expectedGross: 999,
			explanation:   "999 / 1.10 = 908.18, rounds to 908",
		},
		{
			name:          "midpoint rounds up",
			price:         1107,
			rate:          8,
			expectedNet:   1025,
			expectedGross: 1107,
			explanation:   "1107 / 1.08 = 1025.0, exact",
		},
		{
			name:          "zero rate inclusive",
			price:         640,
			rate:          0,
			expectedNet:   640,
			expectedGross: 640,
			explanation:   "0% tax: gross equals net",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tax.Reconcile(tt.price, true, tt.rate)
			assert.Equal(t, tt.expectedNet, got.Net, tt.explanation)
			assert.Equal(t, tt.expectedGross, got.Gross, tt.explanation)
		})
	}
}

// Deriving the net from an inclusive price and then re-deriving the
// gross from that net must land within one minor unit of the original.
func Test_Reconcile_RoundTrip(t *testing.T) {
	prices := []int64{1, 99, 550, 1000, 1481, 9999, 123456}
	rates := []float64{0, 5, 8.5, 10, 19, 20, 25, 100}

	for _, price := range prices {
		for _, rate := range rates {
			inclusive := tax.Reconcile(price, true, rate)
			back := tax.Reconcile(inclusive.Net, false, rate)
			assert.InDelta(t, price, back.Gross, 1,
				"round-trip of %d at %.2f%% drifted more than one minor unit", price, rate)
		}
	}
}

func Test_Reconcile_Idempotent(t *testing.T) {
	first := tax.Reconcile(4723, false, 8.5)
	second := tax.Reconcile(4723, false, 8.5)
	third := tax.Reconcile(4723, false, 8.5)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
}

func Test_FixedRateProvider(t *testing.T) {
	p := tax.NewFixedRateProvider(8.5, 2.5)

	standard, err := p.RateFor(context.Background(), tax.CategoryStandard, domain.Address{CountryCode: "US"})
	assert.NoError(t, err)
	assert.Equal(t, 8.5, standard)

	shipping, err := p.RateFor(context.Background(), tax.CategoryShipping, domain.Address{CountryCode: "US"})
	assert.NoError(t, err)
	assert.Equal(t, 2.5, shipping)
}
