package cart_test

import (
	"testing"

	"noirbleed_cart/internal/cart"
	"noirbleed_cart/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConvertPrice(t *testing.T) {
	tests := []struct {
		price string
		want  string
	}{
		{"PKR 10,000", "36"},
		{"PKR 6,190", "22.284"},
		{"PKR 1,250.50", "4.5018"},
		{"Rs. 1,250", "0.00045"},
		{"1.2.3", "0.00432"},
		{"PKR", "0"},
		{"", "0"},
		{"free", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			got := cart.ConvertPrice(tt.price, cart.DefaultRate)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestCalculateTotals(t *testing.T) {
	line := func(price string, qty int) models.CartLine {
		return models.CartLine{Price: price, Quantity: qty}
	}

	t.Run("flat_shipping", func(t *testing.T) {
		got := cart.CalculateTotals([]models.CartLine{line("PKR 10,000", 2)}, cart.DefaultRate)
		assert.Equal(t, models.Totals{Subtotal: "72.00", Shipping: "9.99", Tax: "5.76", Total: "87.75"}, got)
	})

	t.Run("free_shipping_above_100", func(t *testing.T) {
		got := cart.CalculateTotals([]models.CartLine{line("PKR 10,000", 2), line("PKR 10,000", 1)}, cart.DefaultRate)
		assert.Equal(t, models.Totals{Subtotal: "108.00", Shipping: models.FreeShipping, Tax: "8.64", Total: "116.64"}, got)
	})

	t.Run("exactly_100_is_not_free", func(t *testing.T) {
		got := cart.CalculateTotals([]models.CartLine{line("100", 1)}, decimal.NewFromInt(1))
		assert.Equal(t, "9.99", got.Shipping)
	})

	t.Run("empty_cart", func(t *testing.T) {
		got := cart.CalculateTotals(nil, cart.DefaultRate)
		assert.Equal(t, models.Totals{Subtotal: "0.00", Shipping: "9.99", Tax: "0.00", Total: "9.99"}, got)
	})

	t.Run("malformed_price_counts_zero", func(t *testing.T) {
		got := cart.CalculateTotals([]models.CartLine{line("sold out", 3)}, cart.DefaultRate)
		assert.Equal(t, "0.00", got.Subtotal)
	})
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$36.00", cart.FormatUSD(decimal.NewFromInt(36)))
	assert.Equal(t, "$22.28", cart.FormatUSD(cart.ConvertPrice("PKR 6,190", cart.DefaultRate)))
}
