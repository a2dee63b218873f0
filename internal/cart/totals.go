package cart

import (
	"strings"

	"noirbleed_cart/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// DefaultRate convertit les prix PKR en USD (valeur approchée).
	DefaultRate = decimal.RequireFromString("0.0036")

	freeShippingAbove = decimal.NewFromInt(100)
	flatShipping      = decimal.RequireFromString("9.99")
	taxRate           = decimal.RequireFromString("0.08")
)

// ConvertPrice garde seulement les chiffres et le point décimal de price
// ("PKR 6,190" -> 6190) et multiplie par rate. Sans chiffre : 0.
func ConvertPrice(price string, rate decimal.Decimal) decimal.Decimal {
	var b strings.Builder
	for _, r := range price {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return leadingNumber(b.String()).Mul(rate)
}

// leadingNumber lit le plus long préfixe numérique valide ("1.2.3" -> 1.2).
func leadingNumber(s string) decimal.Decimal {
	end, dot, digits := 0, false, false
	for end < len(s) {
		c := s[end]
		if c == '.' {
			if dot {
				break
			}
			dot = true
		} else {
			digits = true
		}
		end++
	}
	if !digits {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(s[:end], "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CalculateTotals ne touche pas au stockage.
func CalculateTotals(lines []models.CartLine, rate decimal.Decimal) models.Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(ConvertPrice(l.Price, rate).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	shipping := flatShipping
	if subtotal.GreaterThan(freeShippingAbove) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(taxRate)
	total := subtotal.Add(shipping).Add(tax)

	t := models.Totals{
		Subtotal: subtotal.StringFixed(2),
		Shipping: shipping.StringFixed(2),
		Tax:      tax.StringFixed(2),
		Total:    total.StringFixed(2),
	}
	if shipping.IsZero() {
		t.Shipping = models.FreeShipping
	}
	return t
}

// FormatUSD : "$12.30".
func FormatUSD(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
