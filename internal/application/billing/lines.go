package billing

import (
	"github.com/shopspring/decimal"

	"github.com/ledgersync/backend/internal/domain/integration"
)

// ShippingLineDescription is the description of the synthetic shipping-fee line
const ShippingLineDescription = "Envío"

var (
	decimalOne     = decimal.NewFromInt(1)
	decimalHundred = decimal.NewFromInt(100)
)

// BuildInvoiceLines translates an order's line items into ledger invoice lines.
//
// The unit price sent to the ledger is the discounted unit price with VAT
// backed out (discounted / (1 + vatRate), rounded to 2 decimals). A fully
// discounted line (discounted price zero) would divide by zero in the discount
// formula, so it is billed at the pre-discount price with no discount instead.
// When the discount percentage rounds to a non-zero integer it is attached to
// the line. A shipping fee greater than zero becomes one extra line, taxed at
// the highest VAT rate present on the order.
func BuildInvoiceLines(order *integration.StorefrontOrder) []integration.InvoiceLine {
	lines := make([]integration.InvoiceLine, 0, len(order.LineItems)+1)

	maxVAT := decimal.Zero
	for _, item := range order.LineItems {
		if item.VATRate.GreaterThan(maxVAT) {
			maxVAT = item.VATRate
		}

		line := integration.InvoiceLine{
			Description: item.Title,
			Quantity:    item.Quantity,
			VATRate:     item.VATRate,
		}

		if item.DiscountedUnitPrice.IsZero() {
			line.UnitPrice = backOutVAT(item.OriginalUnitPrice, item.VATRate)
		} else {
			line.UnitPrice = backOutVAT(item.DiscountedUnitPrice, item.VATRate)
			line.DiscountPercent = discountPercent(item.OriginalUnitPrice, item.DiscountedUnitPrice)
		}

		lines = append(lines, line)
	}

	if order.ShippingCost.IsPositive() {
		lines = append(lines, integration.InvoiceLine{
			Description: ShippingLineDescription,
			Quantity:    decimalOne,
			UnitPrice:   backOutVAT(order.ShippingCost, maxVAT),
			VATRate:     maxVAT,
		})
	}

	return lines
}

// backOutVAT removes the VAT share from a VAT-inclusive price
func backOutVAT(price, vatRate decimal.Decimal) decimal.Decimal {
	return price.Div(decimalOne.Add(vatRate)).Round(2)
}

// discountPercent derives the rounded integer discount from the original and
// discounted prices. The discounted price is the denominator; callers must
// guard the zero case.
func discountPercent(original, discounted decimal.Decimal) int {
	pct := original.Sub(discounted).Div(discounted).Mul(decimalHundred).Round(0)
	return int(pct.IntPart())
}
