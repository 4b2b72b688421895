package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync/backend/internal/domain/integration"
)

func TestBuildInvoiceLines(t *testing.T) {
	vat19 := decimal.NewFromFloat(0.19)

	t.Run("backs VAT out of the discounted price and attaches the discount", func(t *testing.T) {
		order := &integration.StorefrontOrder{
			LineItems: []integration.OrderLineItem{
				{
					Title:               "Camiseta",
					Quantity:            decimal.NewFromInt(2),
					OriginalUnitPrice:   decimal.NewFromInt(59500),
					DiscountedUnitPrice: decimal.NewFromInt(47600),
					VATRate:             vat19,
				},
			},
		}

		lines := BuildInvoiceLines(order)

		require.Len(t, lines, 1)
		assert.Equal(t, "Camiseta", lines[0].Description)
		assert.True(t, lines[0].Quantity.Equal(decimal.NewFromInt(2)))
		// 47600 / 1.19 = 40000
		assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(40000)),
			"got %s", lines[0].UnitPrice)
		// (59500 - 47600) / 47600 * 100 = 25
		assert.Equal(t, 25, lines[0].DiscountPercent)
		assert.True(t, lines[0].VATRate.Equal(vat19))
	})

	t.Run("undiscounted line carries no discount percentage", func(t *testing.T) {
		order := &integration.StorefrontOrder{
			LineItems: []integration.OrderLineItem{
				{
					Title:               "Pantalón",
					Quantity:            decimal.NewFromInt(1),
					OriginalUnitPrice:   decimal.NewFromInt(119000),
					DiscountedUnitPrice: decimal.NewFromInt(119000),
					VATRate:             vat19,
				},
			},
		}

		lines := BuildInvoiceLines(order)

		require.Len(t, lines, 1)
		assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(100000)))
		assert.Equal(t, 0, lines[0].DiscountPercent)
	})

	t.Run("fully discounted line is billed at the pre-discount price", func(t *testing.T) {
		order := &integration.StorefrontOrder{
			LineItems: []integration.OrderLineItem{
				{
					Title:               "Regalo",
					Quantity:            decimal.NewFromInt(1),
					OriginalUnitPrice:   decimal.NewFromInt(11900),
					DiscountedUnitPrice: decimal.Zero,
					VATRate:             vat19,
				},
			},
		}

		lines := BuildInvoiceLines(order)

		require.Len(t, lines, 1)
		assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(10000)))
		assert.Equal(t, 0, lines[0].DiscountPercent)
	})

	t.Run("rounds the backed-out price to two decimals", func(t *testing.T) {
		order := &integration.StorefrontOrder{
			LineItems: []integration.OrderLineItem{
				{
					Title:               "Medias",
					Quantity:            decimal.NewFromInt(3),
					OriginalUnitPrice:   decimal.NewFromInt(10000),
					DiscountedUnitPrice: decimal.NewFromInt(10000),
					VATRate:             vat19,
				},
			},
		}

		lines := BuildInvoiceLines(order)

		require.Len(t, lines, 1)
		// 10000 / 1.19 = 8403.3613... -> 8403.36
		assert.Equal(t, "8403.36", lines[0].UnitPrice.StringFixed(2))
	})

	t.Run("positive shipping cost adds a shipping line at the highest VAT rate", func(t *testing.T) {
		order := &integration.StorefrontOrder{
			LineItems: []integration.OrderLineItem{
				{
					Title:               "Libro",
					Quantity:            decimal.NewFromInt(1),
					OriginalUnitPrice:   decimal.NewFromInt(50000),
					DiscountedUnitPrice: decimal.NewFromInt(50000),
					VATRate:             decimal.Zero,
				},
				{
					Title:               "Camiseta",
					Quantity:            decimal.NewFromInt(1),
					OriginalUnitPrice:   decimal.NewFromInt(59500),
					DiscountedUnitPrice: decimal.NewFromInt(59500),
					VATRate:             vat19,
				},
			},
			ShippingCost: decimal.NewFromInt(11900),
		}

		lines := BuildInvoiceLines(order)

		require.Len(t, lines, 3)
		shipping := lines[2]
		assert.Equal(t, ShippingLineDescription, shipping.Description)
		assert.True(t, shipping.Quantity.Equal(decimal.NewFromInt(1)))
		assert.True(t, shipping.UnitPrice.Equal(decimal.NewFromInt(10000)))
		assert.True(t, shipping.VATRate.Equal(vat19))
		assert.Equal(t, 0, shipping.DiscountPercent)
	})

	t.Run("zero shipping cost adds no line", func(t *testing.T) {
		order := &integration.StorefrontOrder{
			LineItems: []integration.OrderLineItem{
				{
					Title:               "Libro",
					Quantity:            decimal.NewFromInt(1),
					OriginalUnitPrice:   decimal.NewFromInt(50000),
					DiscountedUnitPrice: decimal.NewFromInt(50000),
				},
			},
		}

		lines := BuildInvoiceLines(order)

		require.Len(t, lines, 1)
	})
}
