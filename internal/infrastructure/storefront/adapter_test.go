package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync/backend/internal/domain/integration"
)

type apiRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func testConfig(endpoint string) *Config {
	config := NewConfig(endpoint, "test-token")
	config.MinRequestIntervalMillis = 0
	config.PageSize = 2
	return config
}

func decodeRequest(t *testing.T, r *http.Request) apiRequest {
	t.Helper()
	var req apiRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func writeJSON(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func TestAdapter_GetOrder(t *testing.T) {
	t.Run("maps a paid order with all fields", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			assert.Equal(t, "name:1001", req.Variables["search"])

			writeJSON(w, map[string]any{
				"data": map[string]any{
					"orders": map[string]any{
						"nodes": []map[string]any{{
							"id":                     "gid://shop/Order/9001",
							"name":                   "#1001",
							"fullyPaid":              true,
							"displayFinancialStatus": "PAID",
							"tags":                   []string{"credito"},
							"createdAt":              "2026-03-10T14:00:00Z",
							"customer":               map[string]any{"displayName": "maría josé garcía lópez"},
							"billingAddress": map[string]any{
								"company":   "12345678",
								"city":      "Medellín",
								"province":  "Antioquia",
								"formatted": []string{"CC 12345678", "Calle 10 #43-12", "Medellín"},
							},
							"shippingAddress": nil,
							"totalShippingPriceSet": map[string]any{
								"shopMoney": map[string]any{"amount": "11900.00"},
							},
							"lineItems": map[string]any{
								"nodes": []map[string]any{{
									"title":    "Camiseta",
									"quantity": 2,
									"originalUnitPriceSet": map[string]any{
										"shopMoney": map[string]any{"amount": "59500.00"},
									},
									"discountedUnitPriceSet": map[string]any{
										"shopMoney": map[string]any{"amount": "47600.00"},
									},
									"taxLines": []map[string]any{{"ratePercentage": 19.0}},
								}},
							},
							"transactions": []map[string]any{{
								"gateway":       "bnpl_provider",
								"paymentId":     "pay-777",
								"authorization": "",
							}},
						}},
					},
				},
			})
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		order, err := adapter.GetOrder(context.Background(), "1001")
		require.NoError(t, err)

		assert.Equal(t, "gid://shop/Order/9001", order.ID)
		assert.Equal(t, "1001", order.Number)
		assert.True(t, order.FullyPaid)
		assert.Equal(t, "PAID", order.FinancialStatus)
		assert.Equal(t, []string{"credito"}, order.Tags)
		assert.Equal(t, "maría josé garcía lópez", order.CustomerName)

		require.NotNil(t, order.Billing)
		assert.Equal(t, "12345678", order.Billing.Identification)
		assert.Equal(t, "Medellín", order.Billing.City)
		assert.Equal(t, "Antioquia", order.Billing.Province)
		assert.Len(t, order.Billing.Formatted, 3)
		assert.Nil(t, order.Shipping)

		assert.True(t, order.ShippingCost.Equal(decimal.RequireFromString("11900.00")))

		require.Len(t, order.LineItems, 1)
		line := order.LineItems[0]
		assert.Equal(t, "Camiseta", line.Title)
		assert.True(t, line.Quantity.Equal(decimal.NewFromInt(2)))
		assert.True(t, line.OriginalUnitPrice.Equal(decimal.RequireFromString("59500")))
		assert.True(t, line.DiscountedUnitPrice.Equal(decimal.RequireFromString("47600")))
		assert.True(t, line.VATRate.Equal(decimal.RequireFromString("0.19")))

		require.Len(t, order.Transactions, 1)
		assert.Equal(t, "bnpl_provider", order.Transactions[0].Gateway)
		assert.Equal(t, "pay-777", order.Transactions[0].PaymentID)
	})

	t.Run("unknown number yields order not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"data": map[string]any{
					"orders": map[string]any{"nodes": []any{}},
				},
			})
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		_, err = adapter.GetOrder(context.Background(), "9999")
		assert.ErrorIs(t, err, integration.ErrOrderNotFound)
	})

	t.Run("empty number is rejected without a request", func(t *testing.T) {
		adapter, err := NewAdapter(testConfig("https://unused.invalid"))
		require.NoError(t, err)

		_, err = adapter.GetOrder(context.Background(), "  ")
		assert.ErrorIs(t, err, integration.ErrOrderNotFound)
	})
}

func TestAdapter_AddOrderTags(t *testing.T) {
	t.Run("sends the mutation with id and tags", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			assert.Contains(t, req.Query, "tagsAdd")
			assert.Equal(t, "gid://shop/Order/9001", req.Variables["id"])

			writeJSON(w, map[string]any{
				"data": map[string]any{
					"tagsAdd": map[string]any{"userErrors": []any{}},
				},
			})
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		err = adapter.AddOrderTags(context.Background(), "gid://shop/Order/9001", []string{"bnpl-credit-override"})
		assert.NoError(t, err)
	})

	t.Run("user errors surface as request failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"data": map[string]any{
					"tagsAdd": map[string]any{
						"userErrors": []map[string]any{{"message": "order does not exist"}},
					},
				},
			})
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		err = adapter.AddOrderTags(context.Background(), "gid://shop/Order/404", []string{"x"})
		assert.ErrorIs(t, err, integration.ErrRequestFailed)
		assert.Contains(t, err.Error(), "order does not exist")
	})

	t.Run("no tags is a no-op", func(t *testing.T) {
		adapter, err := NewAdapter(testConfig("https://unused.invalid"))
		require.NoError(t, err)

		assert.NoError(t, adapter.AddOrderTags(context.Background(), "gid://shop/Order/1", nil))
	})
}

func TestAdapter_ListProducts(t *testing.T) {
	t.Run("concatenates catalog pages", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			if req.Variables["cursor"] == nil {
				writeJSON(w, map[string]any{
					"data": map[string]any{
						"products": map[string]any{
							"nodes": []map[string]any{
								{"id": "gid://shop/Product/1", "title": "Camiseta"},
								{"id": "gid://shop/Product/2", "title": "Pantalón"},
							},
							"pageInfo": map[string]any{"hasNextPage": true, "endCursor": "c1"},
						},
					},
				})
				return
			}
			writeJSON(w, map[string]any{
				"data": map[string]any{
					"products": map[string]any{
						"nodes": []map[string]any{
							{"id": "gid://shop/Product/3", "title": "Gorra"},
						},
						"pageInfo": map[string]any{"hasNextPage": false, "endCursor": ""},
					},
				},
			})
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		products, err := adapter.ListProducts(context.Background())
		require.NoError(t, err)
		require.Len(t, products, 3)
		assert.Equal(t, "gid://shop/Product/1", products[0].ExternalID)
		assert.Equal(t, "Gorra", products[2].Title)
	})
}

func TestAdapter_ListVariants(t *testing.T) {
	t.Run("maps variants with prices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			assert.Equal(t, "gid://shop/Product/1", req.Variables["id"])

			writeJSON(w, map[string]any{
				"data": map[string]any{
					"product": map[string]any{
						"variants": map[string]any{
							"nodes": []map[string]any{{
								"id":            "gid://shop/ProductVariant/11",
								"title":         "Talla M",
								"sku":           "CAM-M",
								"price":         "59500.00",
								"inventoryItem": map[string]any{"id": "gid://shop/InventoryItem/77"},
							}},
							"pageInfo": map[string]any{"hasNextPage": false, "endCursor": ""},
						},
					},
				},
			})
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		variants, err := adapter.ListVariants(context.Background(), "gid://shop/Product/1")
		require.NoError(t, err)
		require.Len(t, variants, 1)
		assert.Equal(t, "CAM-M", variants[0].SKU)
		assert.Equal(t, "gid://shop/InventoryItem/77", variants[0].InventoryItemID)
		assert.True(t, variants[0].Price.Equal(decimal.RequireFromString("59500")))
	})

	t.Run("unparsable price is an invalid response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"data": map[string]any{
					"product": map[string]any{
						"variants": map[string]any{
							"nodes": []map[string]any{{
								"id":    "gid://shop/ProductVariant/11",
								"price": "not-a-number",
							}},
							"pageInfo": map[string]any{"hasNextPage": false, "endCursor": ""},
						},
					},
				},
			})
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		_, err = adapter.ListVariants(context.Background(), "gid://shop/Product/1")
		assert.ErrorIs(t, err, integration.ErrInvalidResponse)
	})
}

func TestAdapter_ListInventoryLevels(t *testing.T) {
	t.Run("extracts available quantity per location", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			assert.True(t, strings.Contains(req.Query, "inventoryLevels"))

			writeJSON(w, map[string]any{
				"data": map[string]any{
					"inventoryItem": map[string]any{
						"inventoryLevels": map[string]any{
							"nodes": []map[string]any{{
								"location": map[string]any{
									"id":   "gid://shop/Location/5",
									"name": "Bodega Principal",
								},
								"quantities": []map[string]any{
									{"name": "available", "quantity": 50},
								},
							}},
							"pageInfo": map[string]any{"hasNextPage": false, "endCursor": ""},
						},
					},
				},
			})
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		levels, err := adapter.ListInventoryLevels(context.Background(), "gid://shop/InventoryItem/77")
		require.NoError(t, err)
		require.Len(t, levels, 1)
		assert.Equal(t, "gid://shop/Location/5", levels[0].LocationExternalID)
		assert.Equal(t, "Bodega Principal", levels[0].LocationName)
		assert.True(t, levels[0].Available.Equal(decimal.NewFromInt(50)))
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("missing domain", func(t *testing.T) {
		config := NewConfig("", "token")
		assert.ErrorIs(t, config.Validate(), ErrConfigMissingShopDomain)
	})

	t.Run("missing token", func(t *testing.T) {
		config := NewConfig("demo.myshopify.com", "")
		assert.ErrorIs(t, config.Validate(), ErrConfigMissingAccessToken)
	})

	t.Run("fills defaults", func(t *testing.T) {
		config := &Config{ShopDomain: "demo.myshopify.com", AccessToken: "token"}
		require.NoError(t, config.Validate())
		assert.Equal(t, DefaultAPIVersion, config.APIVersion)
		assert.Equal(t, DefaultPageSize, config.PageSize)
		assert.Equal(t, "https://demo.myshopify.com/admin/api/"+DefaultAPIVersion+"/graphql.json", config.Endpoint())
	})
}
