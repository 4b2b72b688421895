package storefront

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgersync/backend/internal/domain/integration"
	"github.com/ledgersync/backend/internal/infrastructure/graphql"
)

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

const orderByNumberQuery = `
query OrderByNumber($search: String!) {
  orders(first: 1, query: $search) {
    nodes {
      id
      name
      fullyPaid
      displayFinancialStatus
      tags
      createdAt
      customer { displayName }
      billingAddress { company city province formatted }
      shippingAddress { company city province formatted }
      totalShippingPriceSet { shopMoney { amount } }
      lineItems(first: 100) {
        nodes {
          title
          quantity
          originalUnitPriceSet { shopMoney { amount } }
          discountedUnitPriceSet { shopMoney { amount } }
          taxLines { ratePercentage }
        }
      }
      transactions { gateway paymentId authorization }
    }
  }
}`

const addOrderTagsMutation = `
mutation AddOrderTags($id: ID!, $tags: [String!]!) {
  tagsAdd(id: $id, tags: $tags) {
    userErrors { field message }
  }
}`

const listProductsQuery = `
query Products($limit: Int!, $cursor: String) {
  products(first: $limit, after: $cursor) {
    nodes { id title }
    pageInfo { hasNextPage endCursor }
  }
}`

const listVariantsQuery = `
query ProductVariants($id: ID!, $limit: Int!, $cursor: String) {
  product(id: $id) {
    variants(first: $limit, after: $cursor) {
      nodes { id title sku price inventoryItem { id } }
      pageInfo { hasNextPage endCursor }
    }
  }
}`

const listInventoryLevelsQuery = `
query InventoryLevels($id: ID!, $limit: Int!, $cursor: String) {
  inventoryItem(id: $id) {
    inventoryLevels(first: $limit, after: $cursor) {
      nodes {
        location { id name }
        quantities(names: ["available"]) { name quantity }
      }
      pageInfo { hasNextPage endCursor }
    }
  }
}`

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

// Adapter implements the StorefrontGateway port on the storefront admin API
type Adapter struct {
	config *Config
	client *graphql.Client
}

// Interface compliance check
var _ integration.StorefrontGateway = (*Adapter)(nil)

// NewAdapter creates a storefront adapter with the given configuration
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := graphql.NewClient(config.Endpoint(),
		graphql.WithHeader("X-Shopify-Access-Token", config.AccessToken),
		graphql.WithMinInterval(time.Duration(config.MinRequestIntervalMillis)*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	return &Adapter{config: config, client: client}, nil
}

// GetOrder fetches a single order by its business number
func (a *Adapter) GetOrder(ctx context.Context, number string) (*integration.StorefrontOrder, error) {
	if strings.TrimSpace(number) == "" {
		return nil, fmt.Errorf("%w: empty order number", integration.ErrOrderNotFound)
	}

	doc, err := a.client.Execute(ctx, orderByNumberQuery, map[string]any{
		"search": fmt.Sprintf("name:%s", number),
	})
	if err != nil {
		return nil, err
	}

	var result ordersSearchResult
	if err := doc.DecodeAt("data.orders", &result); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}
	if len(result.Nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", integration.ErrOrderNotFound, number)
	}
	return toDomainOrder(&result.Nodes[0])
}

// AddOrderTags attaches audit tags to an order
func (a *Adapter) AddOrderTags(ctx context.Context, orderID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	doc, err := a.client.Execute(ctx, addOrderTagsMutation, map[string]any{
		"id":   orderID,
		"tags": tags,
	})
	if err != nil {
		return err
	}

	var result tagsAddResult
	if err := doc.DecodeAt("data.tagsAdd", &result); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}
	if len(result.UserErrors) > 0 {
		return fmt.Errorf("%w: tagsAdd rejected: %s",
			integration.ErrRequestFailed, result.UserErrors[0].Message)
	}
	return nil
}

// ListProducts pulls the full product catalog across every page
func (a *Adapter) ListProducts(ctx context.Context) ([]integration.CatalogProduct, error) {
	doc, err := a.client.FetchAll(ctx, listProductsQuery, "data.products", map[string]any{
		"limit": a.config.PageSize,
	})
	if err != nil {
		return nil, err
	}

	var result productsResult
	if err := doc.DecodeAt("data.products", &result); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}

	products := make([]integration.CatalogProduct, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		products = append(products, integration.CatalogProduct{
			ExternalID: node.ID,
			Title:      node.Title,
		})
	}
	return products, nil
}

// ListVariants pulls all variants of one product across every page
func (a *Adapter) ListVariants(ctx context.Context, productExternalID string) ([]integration.CatalogVariant, error) {
	doc, err := a.client.FetchAll(ctx, listVariantsQuery, "data.product.variants", map[string]any{
		"id":    productExternalID,
		"limit": a.config.PageSize,
	})
	if err != nil {
		return nil, err
	}

	var result variantsResult
	if err := doc.DecodeAt("data.product.variants", &result); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}

	variants := make([]integration.CatalogVariant, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		price, err := parseAmount(node.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: variant %s price: %v",
				integration.ErrInvalidResponse, node.ID, err)
		}
		variants = append(variants, integration.CatalogVariant{
			ExternalID:      node.ID,
			Title:           node.Title,
			SKU:             node.SKU,
			Price:           price,
			InventoryItemID: node.InventoryItem.ID,
		})
	}
	return variants, nil
}

// ListInventoryLevels pulls a variant's per-location on-hand quantities
func (a *Adapter) ListInventoryLevels(ctx context.Context, inventoryItemID string) ([]integration.InventoryLevel, error) {
	doc, err := a.client.FetchAll(ctx, listInventoryLevelsQuery, "data.inventoryItem.inventoryLevels", map[string]any{
		"id":    inventoryItemID,
		"limit": a.config.PageSize,
	})
	if err != nil {
		return nil, err
	}

	var result inventoryLevelsResult
	if err := doc.DecodeAt("data.inventoryItem.inventoryLevels", &result); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}

	levels := make([]integration.InventoryLevel, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		var available int64
		for _, quantity := range node.Quantities {
			if quantity.Name == "available" {
				available = quantity.Quantity
				break
			}
		}
		levels = append(levels, integration.InventoryLevel{
			LocationExternalID: node.Location.ID,
			LocationName:       node.Location.Name,
			Available:          decimal.NewFromInt(available),
		})
	}
	return levels, nil
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

// toDomainOrder maps an API order node into the domain order
func toDomainOrder(node *orderNode) (*integration.StorefrontOrder, error) {
	createdAt, err := time.Parse(time.RFC3339, node.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: order %s createdAt: %v",
			integration.ErrInvalidResponse, node.Name, err)
	}

	shippingCost, err := parseAmount(node.TotalShippingPriceSet.ShopMoney.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: order %s shipping amount: %v",
			integration.ErrInvalidResponse, node.Name, err)
	}

	lineItems := make([]integration.OrderLineItem, 0, len(node.LineItems.Nodes))
	for _, item := range node.LineItems.Nodes {
		original, err := parseAmount(item.OriginalUnitPriceSet.ShopMoney.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: line %q original price: %v",
				integration.ErrInvalidResponse, item.Title, err)
		}
		discounted, err := parseAmount(item.DiscountedUnitPriceSet.ShopMoney.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: line %q discounted price: %v",
				integration.ErrInvalidResponse, item.Title, err)
		}
		vatRate := decimal.Zero
		if len(item.TaxLines) > 0 {
			vatRate = decimal.NewFromFloat(item.TaxLines[0].RatePercentage).
				Div(decimal.NewFromInt(100))
		}
		lineItems = append(lineItems, integration.OrderLineItem{
			Title:               item.Title,
			Quantity:            decimal.NewFromInt(item.Quantity),
			OriginalUnitPrice:   original,
			DiscountedUnitPrice: discounted,
			VATRate:             vatRate,
		})
	}

	transactions := make([]integration.OrderTransaction, 0, len(node.Transactions))
	for _, tx := range node.Transactions {
		paymentID := tx.PaymentID
		if paymentID == "" {
			paymentID = tx.Authorization
		}
		transactions = append(transactions, integration.OrderTransaction{
			Gateway:   tx.Gateway,
			PaymentID: paymentID,
		})
	}

	var customerName string
	if node.Customer != nil {
		customerName = node.Customer.DisplayName
	}

	return &integration.StorefrontOrder{
		ID:              node.ID,
		Number:          strings.TrimPrefix(node.Name, "#"),
		FullyPaid:       node.FullyPaid,
		FinancialStatus: node.DisplayFinancialStatus,
		Tags:            node.Tags,
		CustomerName:    customerName,
		Billing:         toDomainAddress(node.BillingAddress),
		Shipping:        toDomainAddress(node.ShippingAddress),
		LineItems:       lineItems,
		ShippingCost:    shippingCost,
		Transactions:    transactions,
		CreatedAt:       createdAt,
	}, nil
}

// toDomainAddress maps an API address node, nil stays nil
func toDomainAddress(node *orderAddressNode) *integration.OrderAddress {
	if node == nil {
		return nil
	}
	return &integration.OrderAddress{
		Identification: node.Company,
		City:           node.City,
		Province:       node.Province,
		Formatted:      node.Formatted,
	}
}

// parseAmount parses a string-encoded money amount; empty means zero
func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
