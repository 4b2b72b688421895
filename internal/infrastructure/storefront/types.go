package storefront

// ---------------------------------------------------------------------------
// Common Response Types
// ---------------------------------------------------------------------------

// moneyBag is the storefront's money wrapper; amounts travel as strings
type moneyBag struct {
	ShopMoney struct {
		Amount string `json:"amount"`
	} `json:"shopMoney"`
}

// userError is one mutation validation failure
type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// ---------------------------------------------------------------------------
// Order Related Types
// ---------------------------------------------------------------------------

// orderAddressNode is a billing or shipping address as returned by the API.
// The tax identification travels in the company field.
type orderAddressNode struct {
	Company   string   `json:"company"`
	City      string   `json:"city"`
	Province  string   `json:"province"`
	Formatted []string `json:"formatted"`
}

// orderLineItemNode is one sellable line of an order
type orderLineItemNode struct {
	Title                    string   `json:"title"`
	Quantity                 int64    `json:"quantity"`
	OriginalUnitPriceSet     moneyBag `json:"originalUnitPriceSet"`
	DiscountedUnitPriceSet   moneyBag `json:"discountedUnitPriceSet"`
	TaxLines                 []struct {
		RatePercentage float64 `json:"ratePercentage"`
	} `json:"taxLines"`
}

// orderTransactionNode is one payment transaction of an order
type orderTransactionNode struct {
	Gateway       string `json:"gateway"`
	PaymentID     string `json:"paymentId"`
	Authorization string `json:"authorization"`
}

// orderNode is an order as returned by the orders search
type orderNode struct {
	ID                      string            `json:"id"`
	Name                    string            `json:"name"`
	FullyPaid               bool              `json:"fullyPaid"`
	DisplayFinancialStatus  string            `json:"displayFinancialStatus"`
	Tags                    []string          `json:"tags"`
	CreatedAt               string            `json:"createdAt"`
	Customer                *struct {
		DisplayName string `json:"displayName"`
	} `json:"customer"`
	BillingAddress          *orderAddressNode `json:"billingAddress"`
	ShippingAddress         *orderAddressNode `json:"shippingAddress"`
	TotalShippingPriceSet   moneyBag          `json:"totalShippingPriceSet"`
	LineItems               struct {
		Nodes []orderLineItemNode `json:"nodes"`
	} `json:"lineItems"`
	Transactions []orderTransactionNode `json:"transactions"`
}

// ordersSearchResult is the paged container of the orders search
type ordersSearchResult struct {
	Nodes []orderNode `json:"nodes"`
}

// tagsAddResult is the result of the tagsAdd mutation
type tagsAddResult struct {
	UserErrors []userError `json:"userErrors"`
}

// ---------------------------------------------------------------------------
// Catalog Related Types
// ---------------------------------------------------------------------------

// productNode is one product of the catalog listing
type productNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// productsResult is the paged container of the product listing
type productsResult struct {
	Nodes []productNode `json:"nodes"`
}

// variantNode is one variant of a product
type variantNode struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	SKU           string `json:"sku"`
	Price         string `json:"price"`
	InventoryItem struct {
		ID string `json:"id"`
	} `json:"inventoryItem"`
}

// variantsResult is the paged container of a product's variants
type variantsResult struct {
	Nodes []variantNode `json:"nodes"`
}

// inventoryLevelNode is one per-location on-hand quantity
type inventoryLevelNode struct {
	Location struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"location"`
	Quantities []struct {
		Name     string `json:"name"`
		Quantity int64  `json:"quantity"`
	} `json:"quantities"`
}

// inventoryLevelsResult is the paged container of inventory levels
type inventoryLevelsResult struct {
	Nodes []inventoryLevelNode `json:"nodes"`
}
