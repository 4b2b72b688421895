package storefront

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds configuration for the storefront admin API integration
type Config struct {
	// ShopDomain is the shop's admin domain, e.g. "demo.myshopify.com"
	ShopDomain string
	// AccessToken is the admin API access token
	AccessToken string
	// APIVersion is the admin API version to pin requests to
	APIVersion string
	// PageSize is the page size used for catalog pulls
	PageSize int
	// MinRequestIntervalMillis spaces consecutive API calls of one client
	MinRequestIntervalMillis int
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// DefaultAPIVersion is the admin API version used when none is configured
	DefaultAPIVersion = "2024-10"
	// DefaultPageSize is the catalog page size used when none is configured
	DefaultPageSize = 50
)

// Errors for storefront configuration
var (
	ErrConfigMissingShopDomain  = errors.New("storefront: shop domain is required")
	ErrConfigMissingAccessToken = errors.New("storefront: access token is required")
)

// NewConfig creates a storefront configuration with defaults
func NewConfig(shopDomain, accessToken string) *Config {
	return &Config{
		ShopDomain:               shopDomain,
		AccessToken:              accessToken,
		APIVersion:               DefaultAPIVersion,
		PageSize:                 DefaultPageSize,
		MinRequestIntervalMillis: 500,
		TimeoutSeconds:           30,
	}
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ShopDomain) == "" {
		return ErrConfigMissingShopDomain
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		return ErrConfigMissingAccessToken
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MinRequestIntervalMillis < 0 {
		c.MinRequestIntervalMillis = 0
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// Endpoint returns the admin API URL requests are posted to
func (c *Config) Endpoint() string {
	domain := c.ShopDomain
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", domain, c.APIVersion)
}
