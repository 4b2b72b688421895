package deferredpay

import (
	"errors"
	"strings"
)

// Config holds configuration for the deferred-payment provider integration
type Config struct {
	// BaseURL is the provider API base URL
	BaseURL string
	// APIKey identifies the merchant account
	APIKey string
	// APISecret authenticates the session exchange
	APISecret string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Errors for deferred-payment configuration
var (
	ErrConfigMissingBaseURL   = errors.New("deferredpay: base URL is required")
	ErrConfigMissingAPIKey    = errors.New("deferredpay: API key is required")
	ErrConfigMissingAPISecret = errors.New("deferredpay: API secret is required")
)

// NewConfig creates a deferred-payment configuration with defaults
func NewConfig(baseURL, apiKey, apiSecret string) *Config {
	return &Config{
		BaseURL:        baseURL,
		APIKey:         apiKey,
		APISecret:      apiSecret,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrConfigMissingBaseURL
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrConfigMissingAPIKey
	}
	if strings.TrimSpace(c.APISecret) == "" {
		return ErrConfigMissingAPISecret
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
