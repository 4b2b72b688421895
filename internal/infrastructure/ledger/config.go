package ledger

import (
	"errors"
	"strings"
)

// Config holds configuration for the accounting ledger API integration
type Config struct {
	// BaseURL is the ledger API base URL
	BaseURL string
	// APIToken is the API token sent on every request
	APIToken string
	// MinRequestIntervalMillis spaces consecutive API calls of one adapter
	MinRequestIntervalMillis int
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// CityCacheSize bounds the in-process city lookup cache
	CityCacheSize int
}

// Errors for ledger configuration
var (
	ErrConfigMissingBaseURL  = errors.New("ledger: base URL is required")
	ErrConfigMissingAPIToken = errors.New("ledger: API token is required")
)

// NewConfig creates a ledger configuration with defaults
func NewConfig(baseURL, apiToken string) *Config {
	return &Config{
		BaseURL:                  baseURL,
		APIToken:                 apiToken,
		MinRequestIntervalMillis: 350,
		TimeoutSeconds:           30,
		CityCacheSize:            256,
	}
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrConfigMissingBaseURL
	}
	if strings.TrimSpace(c.APIToken) == "" {
		return ErrConfigMissingAPIToken
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.MinRequestIntervalMillis < 0 {
		c.MinRequestIntervalMillis = 0
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.CityCacheSize <= 0 {
		c.CityCacheSize = 256
	}
	return nil
}
