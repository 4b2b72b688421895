package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Storefront  StorefrontConfig
	Ledger      LedgerConfig
	DeferredPay DeferredPayConfig
	Reconcile   ReconcileConfig
	Snapshot    SnapshotConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// StorefrontConfig holds storefront admin API settings
type StorefrontConfig struct {
	ShopDomain               string
	AccessToken              string
	APIVersion               string
	PageSize                 int
	MinRequestIntervalMillis int
	TimeoutSeconds           int
	WebhookDedupTTL          time.Duration
}

// LedgerConfig holds accounting ledger API settings
type LedgerConfig struct {
	BaseURL                  string
	APIToken                 string
	MinRequestIntervalMillis int
	TimeoutSeconds           int
	CityCacheSize            int
}

// DeferredPayConfig holds deferred-payment provider settings
type DeferredPayConfig struct {
	Enabled        bool
	BaseURL        string
	APIKey         string
	APISecret      string
	TimeoutSeconds int
	// GatewayName identifies which storefront payment gateway belongs to
	// the deferred-payment provider
	GatewayName string
}

// ReconcileConfig holds order reconciliation settings
type ReconcileConfig struct {
	// RetryBudget is how many sweep retries a failed order gets
	RetryBudget int
	// InvoiceLookupDelay is how long to wait after a create timeout before
	// looking the invoice up by concept
	InvoiceLookupDelay time.Duration
	// SweepEnabled turns the periodic retry sweep on
	SweepEnabled bool
	// SweepInterval is how often the retry sweep runs
	SweepInterval time.Duration
	// SweepBatchSize caps how many records one sweep run picks up
	SweepBatchSize int
	// DoNotInvoiceTag blocks an order from invoicing when present
	DoNotInvoiceTag string
	// CreditTag selects credit payment terms when present
	CreditTag string
}

// SnapshotConfig holds inventory snapshot sync settings
type SnapshotConfig struct {
	// Enabled turns the periodic snapshot sync on
	Enabled bool
	// Interval is how often the snapshot sync runs
	Interval time.Duration
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with LEDGERSYNC_ prefix (e.g., LEDGERSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// config file not found is OK, defaults and env vars still apply
	}

	v.SetEnvPrefix("LEDGERSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Storefront: StorefrontConfig{
			ShopDomain:               v.GetString("storefront.shop_domain"),
			AccessToken:              v.GetString("storefront.access_token"),
			APIVersion:               v.GetString("storefront.api_version"),
			PageSize:                 v.GetInt("storefront.page_size"),
			MinRequestIntervalMillis: v.GetInt("storefront.min_request_interval_millis"),
			TimeoutSeconds:           v.GetInt("storefront.timeout_seconds"),
			WebhookDedupTTL:          v.GetDuration("storefront.webhook_dedup_ttl"),
		},
		Ledger: LedgerConfig{
			BaseURL:                  v.GetString("ledger.base_url"),
			APIToken:                 v.GetString("ledger.api_token"),
			MinRequestIntervalMillis: v.GetInt("ledger.min_request_interval_millis"),
			TimeoutSeconds:           v.GetInt("ledger.timeout_seconds"),
			CityCacheSize:            v.GetInt("ledger.city_cache_size"),
		},
		DeferredPay: DeferredPayConfig{
			Enabled:        v.GetBool("deferred_pay.enabled"),
			BaseURL:        v.GetString("deferred_pay.base_url"),
			APIKey:         v.GetString("deferred_pay.api_key"),
			APISecret:      v.GetString("deferred_pay.api_secret"),
			TimeoutSeconds: v.GetInt("deferred_pay.timeout_seconds"),
			GatewayName:    v.GetString("deferred_pay.gateway_name"),
		},
		Reconcile: ReconcileConfig{
			RetryBudget:        v.GetInt("reconcile.retry_budget"),
			InvoiceLookupDelay: v.GetDuration("reconcile.invoice_lookup_delay"),
			SweepEnabled:       v.GetBool("reconcile.sweep_enabled"),
			SweepInterval:      v.GetDuration("reconcile.sweep_interval"),
			SweepBatchSize:     v.GetInt("reconcile.sweep_batch_size"),
			DoNotInvoiceTag:    v.GetString("reconcile.do_not_invoice_tag"),
			CreditTag:          v.GetString("reconcile.credit_tag"),
		},
		Snapshot: SnapshotConfig{
			Enabled:  v.GetBool("snapshot.enabled"),
			Interval: v.GetDuration("snapshot.interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ledgersync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "ledgersync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Storefront.APIVersion == "" {
		cfg.Storefront.APIVersion = "2024-10"
	}
	if cfg.Storefront.PageSize == 0 {
		cfg.Storefront.PageSize = 50
	}
	if cfg.Storefront.MinRequestIntervalMillis == 0 {
		cfg.Storefront.MinRequestIntervalMillis = 500
	}
	if cfg.Storefront.TimeoutSeconds == 0 {
		cfg.Storefront.TimeoutSeconds = 30
	}
	if cfg.Storefront.WebhookDedupTTL == 0 {
		cfg.Storefront.WebhookDedupTTL = 24 * time.Hour
	}
	if cfg.Ledger.MinRequestIntervalMillis == 0 {
		cfg.Ledger.MinRequestIntervalMillis = 350
	}
	if cfg.Ledger.TimeoutSeconds == 0 {
		cfg.Ledger.TimeoutSeconds = 30
	}
	if cfg.Ledger.CityCacheSize == 0 {
		cfg.Ledger.CityCacheSize = 256
	}
	if cfg.DeferredPay.TimeoutSeconds == 0 {
		cfg.DeferredPay.TimeoutSeconds = 30
	}
	if cfg.DeferredPay.GatewayName == "" {
		cfg.DeferredPay.GatewayName = "addi"
	}
	if cfg.Reconcile.RetryBudget == 0 {
		cfg.Reconcile.RetryBudget = 3
	}
	if cfg.Reconcile.InvoiceLookupDelay == 0 {
		cfg.Reconcile.InvoiceLookupDelay = 30 * time.Second
	}
	if cfg.Reconcile.SweepInterval == 0 {
		cfg.Reconcile.SweepInterval = 10 * time.Minute
	}
	if cfg.Reconcile.SweepBatchSize == 0 {
		cfg.Reconcile.SweepBatchSize = 50
	}
	if cfg.Reconcile.DoNotInvoiceTag == "" {
		cfg.Reconcile.DoNotInvoiceTag = "no-facturar"
	}
	if cfg.Reconcile.CreditTag == "" {
		cfg.Reconcile.CreditTag = "credito"
	}
	if cfg.Snapshot.Interval == 0 {
		cfg.Snapshot.Interval = 6 * time.Hour
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Reconcile.RetryBudget < 0 {
		return fmt.Errorf("reconcile.retry_budget cannot be negative")
	}
	if c.Reconcile.SweepBatchSize <= 0 {
		return fmt.Errorf("reconcile.sweep_batch_size must be positive")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Storefront.ShopDomain == "" || c.Storefront.AccessToken == "" {
			return fmt.Errorf("storefront.shop_domain and storefront.access_token are required in production")
		}
		if c.Ledger.BaseURL == "" || c.Ledger.APIToken == "" {
			return fmt.Errorf("ledger.base_url and ledger.api_token are required in production")
		}
		if c.DeferredPay.Enabled && (c.DeferredPay.APIKey == "" || c.DeferredPay.APISecret == "") {
			return fmt.Errorf("deferred_pay credentials are required when deferred_pay is enabled in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
