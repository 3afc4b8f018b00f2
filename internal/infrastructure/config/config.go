package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Catalog   CatalogConfig
	Directory DirectoryConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// WriteRateLimit is the number of create/update requests one client may
	// send per WriteRateWindow; 0 disables the limit
	WriteRateLimit  int
	WriteRateWindow time.Duration
}

// CatalogConfig holds the catalog backend connection settings
type CatalogConfig struct {
	ShopDomain         string
	AccessToken        string
	APIVersion         string
	BaseURL            string // overrides https://{ShopDomain}
	Timeout            time.Duration
	AttributeChunkSize int
	Namespace          string // attribute namespace written by the directory
}

// DirectoryConfig holds companion directory settings
type DirectoryConfig struct {
	CollectionID       int64
	Vendor             string
	ProductType        string
	ListingPageSize    int
	ScanPageSize       int
	AttributeBatchSize int
	MinImages          int
	MaxImages          int
	MaxImageBytes      int64
	ResubmitOnUpdate   bool
}

// CacheConfig holds listing snapshot cache settings
type CacheConfig struct {
	TTL           time.Duration // 0 disables the listing cache
	RedisHost     string        // empty uses the in-memory cache
	RedisPort     int
	RedisPassword string
	RedisDB       int
	RedisRequired bool // fail startup instead of falling back to memory
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool // export logs through the collector as well
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with COMPANION_ prefix (e.g., COMPANION_CATALOG_ACCESS_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("COMPANION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			WriteRateLimit:   v.GetInt("http.write_rate_limit"),
			WriteRateWindow:  v.GetDuration("http.write_rate_window"),
		},
		Catalog: CatalogConfig{
			ShopDomain:         v.GetString("catalog.shop_domain"),
			AccessToken:        v.GetString("catalog.access_token"),
			APIVersion:         v.GetString("catalog.api_version"),
			BaseURL:            v.GetString("catalog.base_url"),
			Timeout:            v.GetDuration("catalog.timeout"),
			AttributeChunkSize: v.GetInt("catalog.attribute_chunk_size"),
			Namespace:          v.GetString("catalog.namespace"),
		},
		Directory: DirectoryConfig{
			CollectionID:       v.GetInt64("directory.collection_id"),
			Vendor:             v.GetString("directory.vendor"),
			ProductType:        v.GetString("directory.product_type"),
			ListingPageSize:    v.GetInt("directory.listing_page_size"),
			ScanPageSize:       v.GetInt("directory.scan_page_size"),
			AttributeBatchSize: v.GetInt("directory.attribute_batch_size"),
			MinImages:          v.GetInt("directory.min_images"),
			MaxImages:          v.GetInt("directory.max_images"),
			MaxImageBytes:      v.GetInt64("directory.max_image_bytes"),
			ResubmitOnUpdate:   v.GetBool("directory.resubmit_on_update"),
		},
		Cache: CacheConfig{
			TTL:           v.GetDuration("cache.ttl"),
			RedisHost:     v.GetString("cache.redis_host"),
			RedisPort:     v.GetInt("cache.redis_port"),
			RedisPassword: v.GetString("cache.redis_password"),
			RedisDB:       v.GetInt("cache.redis_db"),
			RedisRequired: v.GetBool("cache.redis_required"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "companion-directory"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
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
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second // updates resend every kept image
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 32 << 20 // 32MB, five photos plus form fields
	}
	// An empty origin list means no cross-origin requests are allowed until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.HTTP.WriteRateWindow == 0 {
		cfg.HTTP.WriteRateWindow = time.Minute
	}
	if cfg.Catalog.APIVersion == "" {
		cfg.Catalog.APIVersion = "2024-10"
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 30 * time.Second
	}
	if cfg.Catalog.AttributeChunkSize == 0 {
		cfg.Catalog.AttributeChunkSize = 25
	}
	if cfg.Catalog.Namespace == "" {
		cfg.Catalog.Namespace = "custom"
	}
	if cfg.Directory.Vendor == "" {
		cfg.Directory.Vendor = "Companion Directory"
	}
	if cfg.Directory.ProductType == "" {
		cfg.Directory.ProductType = "Companion"
	}
	if cfg.Directory.ListingPageSize == 0 {
		cfg.Directory.ListingPageSize = 12
	}
	if cfg.Directory.ScanPageSize == 0 {
		cfg.Directory.ScanPageSize = 250
	}
	if cfg.Directory.AttributeBatchSize == 0 {
		cfg.Directory.AttributeBatchSize = 50
	}
	if cfg.Directory.MinImages == 0 {
		cfg.Directory.MinImages = 1
	}
	if cfg.Directory.MaxImages == 0 {
		cfg.Directory.MaxImages = 5
	}
	if cfg.Directory.MaxImageBytes == 0 {
		cfg.Directory.MaxImageBytes = 5 << 20 // 5MB
	}
	if cfg.Cache.RedisPort == 0 {
		cfg.Cache.RedisPort = 6379
	}
	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Directory.ListingPageSize < 0 {
		return fmt.Errorf("directory.listing_page_size must be positive")
	}
	if c.Directory.ScanPageSize < 0 || c.Directory.ScanPageSize > 250 {
		return fmt.Errorf("directory.scan_page_size must be between 1 and 250, got %d", c.Directory.ScanPageSize)
	}
	if c.Directory.MinImages > c.Directory.MaxImages {
		return fmt.Errorf("directory.min_images (%d) cannot exceed directory.max_images (%d)",
			c.Directory.MinImages, c.Directory.MaxImages)
	}
	if c.Catalog.AttributeChunkSize < 0 || c.Catalog.AttributeChunkSize > 25 {
		return fmt.Errorf("catalog.attribute_chunk_size must be between 1 and 25, got %d", c.Catalog.AttributeChunkSize)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}
	if c.HTTP.WriteRateLimit < 0 {
		return fmt.Errorf("http.write_rate_limit cannot be negative")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Catalog.ShopDomain == "" && c.Catalog.BaseURL == "" {
			return fmt.Errorf("catalog.shop_domain is required in production")
		}
		if c.Catalog.AccessToken == "" {
			return fmt.Errorf("catalog.access_token is required in production")
		}
		if c.Directory.CollectionID == 0 {
			return fmt.Errorf("directory.collection_id is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// ListingCacheEnabled reports whether listing snapshots are cached
func (c *CacheConfig) ListingCacheEnabled() bool {
	return c.TTL > 0
}
