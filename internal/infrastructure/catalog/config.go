package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultAPIVersion is the Admin API version requests are pinned to
const DefaultAPIVersion = "2024-10"

// Limits imposed by the backend
const (
	// MaxAttributesPerWrite is the largest batch accepted by metafieldsSet
	MaxAttributesPerWrite = 25
	// MaxPageSize is the largest page the product listing returns
	MaxPageSize = 250
	// maxResponseSize is the maximum accepted response body (10MB)
	maxResponseSize = 10 * 1024 * 1024
)

// Errors for catalog configuration
var (
	ErrConfigMissingShopDomain  = errors.New("catalog: shop domain is required")
	ErrConfigMissingAccessToken = errors.New("catalog: access token is required")
)

// Config holds configuration for the catalog backend
type Config struct {
	// ShopDomain is the store host, e.g. example.myshopify.com
	ShopDomain string
	// AccessToken is the Admin API access token
	AccessToken string
	// APIVersion pins the Admin API version
	APIVersion string
	// BaseURL overrides the https://{ShopDomain} origin, used for tests and proxies
	BaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// AttributeChunkSize is the number of attributes sent per write call
	AttributeChunkSize int
	// AttributeReadLimit is the number of attributes read per record
	AttributeReadLimit int
}

// NewConfig creates a catalog configuration with defaults
func NewConfig(shopDomain, accessToken string) *Config {
	return &Config{
		ShopDomain:         shopDomain,
		AccessToken:        accessToken,
		APIVersion:         DefaultAPIVersion,
		TimeoutSeconds:     30,
		AttributeChunkSize: MaxAttributesPerWrite,
		AttributeReadLimit: 100,
	}
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	if c.ShopDomain == "" && c.BaseURL == "" {
		return ErrConfigMissingShopDomain
	}
	if c.AccessToken == "" {
		return ErrConfigMissingAccessToken
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.AttributeChunkSize <= 0 || c.AttributeChunkSize > MaxAttributesPerWrite {
		c.AttributeChunkSize = MaxAttributesPerWrite
	}
	if c.AttributeReadLimit <= 0 {
		c.AttributeReadLimit = 100
	}
	return nil
}

// origin returns the scheme and host requests are sent to
func (c *Config) origin() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return "https://" + strings.TrimRight(c.ShopDomain, "/")
}

// restURL returns the REST endpoint for path, e.g. "products.json"
func (c *Config) restURL(path string) string {
	return fmt.Sprintf("%s/admin/api/%s/%s", c.origin(), c.APIVersion, strings.TrimLeft(path, "/"))
}

// graphQLURL returns the GraphQL endpoint
func (c *Config) graphQLURL() string {
	return c.restURL("graphql.json")
}
