package companion

import "time"

// Config holds the directory-level settings shared by the companion services
type Config struct {
	// CollectionID is the catalog collection every companion belongs to
	CollectionID int64
	// Vendor and ProductType are written on every created record
	Vendor      string
	ProductType string
	// ListingPageSize is the number of companions per public listing page
	ListingPageSize int
	// ScanPageSize is the page size used when bulk-fetching records
	ScanPageSize int
	// AttributeBatchSize is the number of records per batched attribute lookup
	AttributeBatchSize int
	// MinImages and MaxImages bound the images accepted at creation
	MinImages int
	MaxImages int
	// MaxImageBytes is the upper size limit of a single uploaded image
	MaxImageBytes int64
	// ListingCacheTTL enables the listing snapshot cache when positive
	ListingCacheTTL time.Duration
	// ResubmitOnUpdate moves an edited active profile back to draft for review
	ResubmitOnUpdate bool
}

// DefaultConfig returns the default directory configuration
func DefaultConfig() Config {
	return Config{
		Vendor:             "Companion Directory",
		ProductType:        "Companion",
		ListingPageSize:    12,
		ScanPageSize:       250,
		AttributeBatchSize: 50,
		MinImages:          1,
		MaxImages:          5,
		MaxImageBytes:      5 << 20,
	}
}

// withDefaults fills zero values from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Vendor == "" {
		c.Vendor = d.Vendor
	}
	if c.ProductType == "" {
		c.ProductType = d.ProductType
	}
	if c.ListingPageSize <= 0 {
		c.ListingPageSize = d.ListingPageSize
	}
	if c.ScanPageSize <= 0 {
		c.ScanPageSize = d.ScanPageSize
	}
	if c.AttributeBatchSize <= 0 {
		c.AttributeBatchSize = d.AttributeBatchSize
	}
	if c.MinImages <= 0 {
		c.MinImages = d.MinImages
	}
	if c.MaxImages <= 0 {
		c.MaxImages = d.MaxImages
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = d.MaxImageBytes
	}
	return c
}
