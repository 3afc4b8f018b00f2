package companion

import (
	"strings"
	"time"
)

// Image is a companion photo as shown to visitors
type Image struct {
	URL      string `json:"url"`
	Alt      string `json:"alt,omitempty"`
	Position int    `json:"position"`
}

// Companion is a directory profile backed by one catalog record
type Companion struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Status      Status    `json:"status"`
	Vendor      string    `json:"vendor,omitempty"`
	ProductType string    `json:"product_type,omitempty"`
	Tags        string    `json:"tags,omitempty"`
	BodyHTML    string    `json:"body_html,omitempty"`
	Image       *Image    `json:"image,omitempty"`
	Images      []Image   `json:"images"`
	Profile     Profile   `json:"profile"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Name returns the display name, falling back to the record title
func (c *Companion) Name() string {
	if name := c.Profile.DisplayName(); name != "" {
		return name
	}
	return c.Title
}

// Public returns a copy safe to hand to visitors
func (c Companion) Public() Companion {
	c.Profile = c.Profile.Public()
	return c
}

// TitleFor builds the record title for a profile
func TitleFor(p Profile) string {
	return p.DisplayName()
}

// HasLocation reports whether the companion has a location attribute
func (c *Companion) HasLocation() bool {
	return strings.TrimSpace(c.Profile.Location) != ""
}
