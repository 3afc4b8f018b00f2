package companion

import "strings"

// Status is the lifecycle state of a companion record on the catalog backend
type Status string

const (
	// StatusDraft means the profile is pending human review
	StatusDraft Status = "draft"
	// StatusActive means the profile is publicly listed
	StatusActive Status = "active"
	// StatusArchived means the profile has been withdrawn
	StatusArchived Status = "archived"
	// StatusAny is a list filter only; it is never stored
	StatusAny Status = "any"
)

// ParseStatus converts a backend status string into a Status.
// Unknown values map to draft, which keeps them out of public listings.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive
	case StatusArchived:
		return StatusArchived
	default:
		return StatusDraft
	}
}

// IsValid returns true for the three stored lifecycle states
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived:
		return true
	default:
		return false
	}
}

// IsPubliclyListed returns true if records in this state appear in public listings
func (s Status) IsPubliclyListed() bool {
	return s == StatusActive
}

// CanBeWrittenByCore reports whether this service may move a record into s.
// Promotion to active and archiving happen out of band through review.
func (s Status) CanBeWrittenByCore() bool {
	return s == StatusDraft
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}
