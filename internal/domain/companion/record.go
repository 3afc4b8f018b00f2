package companion

import (
	"encoding/base64"
	"time"
)

// Attribute is one named, typed key/value entry attached to a record
type Attribute struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// QualifiedKey returns namespace.key, or the bare key when no namespace is set
func (a Attribute) QualifiedKey() string {
	if a.Namespace == "" {
		return a.Key
	}
	return a.Namespace + "." + a.Key
}

// IsAbsent reports whether the value encodes "no value" and must be deleted rather than written
func (a Attribute) IsAbsent() bool {
	return a.Value == "" || a.Value == EmptyListMarker
}

// RecordImage is an image already stored on the catalog backend
type RecordImage struct {
	ID       int64  `json:"id"`
	Src      string `json:"src"`
	Alt      string `json:"alt,omitempty"`
	Position int    `json:"position"`
}

// ImageAttachment is an image sent inline with a record create or update
type ImageAttachment struct {
	Attachment string // base64 encoded bytes
	Filename   string
	Alt        string
	Position   int
}

// NewImageAttachment base64-encodes data into an attachment at the given 1-based position
func NewImageAttachment(data []byte, filename, alt string, position int) ImageAttachment {
	return ImageAttachment{
		Attachment: base64.StdEncoding.EncodeToString(data),
		Filename:   filename,
		Alt:        alt,
		Position:   position,
	}
}

// Record is the catalog backend's native unit of storage for one companion,
// with its image array and flat attribute list nested inside.
type Record struct {
	ID          int64
	Title       string
	BodyHTML    string
	Vendor      string
	ProductType string
	Tags        string
	Status      Status
	Images      []RecordImage
	Attributes  []Attribute
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecordInput carries the record-level fields of a create or update call.
// Empty strings leave the stored value untouched on update; ClearBody sends an
// empty body instead. Images are only sent when ReplaceImages is set.
type RecordInput struct {
	Title         string
	BodyHTML      string
	ClearBody     bool
	Vendor        string
	ProductType   string
	Status        Status
	Images        []ImageAttachment
	ReplaceImages bool
}

// RecordListFilter selects one page of records
type RecordListFilter struct {
	CollectionID int64
	Status       Status
	PageSize     int
	PageToken    string
}

// RecordPage is one page of a record listing
type RecordPage struct {
	Records       []Record
	NextPageToken string
}

// AttributeError reports a single attribute that could not be written
type AttributeError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// AttributeWriteResult is the outcome of a batch attribute write
type AttributeWriteResult struct {
	Written []Attribute
	Deleted []Attribute
	Errors  []AttributeError
}

// Failed returns true if at least one attribute was not persisted
func (r *AttributeWriteResult) Failed() bool {
	return r != nil && len(r.Errors) > 0
}
