package companion

import "context"

// Catalog is the remote product-catalog backend that stores companion records.
// Implementations live in infrastructure; the backend offers no transactions
// and no unique indexes.
type Catalog interface {
	// ListRecords returns one page of records; NextPageToken is empty on the last page
	ListRecords(ctx context.Context, filter RecordListFilter) (*RecordPage, error)

	// GetRecord returns a record without attributes, or ErrCompanionNotFound
	GetRecord(ctx context.Context, id int64) (*Record, error)

	// CreateRecord creates a record with its initial image attachments
	CreateRecord(ctx context.Context, input RecordInput) (*Record, error)

	// UpdateRecord updates record-level fields; images are replaced as a whole list
	UpdateRecord(ctx context.Context, id int64, input RecordInput) (*Record, error)

	// BatchGetAttributes loads attributes for many records in one round trip
	BatchGetAttributes(ctx context.Context, ids []int64) (map[int64][]Attribute, error)

	// GetAttributes loads the attributes of one record
	GetAttributes(ctx context.Context, id int64) ([]Attribute, error)

	// SetAttributes upserts attributes on a record. Attributes whose value is
	// absent (see Attribute.IsAbsent) are deleted instead of written.
	SetAttributes(ctx context.Context, id int64, attrs []Attribute) (*AttributeWriteResult, error)

	// AddToCollection registers the record in a collection
	AddToCollection(ctx context.Context, id, collectionID int64) error

	// SetStatus moves the record to a lifecycle state
	SetStatus(ctx context.Context, id int64, status Status) error
}

// ImageFetcher downloads the bytes of an image already hosted by the backend
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}
