package companion

import (
	"context"
	"fmt"

	"github.com/companiondir/backend/internal/domain/companion"
	"go.uber.org/zap"
)

// CollectionLoader fetches every record of the companion collection and
// decodes it into domain companions
type CollectionLoader struct {
	catalog      companion.Catalog
	mapper       *companion.Mapper
	collectionID int64
	pageSize     int
	batchSize    int
	logger       *zap.Logger
}

// NewCollectionLoader creates a new CollectionLoader
func NewCollectionLoader(catalog companion.Catalog, mapper *companion.Mapper, cfg Config, logger *zap.Logger) *CollectionLoader {
	cfg = cfg.withDefaults()
	return &CollectionLoader{
		catalog:      catalog,
		mapper:       mapper,
		collectionID: cfg.CollectionID,
		pageSize:     cfg.ScanPageSize,
		batchSize:    cfg.AttributeBatchSize,
		logger:       logger,
	}
}

// Load returns every companion in the collection with the given status,
// in backend order. StatusAny loads all lifecycle states.
func (l *CollectionLoader) Load(ctx context.Context, status companion.Status) ([]*companion.Companion, error) {
	records, err := l.listAll(ctx, status)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []*companion.Companion{}, nil
	}

	attrs, err := l.loadAttributes(ctx, records)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Attributes = attrs[records[i].ID]
	}

	return l.mapper.ToDomainList(records), nil
}

func (l *CollectionLoader) listAll(ctx context.Context, status companion.Status) ([]companion.Record, error) {
	var records []companion.Record
	seen := make(map[string]struct{})
	token := ""

	for {
		page, err := l.catalog.ListRecords(ctx, companion.RecordListFilter{
			CollectionID: l.collectionID,
			Status:       status,
			PageSize:     l.pageSize,
			PageToken:    token,
		})
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		records = append(records, page.Records...)

		if page.NextPageToken == "" {
			return records, nil
		}
		if _, dup := seen[page.NextPageToken]; dup {
			return nil, fmt.Errorf("list records: page token %q repeated", page.NextPageToken)
		}
		seen[page.NextPageToken] = struct{}{}
		token = page.NextPageToken
	}
}

func (l *CollectionLoader) loadAttributes(ctx context.Context, records []companion.Record) (map[int64][]companion.Attribute, error) {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}

	result := make(map[int64][]companion.Attribute, len(ids))
	for start := 0; start < len(ids); start += l.batchSize {
		end := min(start+l.batchSize, len(ids))
		batch, err := l.catalog.BatchGetAttributes(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch get attributes: %w", err)
		}
		for id, attrs := range batch {
			result[id] = attrs
		}
	}

	l.logger.Debug("Loaded companion attributes",
		zap.Int("records", len(ids)),
		zap.Int("batch_size", l.batchSize),
	)
	return result, nil
}
