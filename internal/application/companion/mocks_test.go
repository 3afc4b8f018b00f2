package companion

import (
	"context"
	"sync"
	"time"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// ============================================================================
// Mocks
// ============================================================================

// MockCatalog is a mock implementation of companion.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListRecords(ctx context.Context, filter companion.RecordListFilter) (*companion.RecordPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*companion.RecordPage), args.Error(1)
}

func (m *MockCatalog) GetRecord(ctx context.Context, id int64) (*companion.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*companion.Record), args.Error(1)
}

func (m *MockCatalog) CreateRecord(ctx context.Context, input companion.RecordInput) (*companion.Record, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*companion.Record), args.Error(1)
}

func (m *MockCatalog) UpdateRecord(ctx context.Context, id int64, input companion.RecordInput) (*companion.Record, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*companion.Record), args.Error(1)
}

func (m *MockCatalog) BatchGetAttributes(ctx context.Context, ids []int64) (map[int64][]companion.Attribute, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64][]companion.Attribute), args.Error(1)
}

func (m *MockCatalog) GetAttributes(ctx context.Context, id int64) ([]companion.Attribute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]companion.Attribute), args.Error(1)
}

func (m *MockCatalog) SetAttributes(ctx context.Context, id int64, attrs []companion.Attribute) (*companion.AttributeWriteResult, error) {
	args := m.Called(ctx, id, attrs)
	if fn, ok := args.Get(0).(func(context.Context, int64, []companion.Attribute) *companion.AttributeWriteResult); ok {
		return fn(ctx, id, attrs), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*companion.AttributeWriteResult), args.Error(1)
}

func (m *MockCatalog) AddToCollection(ctx context.Context, id, collectionID int64) error {
	args := m.Called(ctx, id, collectionID)
	return args.Error(0)
}

func (m *MockCatalog) SetStatus(ctx context.Context, id int64, status companion.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

var _ companion.Catalog = (*MockCatalog)(nil)

// MockImageFetcher is a mock implementation of companion.ImageFetcher
type MockImageFetcher struct {
	mock.Mock
}

func (m *MockImageFetcher) FetchImage(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

var _ companion.ImageFetcher = (*MockImageFetcher)(nil)

// memoryListingCache is a minimal ListingCache for service tests
type memoryListingCache struct {
	mu      sync.Mutex
	items   map[string][]companion.Companion
	gets    int
	cleared int
}

func newMemoryListingCache() *memoryListingCache {
	return &memoryListingCache{items: make(map[string][]companion.Companion)}
}

func (c *memoryListingCache) Get(_ context.Context, key string) ([]companion.Companion, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	items, ok := c.items[key]
	return items, ok, nil
}

func (c *memoryListingCache) Set(_ context.Context, key string, items []companion.Companion, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = items
	return nil
}

func (c *memoryListingCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string][]companion.Companion)
	c.cleared++
	return nil
}

var _ ListingCache = (*memoryListingCache)(nil)

// ============================================================================
// Fixtures
// ============================================================================

const testCollectionID int64 = 9001

func zapNop() *zap.Logger {
	return zap.NewNop()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CollectionID = testCollectionID
	cfg.ListingPageSize = 2
	return cfg
}

type testServices struct {
	catalog *MockCatalog
	fetcher *MockImageFetcher
	cache   *memoryListingCache
	sync    *SyncService
	query   *QueryService
}

func newTestServices(cfg Config) *testServices {
	logger := zap.NewNop()
	catalog := new(MockCatalog)
	fetcher := new(MockImageFetcher)
	cache := newMemoryListingCache()
	codec := companion.NewCodec("custom")

	loader := NewCollectionLoader(catalog, companion.NewMapper(codec), cfg, logger)
	verifier := NewUniquenessVerifier(loader, logger)

	return &testServices{
		catalog: catalog,
		fetcher: fetcher,
		cache:   cache,
		sync:    NewSyncService(catalog, fetcher, verifier, cache, codec, cfg, logger),
		query:   NewQueryService(loader, cache, cfg, logger),
	}
}

// stubCollection makes every collection scan return records with attrs
func (ts *testServices) stubCollection(records []companion.Record, attrs map[int64][]companion.Attribute) {
	ts.catalog.On("ListRecords", mock.Anything, mock.Anything).
		Return(&companion.RecordPage{Records: records}, nil)
	if len(records) > 0 {
		ts.catalog.On("BatchGetAttributes", mock.Anything, mock.Anything).Return(attrs, nil)
	}
}

func attr(key, value string) companion.Attribute {
	return companion.Attribute{Namespace: "custom", Key: key, Value: value, Type: "single_line_text_field"}
}

func jpeg(name string) ImageUpload {
	return ImageUpload{Filename: name, ContentType: "image/jpeg", Data: []byte("jpeg:" + name)}
}

func validCreateInput() CreateInput {
	return CreateInput{
		ProfileInput: ProfileInput{
			UserName:    "mei@example.com",
			FirstName:   "Mei",
			LastName:    "Lin",
			Major:       "Early Childhood",
			Location:    "Sydney NSW",
			Description: "Patient and caring.",
			Language:    []string{"English", "普通话"},
		},
		Password: "secret1",
		Images:   []ImageUpload{jpeg("a.jpg")},
	}
}

func findAttr(attrs []companion.Attribute, key string) (companion.Attribute, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a, true
		}
	}
	return companion.Attribute{}, false
}
