package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/infrastructure/telemetry"
)

// ErrImageTooLarge is returned when a hosted image exceeds the size limit
var ErrImageTooLarge = errors.New("catalog: image too large")

// ImageFetcher downloads images already hosted on the backend CDN so they can
// be resent when the image list of a record is replaced
type ImageFetcher struct {
	httpClient *http.Client
	maxBytes   int64
	metrics    *telemetry.DirectoryMetrics
}

// NewImageFetcher creates an image fetcher. maxBytes bounds a single download.
func NewImageFetcher(timeout time.Duration, maxBytes int64, metrics *telemetry.DirectoryMetrics) *ImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = maxResponseSize
	}
	return &ImageFetcher{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
		metrics:    metrics,
	}
}

// FetchImage returns the bytes behind src
func (f *ImageFetcher) FetchImage(ctx context.Context, src string) (data []byte, err error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "catalog.fetch_image", telemetry.WithAttribute(telemetry.SpanAttrCatalogOp, "fetch_image"))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
		span.End()
		f.metrics.RecordCatalogRequest(ctx, "fetch_image", time.Since(start), err)
	}()

	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("%w: invalid image url %q", ErrRequestFailed, src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", companion.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, nil)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %w", companion.ErrCatalogUnavailable, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, f.maxBytes)
	}
	return data, nil
}
