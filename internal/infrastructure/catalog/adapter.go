package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Errors for catalog requests
var (
	// ErrRequestFailed is returned when the backend rejects a request
	ErrRequestFailed = errors.New("catalog: request failed")
	// ErrUnauthorized is returned for 401 and 403 responses
	ErrUnauthorized = errors.New("catalog: access denied")
	// ErrNotFound is returned for 404 responses
	ErrNotFound = errors.New("catalog: not found")
	// ErrInvalidResponse is returned when a response body cannot be decoded
	ErrInvalidResponse = errors.New("catalog: invalid response")
	// ErrGraphQL is returned when a GraphQL call reports top-level errors
	ErrGraphQL = errors.New("catalog: graphql error")
)

// Compile-time interface checks
var (
	_ companion.Catalog      = (*Adapter)(nil)
	_ companion.ImageFetcher = (*ImageFetcher)(nil)
)

// Adapter implements companion.Catalog against a Shopify-style Admin API.
// Product records carry the record-level fields and images; metafields carry
// the attributes. Every method is a single logical call with no retries.
type Adapter struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *telemetry.DirectoryMetrics
}

// AdapterOption configures an Adapter
type AdapterOption func(*Adapter)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) AdapterOption {
	return func(a *Adapter) {
		a.httpClient = client
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics recorder for backend calls
func WithMetrics(m *telemetry.DirectoryMetrics) AdapterOption {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// NewAdapter creates a new catalog adapter
func NewAdapter(config *Config, opts ...AdapterOption) (*Adapter, error) {
	if config == nil {
		return nil, ErrConfigMissingShopDomain
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// observe starts a client span for op and returns a function that ends it
// and records the call
func (a *Adapter) observe(ctx context.Context, op string, opts ...telemetry.SpanOption) (context.Context, trace.Span, func(error)) {
	start := time.Now()
	opts = append(opts,
		telemetry.WithAttribute(telemetry.SpanAttrCatalogOp, op),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	ctx, span := telemetry.StartSpan(ctx, "catalog."+op, opts...)
	return ctx, span, func(err error) {
		if err != nil {
			telemetry.RecordError(span, err)
		}
		span.End()
		a.metrics.RecordCatalogRequest(ctx, op, time.Since(start), err)
	}
}

// ---------------------------------------------------------------------------
// HTTP helpers
// ---------------------------------------------------------------------------

// doJSON sends a JSON request and decodes a JSON response into out.
// It returns the response headers so callers can read pagination links.
func (a *Adapter) doJSON(ctx context.Context, method, endpoint string, body, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("catalog: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("catalog: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", companion.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", companion.ErrCatalogUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, statusError(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.Header, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
	}
	return resp.Header, nil
}

// statusError maps a non-2xx response to an error carrying the status code
func statusError(status int, body []byte) error {
	msg := errorMessage(body)
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", ErrNotFound, status)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", ErrUnauthorized, status, msg)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", companion.ErrCatalogUnavailable, status, msg)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, status, msg)
	}
}

// errorMessage extracts a readable message from a REST error body. The
// backend returns either a string or an object of field messages.
func errorMessage(body []byte) string {
	var parsed restErrorBody
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Errors) == 0 {
		return truncate(string(body), 200)
	}
	var s string
	if err := json.Unmarshal(parsed.Errors, &s); err == nil {
		return s
	}
	var fields map[string][]string
	if err := json.Unmarshal(parsed.Errors, &fields); err == nil {
		parts := make([]string, 0, len(fields))
		for field, msgs := range fields {
			parts = append(parts, field+" "+strings.Join(msgs, ", "))
		}
		return strings.Join(parts, "; ")
	}
	return truncate(string(parsed.Errors), 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// graphQL executes a GraphQL document and decodes its data into out
func (a *Adapter) graphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	var resp graphQLResponse
	if _, err := a.doJSON(ctx, http.MethodPost, a.config.graphQLURL(), graphQLRequest{Query: query, Variables: variables}, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		throttled := false
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
			if e.Extensions.Code == "THROTTLED" {
				throttled = true
			}
		}
		if throttled {
			return fmt.Errorf("%w: HTTP 429: %s", companion.ErrCatalogUnavailable, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(msgs, "; "))
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
	}
	return nil
}

// productGID returns the global id of a product
func productGID(id int64) string {
	return fmt.Sprintf("gid://shopify/Product/%d", id)
}

// parseGID returns the numeric id at the end of a global id
func parseGID(gid string) (int64, bool) {
	idx := strings.LastIndexByte(gid, '/')
	if idx < 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(gid[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// nextPageToken extracts the page_info cursor of the rel="next" link
func nextPageToken(h http.Header) string {
	for _, link := range strings.Split(h.Get("Link"), ",") {
		parts := strings.Split(link, ";")
		if len(parts) < 2 {
			continue
		}
		isNext := false
		for _, p := range parts[1:] {
			if strings.TrimSpace(p) == `rel="next"` {
				isNext = true
			}
		}
		if !isNext {
			continue
		}
		raw := strings.Trim(strings.TrimSpace(parts[0]), "<>")
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		return u.Query().Get("page_info")
	}
	return ""
}
