package telemetry

import (
	"context"
	"time"
)

const directoryMeterName = "companion-directory"

// Outcome attribute values
const (
	OutcomeSuccess  = "success"
	OutcomePartial  = "partial"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// DirectoryMetrics holds the business and upstream instruments of the
// directory. A nil *DirectoryMetrics records nothing.
type DirectoryMetrics struct {
	companionsCreated *Counter
	companionsUpdated *Counter
	searches          *Counter
	catalogRequests   *Counter
	catalogDuration   *Histogram
	attributeErrors   *Counter
}

// NewDirectoryMetrics creates the directory instruments from mp
func NewDirectoryMetrics(mp *MeterProvider) (*DirectoryMetrics, error) {
	meter := mp.Meter(directoryMeterName)

	created, err := NewCounter(meter, "companion_created_total", "Companion profiles created", "{profile}")
	if err != nil {
		return nil, err
	}
	updated, err := NewCounter(meter, "companion_updated_total", "Companion profile updates", "{profile}")
	if err != nil {
		return nil, err
	}
	searches, err := NewCounter(meter, "companion_search_total", "Public listing searches", "{search}")
	if err != nil {
		return nil, err
	}
	requests, err := NewCounter(meter, "catalog_request_total", "Requests sent to the catalog backend", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "catalog_request_duration_seconds",
		Description: "Catalog backend request latency in seconds",
		Unit:        "s",
		Boundaries:  UpstreamDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	attrErrors, err := NewCounter(meter, "catalog_attribute_errors_total", "Attributes rejected by the catalog backend", "{attribute}")
	if err != nil {
		return nil, err
	}

	return &DirectoryMetrics{
		companionsCreated: created,
		companionsUpdated: updated,
		searches:          searches,
		catalogRequests:   requests,
		catalogDuration:   duration,
		attributeErrors:   attrErrors,
	}, nil
}

// RecordCreated counts a creation with outcome success or partial
func (m *DirectoryMetrics) RecordCreated(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.companionsCreated.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordUpdated counts an update attempt by outcome
func (m *DirectoryMetrics) RecordUpdated(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.companionsUpdated.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordSearch counts a listing search
func (m *DirectoryMetrics) RecordSearch(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.searches.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordCatalogRequest records one backend call
func (m *DirectoryMetrics) RecordCatalogRequest(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailed
	}
	m.catalogRequests.Inc(ctx, AttrOperation.String(operation), AttrOutcome.String(outcome))
	m.catalogDuration.RecordDuration(ctx, d, AttrOperation.String(operation))
}

// RecordAttributeErrors counts attributes the backend refused to store
func (m *DirectoryMetrics) RecordAttributeErrors(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.attributeErrors.Add(ctx, int64(n))
}
