package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return sr
}

func newTracedRouter(status int) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test-service"}))
	router.Use(SpanEnricher())
	router.GET("/api/v1/companions/:id", func(c *gin.Context) {
		c.JSON(status, gin.H{"ok": status < http.StatusBadRequest})
	})
	return router
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.Failf(t, "span not found", "no ended span named %q", name)
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.Use(SpanEnricher())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracingWithConfig_SpanPerRoute(t *testing.T) {
	sr := setupTestTracer(t)
	router := newTracedRouter(http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companions/42", nil)
	req.Header.Set(RequestIDHeader, "trace-req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	span := findSpan(t, sr, "GET /api/v1/companions/:id")
	v, ok := spanAttr(span, "request_id")
	require.True(t, ok, "request_id attribute not found in span")
	assert.Equal(t, "trace-req-1", v.AsString())
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestSpanEnricher_MarksErrors(t *testing.T) {
	tests := []struct {
		status  int
		message string
	}{
		{http.StatusNotFound, "Not Found"},
		{http.StatusConflict, "Conflict"},
		{http.StatusBadRequest, "Client Error"},
		{http.StatusTooManyRequests, "Rate Limited"},
		// otelgin sets its own status for 5xx after the chain returns
		{http.StatusServiceUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			sr := setupTestTracer(t)
			router := newTracedRouter(tt.status)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/companions/1", nil))

			span := findSpan(t, sr, "GET /api/v1/companions/:id")
			assert.Equal(t, codes.Error, span.Status().Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, span.Status().Description)
			}
			v, ok := spanAttr(span, "http.status_code")
			require.True(t, ok)
			assert.Equal(t, int64(tt.status), v.AsInt64())
		})
	}
}

func TestSpanEnricher_WithNoSpan(t *testing.T) {
	router := gin.New()
	router.Use(SpanEnricher())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
