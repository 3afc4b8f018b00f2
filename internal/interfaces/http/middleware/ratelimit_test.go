package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLimiter returns a limiter with a controllable clock
func newTestLimiter(t *testing.T, limit int, period time.Duration) (*RateLimiter, *time.Time) {
	t.Helper()
	rl := NewRateLimiter(limit, period)
	t.Cleanup(rl.Stop)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 5, time.Minute)

		for i := 0; i < 5; i++ {
			assert.True(t, rl.Allow("client1"), "request %d should be allowed", i+1)
		}
		assert.False(t, rl.Allow("client1"))
	})

	t.Run("separate limits per client", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 2, time.Minute)

		assert.True(t, rl.Allow("clientA"))
		assert.True(t, rl.Allow("clientA"))
		assert.False(t, rl.Allow("clientA"))

		assert.True(t, rl.Allow("clientB"))
	})

	t.Run("resets after the window", func(t *testing.T) {
		rl, now := newTestLimiter(t, 1, time.Minute)

		assert.True(t, rl.Allow("client3"))
		assert.False(t, rl.Allow("client3"))

		*now = now.Add(time.Minute)
		assert.True(t, rl.Allow("client3"))
	})

	t.Run("remaining counts down", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 5, time.Minute)

		assert.Equal(t, 5, rl.Remaining("newclient"))
		rl.Allow("newclient")
		rl.Allow("newclient")
		assert.Equal(t, 3, rl.Remaining("newclient"))
	})

	t.Run("cleanup drops expired windows", func(t *testing.T) {
		rl, now := newTestLimiter(t, 5, time.Minute)
		rl.Allow("old")

		*now = now.Add(2 * time.Minute)
		rl.cleanup()

		rl.mu.Lock()
		defer rl.mu.Unlock()
		assert.Empty(t, rl.clients)
	})

	t.Run("concurrent access never exceeds the limit", func(t *testing.T) {
		rl := NewRateLimiter(100, time.Minute)
		defer rl.Stop()

		var allowed atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if rl.Allow("shared") {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(100), allowed.Load())
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		rl.Stop()
		rl.Stop()
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 2, time.Minute)

	router := gin.New()
	router.Use(RequestID())
	router.POST("/api/v1/companions", RateLimit(rl), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/companions", nil)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := send("10.0.0.1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusCreated, send("10.0.0.1").Code)

	w = send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")

	// Another client is unaffected
	assert.Equal(t, http.StatusCreated, send("10.0.0.2").Code)
}
