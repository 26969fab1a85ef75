package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRateLimitedRouter(rps float64, burst int) *gin.Engine {
	router := gin.New()
	router.Use(IPRateLimitMiddleware(rps, burst, discardLogger()))
	router.POST("/v1/users", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"status": "ok"})
	})
	return router
}

func postFrom(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/users", nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w
}

func TestIPRateLimitMiddleware(t *testing.T) {
	t.Run("allows burst then rejects", func(t *testing.T) {
		router := newRateLimitedRouter(1.0, 3)

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusCreated, postFrom(router, "10.0.0.1:1000").Code, "request %d", i+1)
		}

		w := postFrom(router, "10.0.0.1:1000")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
	})

	t.Run("limits are independent per ip", func(t *testing.T) {
		router := newRateLimitedRouter(0.5, 1)

		assert.Equal(t, http.StatusCreated, postFrom(router, "10.0.0.1:1000").Code)
		assert.Equal(t, http.StatusTooManyRequests, postFrom(router, "10.0.0.1:2000").Code)
		assert.Equal(t, http.StatusCreated, postFrom(router, "10.0.0.2:1000").Code)
	})
}

func TestIPRateLimiterStore_SweepsIdleLimiters(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newIPRateLimiterStore(1, 1, func() time.Time { return now })

	store.getLimiter("10.0.0.1")
	store.getLimiter("10.0.0.2")
	assert.Equal(t, 2, store.size())

	now = now.Add(limiterIdleTimeout + limiterSweepInterval)
	store.getLimiter("10.0.0.3")

	assert.Equal(t, 1, store.size())
}

func TestIPRateLimiterStore_ReusesLimiter(t *testing.T) {
	store := newIPRateLimiterStore(1, 1, time.Now)

	first := store.getLimiter("10.0.0.1")
	second := store.getLimiter("10.0.0.1")

	assert.Same(t, first, second)
}
