package mw

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2], "burst exhausted")
	assert.Equal(t, http.StatusTooManyRequests, codes[3])

	// A different client has its own bucket.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCache(t *testing.T) {
	var hits atomic.Int32
	store := cache.New(time.Minute, time.Minute)

	r := gin.New()
	r.Use(Cache(store, time.Minute))
	r.GET("/data", func(c *gin.Context) {
		hits.Add(1)
		c.JSON(http.StatusOK, gin.H{"n": hits.Load()})
	})
	r.GET("/fail", func(c *gin.Context) {
		hits.Add(1)
		c.String(http.StatusInternalServerError, "boom")
	})
	r.POST("/data", func(c *gin.Context) {
		hits.Add(1)
		c.Status(http.StatusOK)
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	first := get("/data")
	require.Equal(t, http.StatusOK, first.Code)
	second := get("/data")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String(), "second request is served from cache")
	assert.Equal(t, int32(1), hits.Load())

	// Distinct URIs are distinct cache keys.
	get("/data?limit=10")
	assert.Equal(t, int32(2), hits.Load())

	// Error responses are not cached.
	get("/fail")
	get("/fail")
	assert.Equal(t, int32(4), hits.Load())

	// Non-GET requests bypass the cache.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/data", nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/data", nil))
	assert.Equal(t, int32(6), hits.Load())
}
