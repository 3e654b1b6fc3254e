package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(rps int, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Limit(rps, burst, time.Minute))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return router
}

func doRequest(router *gin.Engine, ip string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":12345"
	router.ServeHTTP(w, req)
	return w.Code
}

func TestLimit_AllowsWithinBurst(t *testing.T) {
	router := newTestRouter(1, 3)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doRequest(router, "192.0.2.1"))
	}
}

func TestLimit_BlocksOverBurst(t *testing.T) {
	router := newTestRouter(1, 2)

	assert.Equal(t, http.StatusOK, doRequest(router, "192.0.2.2"))
	assert.Equal(t, http.StatusOK, doRequest(router, "192.0.2.2"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "192.0.2.2"))
}

func TestLimit_BucketsPerIP(t *testing.T) {
	router := newTestRouter(1, 1)

	assert.Equal(t, http.StatusOK, doRequest(router, "192.0.2.3"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "192.0.2.3"))
	// A different client still has a full bucket.
	assert.Equal(t, http.StatusOK, doRequest(router, "192.0.2.4"))
}
