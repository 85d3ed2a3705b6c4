package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(reg *prometheus.Registry) (*gin.Engine, *PrometheusMiddleware) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	pm := NewPrometheusMiddleware("test", reg)
	r.Use(NewRequestLogger(nil).Handler(), pm.Handler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	pm.RegisterMetricsEndpoint(r, reg)
	return r, pm
}

func TestPrometheusMiddleware_CountsErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, pm := newRouter(reg)

	for _, path := range []string{"/ok", "/fail", "/fail", "/missing"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "/fail", "500")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.reqInflight))
}

func TestRegisterMetricsEndpoint_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, _ := newRouter(reg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-Id"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_request_duration_seconds")
}
