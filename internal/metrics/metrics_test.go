package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/ping", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestHandlerExposesDomainCounters(t *testing.T) {
	m := New()
	m.RoomsCreated.Inc()
	m.RoomsDestroyed.WithLabelValues(ReasonExpired).Inc()
	m.WSConnections.Set(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "burnroom_rooms_created_total 1"))
	assert.True(t, strings.Contains(body, `burnroom_rooms_destroyed_total{reason="expired"} 1`))
	assert.True(t, strings.Contains(body, "burnroom_ws_connections 2"))
}

func TestNewUsesIsolatedRegistries(t *testing.T) {
	a, b := New(), New()
	a.MessagesTotal.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.MessagesTotal))
}
