package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterPerKey(t *testing.T) {
	rl := newRateLimiter(1, 2)
	now := time.Unix(1_700_000_000, 0)

	if !rl.allow("a", now) || !rl.allow("a", now) {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if rl.allow("a", now) {
		t.Fatal("expected third request to be limited")
	}
	if !rl.allow("b", now) {
		t.Fatal("expected other key to have its own bucket")
	}
	if !rl.allow("a", now.Add(time.Second)) {
		t.Fatal("expected a token after one second")
	}
}

func TestRateLimiterForgetsIdleKeys(t *testing.T) {
	rl := newRateLimiter(1, 1)
	now := time.Unix(1_700_000_000, 0)

	rl.allow("a", now)
	rl.allow("b", now.Add(idleLimiterTTL+time.Second))
	if _, ok := rl.limiters["a"]; ok {
		t.Fatal("expected idle limiter to be dropped")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/x", RateLimit(0.001, 1), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes: %v", codes)
	}

	r = gin.New()
	r.POST("/x", RateLimit(0, 0), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}
