package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/exitrisk/internal/handler"
)

func setupLimitedRouter(limits ...handler.Limit) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler.RateLimiter("test", limits...))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func hit(r http.Handler, remote string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_429AfterBurst(t *testing.T) {
	r := setupLimitedRouter(handler.PerMinute(5))

	for i := 0; i < 5; i++ {
		if code := hit(r, "10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := hit(r, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", code)
	}

	// A different client has its own bucket.
	if code := hit(r, "10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("other client: expected 200, got %d", code)
	}
}

func TestRateLimiter_tightestLimitWins(t *testing.T) {
	r := setupLimitedRouter(handler.PerHour(100), handler.PerMinute(2))

	hit(r, "10.0.0.3:1")
	hit(r, "10.0.0.3:1")
	if code := hit(r, "10.0.0.3:1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
}

func TestRateLimiter_disabled(t *testing.T) {
	r := setupLimitedRouter(handler.PerMinute(0))
	for i := 0; i < 50; i++ {
		if code := hit(r, "10.0.0.4:1"); code != http.StatusOK {
			t.Fatalf("expected limiter to be disabled, got %d", code)
		}
	}
}
