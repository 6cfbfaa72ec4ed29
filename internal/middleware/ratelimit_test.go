package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestLimiter(t *testing.T, config RateLimitConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(config)
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_AllowsBurstThenDenies(t *testing.T) {
	rl := newTestLimiter(t, RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         3,
		CleanupInterval:   time.Minute,
	})

	for i := 0; i < 3; i++ {
		if !rl.Allow("client") {
			t.Fatalf("request %d within burst was denied", i+1)
		}
	}
	if rl.Allow("client") {
		t.Error("request beyond burst was allowed")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := newTestLimiter(t, RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})

	if !rl.Allow("a") {
		t.Fatal("first request for key a denied")
	}
	if rl.Allow("a") {
		t.Error("second request for key a allowed")
	}
	if !rl.Allow("b") {
		t.Error("first request for key b denied; buckets are not independent")
	}
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := newTestLimiter(t, RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
	})

	rl.Allow("client")
	rl.Allow("client")
	if rl.Allow("client") {
		t.Fatal("bucket should be empty")
	}

	// Backdate the bucket instead of sleeping. 60 rpm refills one token per
	// second, so two seconds restores two tokens.
	rl.mu.Lock()
	rl.entries["client"].lastUpdate = time.Now().Add(-2 * time.Second)
	rl.mu.Unlock()

	if !rl.Allow("client") {
		t.Error("bucket did not refill after elapsed time")
	}
}

func TestRateLimiter_RefillCapsAtBurst(t *testing.T) {
	rl := newTestLimiter(t, RateLimitConfig{
		RequestsPerMinute: 600,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
	})

	rl.Allow("client")
	rl.mu.Lock()
	rl.entries["client"].lastUpdate = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	if got := rl.RemainingTokens("client"); got != 2 {
		t.Errorf("RemainingTokens = %d, want the burst cap 2", got)
	}
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	rl := newTestLimiter(t, RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(rl))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := performRequest(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}
	if first.Header().Get("X-RateLimit-Limit") != "60" {
		t.Errorf("X-RateLimit-Limit = %q, want 60", first.Header().Get("X-RateLimit-Limit"))
	}

	second := performRequest(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", second.Header().Get("Retry-After"))
	}
}

func TestRateLimitKey_PrefersUserOverIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if got := rateLimitKey(c); got == "" || got[:3] != "ip:" {
		t.Errorf("anonymous key = %q, want an ip: key", got)
	}

	c.Set(UserIDKey, "user-1")
	if got := rateLimitKey(c); got != "user:user-1" {
		t.Errorf("authenticated key = %q, want %q", got, "user:user-1")
	}
}
