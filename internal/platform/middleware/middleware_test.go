package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hemobank/hemobank/internal/platform/auth"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	lim := newLimiter(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 2})
	now := time.Now()

	for i := 0; i < 2; i++ {
		if ok, _ := lim.allow("station-1", now); !ok {
			t.Fatalf("request %d within burst denied", i+1)
		}
	}
	ok, retryAfter := lim.allow("station-1", now)
	if ok {
		t.Fatal("request beyond burst allowed")
	}
	if retryAfter < 1 {
		t.Errorf("expected a positive Retry-After, got %d", retryAfter)
	}

	// A second elapses, the bucket refills back to its cap.
	if ok, _ := lim.allow("station-1", now.Add(time.Second)); !ok {
		t.Error("refilled bucket denied")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	lim := newLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	now := time.Now()

	if ok, _ := lim.allow("nurse-a", now); !ok {
		t.Fatal("first caller denied")
	}
	if ok, _ := lim.allow("nurse-b", now); !ok {
		t.Error("second caller must not share the first caller's bucket")
	}
	if ok, _ := lim.allow("nurse-a", now); ok {
		t.Error("exhausted caller allowed")
	}
}

func TestLimiterEvictsIdleBuckets(t *testing.T) {
	lim := newLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	now := time.Now()

	lim.allow("old-badge", now)
	lim.allow("fresh-badge", now.Add(11*time.Minute))

	lim.mu.Lock()
	defer lim.mu.Unlock()
	if _, ok := lim.buckets["old-badge"]; ok {
		t.Error("idle bucket survived eviction")
	}
	if _, ok := lim.buckets["fresh-badge"]; !ok {
		t.Error("active bucket evicted")
	}
}

func TestRateLimitKeysAuthenticatedUser(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	request := func(userID uuid.UUID) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "10.0.0.7")
		ctx := context.WithValue(req.Context(), auth.UserIDKey, userID.String())
		ctx = context.WithValue(ctx, auth.UserRolesKey, []string{auth.RoleNurse})
		return handler(e.NewContext(req.WithContext(ctx), httptest.NewRecorder()))
	}

	busy := uuid.New()
	if err := request(busy); err != nil {
		t.Fatalf("first request denied: %v", err)
	}
	err := request(busy)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for the exhausted user, got %v", err)
	}

	// Another user behind the same clinic IP keeps their own bucket.
	if err := request(uuid.New()); err != nil {
		t.Errorf("co-located user throttled: %v", err)
	}
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	e := echo.New()
	handler := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	err := handler(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err)
	}
}
