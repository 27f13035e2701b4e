package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"v1": {RatePerSecond: 1, Burst: 1},
	}, nil)

	handler := limiter.Middleware("v1")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/epochs/7/caps", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesRoutes(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"reads":  {RatePerSecond: 1, Burst: 1},
		"writes": {RatePerSecond: 1, Burst: 1},
	}, nil)

	readHandler := limiter.Middleware("reads")(okHandler())
	writeHandler := limiter.Middleware("writes")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/epochs/7/caps", nil)
	req.Header.Set("X-API-Key", "tenant-A")
	res := httptest.NewRecorder()
	readHandler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected read request to succeed, got %d", res.Code)
	}

	writeReq := httptest.NewRequest(http.MethodPut, "/v1/epochs/7/reserves", nil)
	writeReq.Header.Set("X-API-Key", "tenant-A")
	writeRes := httptest.NewRecorder()
	writeHandler.ServeHTTP(writeRes, writeReq)
	if writeRes.Code != http.StatusOK {
		t.Fatalf("expected first write request to succeed, got %d", writeRes.Code)
	}

	writeRes = httptest.NewRecorder()
	writeHandler.ServeHTTP(writeRes, writeReq)
	if writeRes.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second write request to hit limit, got %d", writeRes.Code)
	}
}

func TestRateLimiterAppliesRouteTokens(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"v1": {
			RatePerSecond: 5,
			Burst:         5,
			DefaultTokens: 1,
			Tokens: map[string]int{
				"PUT /v1/epochs/7/reserves": 3,
			},
		},
	}, nil)
	frozen := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return frozen }

	handler := limiter.Middleware("v1")(okHandler())

	req := httptest.NewRequest(http.MethodPut, "/v1/epochs/7/reserves", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first ingest request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second ingest request to exhaust burst, got %d", res.Code)
	}

	// A cheaper route still fits in the remaining burst.
	capsReq := httptest.NewRequest(http.MethodGet, "/v1/epochs/7/caps", nil)
	capsRes := httptest.NewRecorder()
	handler.ServeHTTP(capsRes, capsReq)
	if capsRes.Code != http.StatusOK {
		t.Fatalf("expected caps route to succeed with default token cost, got %d", capsRes.Code)
	}
}

func TestRateLimiterPrefersAPIKeyOverIP(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"v1": {RatePerSecond: 1, Burst: 1},
	}, nil)

	handler := limiter.Middleware("v1")(okHandler())

	for _, tenant := range []string{"tenant-A", "tenant-B"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/epochs/7/caps", nil)
		req.Header.Set("X-API-Key", tenant)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("expected %s request to succeed, got %d", tenant, res.Code)
		}
	}
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{"v1": {RatePerSecond: 1, Burst: 1}}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }

	limiter.obtainLimiter("a", RateLimit{})
	now = now.Add(2 * visitorTTL)
	limiter.obtainLimiter("b", RateLimit{})

	if _, ok := limiter.visitors["a"]; ok {
		t.Fatalf("expected idle visitor to be evicted")
	}
	if len(limiter.visitors) != 1 {
		t.Fatalf("expected one visitor, got %d", len(limiter.visitors))
	}
}

func TestClientIDForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientID(req); got != "203.0.113.9" {
		t.Fatalf("unexpected client id %q", got)
	}
}
