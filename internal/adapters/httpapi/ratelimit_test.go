package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/clubs", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("10.0.0.1:1234"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: got %d", i, rec.Code)
		}
	}
	rec := do("10.0.0.1:5678")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("Retry-After: got %q", rec.Header().Get("Retry-After"))
	}

	// Other clients have their own bucket.
	if rec := do("10.0.0.2:1234"); rec.Code != http.StatusNoContent {
		t.Fatalf("other client: got %d", rec.Code)
	}

	now = now.Add(time.Second)
	if rec := do("10.0.0.1:1234"); rec.Code != http.StatusNoContent {
		t.Fatalf("after refill: got %d", rec.Code)
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	rl := NewRateLimiter(10, 10)
	rl.now = func() time.Time { return now }
	rl.limiterFor("a")
	now = now.Add(time.Minute)
	rl.limiterFor("b")

	if n := rl.Sweep(30 * time.Second); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, ok := rl.clients.Load("b"); !ok {
		t.Fatalf("expected b to remain")
	}
}
