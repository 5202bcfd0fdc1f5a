package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(perMinute int) (*Limiter, *time.Time) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(2)

	steps := []struct {
		client  string
		advance time.Duration
		want    bool
	}{
		{"alice", 0, true},
		{"alice", time.Second, true},
		{"alice", time.Second, false},
		{"bob", 0, true},
		{"alice", 58 * time.Second, true},
	}
	for i, s := range steps {
		*now = now.Add(s.advance)
		if got := rl.Allow(s.client); got != s.want {
			t.Errorf("step %d: Allow(%s) = %v, want %v", i, s.client, got, s.want)
		}
	}
	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 2 {
		t.Errorf("GetMetrics() = %+v", m)
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(5)
	rl.Allow("alice")
	*now = now.Add(5 * time.Minute)
	rl.Allow("bob")
	*now = now.Add(6 * time.Minute)

	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Errorf("cleanupStaleEntries() = %d, want 1", n)
	}
	rl.Start()
	rl.Stop()
	rl.Stop()
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(1)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := rl.Middleware(func(r *http.Request) string { return r.Header.Get("X-Username") }, nil)(ok)

	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/limit", nil)
		req.Header.Set("X-Username", "alice")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "61" {
			t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}
