package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[key]++
	return m.counts[key], nil
}

func newEngine(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func hit(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	return w
}

func TestRateLimitWindow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := time.Date(2024, 1, 1, 12, 0, 10, 0, time.UTC)
	r := newEngine(rateLimit(&memCounter{}, 2, time.Minute, logger, func() time.Time { return clock }))

	for i := 0; i < 2; i++ {
		if w := hit(r); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w := hit(r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "50" {
		t.Fatalf("unexpected Retry-After: %q", got)
	}

	clock = clock.Add(time.Minute)
	if w := hit(r); w.Code != http.StatusOK {
		t.Fatalf("next window: expected 200, got %d", w.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := newEngine(RateLimit(&memCounter{err: errors.New("down")}, 1, time.Minute, logger))
	for i := 0; i < 3; i++ {
		if w := hit(r); w.Code != http.StatusOK {
			t.Fatalf("expected 200 while counter is down, got %d", w.Code)
		}
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	r := newEngine(RequestLogger(logger))

	hit(r)
	out := buf.String()
	for _, want := range []string{`"route":"/ping"`, `"status":200`, `"method":"GET"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line missing %s: %s", want, out)
		}
	}
}
