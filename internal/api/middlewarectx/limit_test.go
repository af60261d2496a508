package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddleware(t *testing.T) {
	h := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RateLimitMiddleware(h)

	var passed, limited int
	for range 30 {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		mw(next).ServeHTTP(w, req)
		switch w.Code {
		case http.StatusOK:
			passed++
		case http.StatusTooManyRequests:
			limited++
		}
	}

	// Burst пропускает первые запросы, остальные упираются в лимит.
	assert.Positive(t, passed)
	assert.Positive(t, limited)
}
