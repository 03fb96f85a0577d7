package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tonmev/tonmev/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

func TestAuth(t *testing.T) {
	const key = "secret-key"

	run := func(apiKey string, mutate func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/opportunities", nil)
		if mutate != nil {
			mutate(req)
		}
		rec := httptest.NewRecorder()
		Auth(apiKey)(okHandler()).ServeHTTP(rec, req)
		return rec
	}

	t.Run("disabled with empty key", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, run("", nil).Code)
	})

	t.Run("missing credentials", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, run(key, nil).Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		rec := run(key, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+key)
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("api key header", func(t *testing.T) {
		rec := run(key, func(r *http.Request) {
			r.Header.Set("X-API-Key", key)
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		rec := run(key, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer wrong")
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("health always exempt", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		Auth(key)(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

// scriptedLimiter returns canned rate-limit decisions.
type scriptedLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *scriptedLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

var _ domain.RateLimiter = (*scriptedLimiter)(nil)

func TestRateLimit(t *testing.T) {
	run := func(l *scriptedLimiter, mutate func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/opportunities", nil)
		req.RemoteAddr = "192.0.2.10:4321"
		if mutate != nil {
			mutate(req)
		}
		rec := httptest.NewRecorder()
		RateLimit(l, 60, time.Minute, testLogger())(okHandler()).ServeHTTP(rec, req)
		return rec
	}

	t.Run("allowed", func(t *testing.T) {
		l := &scriptedLimiter{allow: true}
		assert.Equal(t, http.StatusOK, run(l, nil).Code)
		assert.Equal(t, []string{"tonmev:rl:api:192.0.2.10"}, l.keys)
	})

	t.Run("limited", func(t *testing.T) {
		l := &scriptedLimiter{allow: false}
		rec := run(l, nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	})

	t.Run("fails open on limiter error", func(t *testing.T) {
		l := &scriptedLimiter{err: errors.New("redis down")}
		assert.Equal(t, http.StatusOK, run(l, nil).Code)
	})

	t.Run("forwarded-for preferred", func(t *testing.T) {
		l := &scriptedLimiter{allow: true}
		run(l, func(r *http.Request) {
			r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
		})
		assert.Equal(t, []string{"tonmev:rl:api:198.51.100.7"}, l.keys)
	})
}

func TestCORS(t *testing.T) {
	run := func(allowed []string, origin, method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/opportunities", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		CORS(allowed)(okHandler()).ServeHTTP(rec, req)
		return rec
	}

	t.Run("empty allowlist permits all", func(t *testing.T) {
		rec := run(nil, "https://dash.example.com", http.MethodGet)
		assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origin", func(t *testing.T) {
		rec := run([]string{"https://dash.example.com"}, "https://dash.example.com", http.MethodGet)
		assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unlisted origin gets no headers", func(t *testing.T) {
		rec := run([]string{"https://dash.example.com"}, "https://evil.example.com", http.MethodGet)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, rec.Code, "request itself still passes")
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		rec := run(nil, "https://dash.example.com", http.MethodOptions)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NotEqual(t, "ok", rec.Body.String())
	})
}
