package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonmev/tonmev/internal/server/handler"
	"github.com/tonmev/tonmev/internal/strategy"
	"github.com/tonmev/tonmev/internal/venue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg Config) (*Server, *strategy.Manager) {
	t.Helper()
	logger := testLogger()
	manager := strategy.NewManager(nil, logger)

	handlers := Handlers{
		Health:        handler.NewHealthHandler(),
		Opportunities: handler.NewOpportunityHandler(manager, logger),
		Strategies:    handler.NewStrategyHandler(manager, logger),
		Statistics:    handler.NewStatisticsHandler(manager),
	}
	return New(cfg, handlers, nil, nil, logger), manager
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServerRoutes(t *testing.T) {
	srv, _ := newTestServer(t, Config{Port: 0})

	t.Run("health", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	})

	t.Run("opportunities", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":0`)
	})

	t.Run("clear opportunities", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodDelete, "/api/opportunities", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("strategies", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/strategies", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("statistics", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total_strategies":0`)
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodPost, "/api/opportunities", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("no ws route without hub", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/ws", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServerPatchStrategyConfig(t *testing.T) {
	srv, manager := newTestServer(t, Config{Port: 0})
	manager.Register(strategy.NewSandwich(strategy.DefaultSandwichConfig(), venue.Default(), testLogger()))

	req := httptest.NewRequest(http.MethodPatch, "/api/strategies/sandwich/config",
		strings.NewReader(`{"enabled":false}`))
	rec := serve(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	infos := manager.Strategies()
	require.Len(t, infos, 1)
	assert.False(t, infos[0].Enabled)
}

func TestServerAuth(t *testing.T) {
	srv, _ := newTestServer(t, Config{Port: 0, APIKey: "hunter2"})

	t.Run("health open", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("api locked", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("api with key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/opportunities", nil)
		req.Header.Set("X-API-Key", "hunter2")
		rec := serve(srv, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
