package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		router := NewOpsRouter(slog.Default(), map[string]Check{
			"ledger": func(context.Context) error { return nil },
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "ok", body["ledger"])
	})

	t.Run("failing check degrades", func(t *testing.T) {
		router := NewOpsRouter(slog.Default(), map[string]Check{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "connection refused", body["redis"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	NewOpsRouter(slog.Default(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	NewOpsRouter(slog.Default(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/certificates", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
