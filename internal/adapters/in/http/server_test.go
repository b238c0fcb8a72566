package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ophttp "orderflow/internal/adapters/in/http"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, srv *ophttp.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	srv.Register(e)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	rec := serve(t, ophttp.NewServer(), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Healthy", rec.Body.String())
}

func TestServer_Ready(t *testing.T) {
	ok := ophttp.HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }}
	down := ophttp.HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	t.Run("should report every check", func(t *testing.T) {
		rec := serve(t, ophttp.NewServer(ok), "/ready")

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, map[string]string{"postgres": "ok"}, body)
	})

	t.Run("should fail when a dependency is down", func(t *testing.T) {
		rec := serve(t, ophttp.NewServer(ok, down), "/ready")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body ophttp.Error
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "connection refused", body.Checks["redis"])
		assert.Equal(t, "ok", body.Checks["postgres"])
	})
}
