package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	err error
}

func (s stubChecker) Ping(context.Context) error { return s.err }

func TestHealth(t *testing.T) {
	h := NewHealthHandler(stubChecker{}, stubChecker{}, "1.0.0")

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, serviceName, response.Service)
	assert.Equal(t, "1.0.0", response.Version)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		db         HealthChecker
		redis      HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"all dependencies healthy", stubChecker{}, stubChecker{}, http.StatusOK, "ready"},
		{"database down", stubChecker{err: errors.New("connection refused")}, stubChecker{}, http.StatusServiceUnavailable, "not ready"},
		{"standalone mode", nil, nil, http.StatusOK, "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.redis, "1.0.0")

			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			require.Equal(t, tt.wantCode, rec.Code)

			var response HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Len(t, response.Services, 2)
		})
	}
}

func TestReady_DisabledDependencyReported(t *testing.T) {
	h := NewHealthHandler(nil, stubChecker{}, "1.0.0")

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "disabled", response.Services["database"])
	assert.Equal(t, "healthy", response.Services["redis"])
}

func TestLive(t *testing.T) {
	h := NewHealthHandler(nil, nil, "1.0.0")

	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "alive", response["status"])
}
