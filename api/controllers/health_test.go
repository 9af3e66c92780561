package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amontesdeoca/equiptrack-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(context.Context) error {
	return s.err
}

func healthConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthReadyAllDependenciesUp(t *testing.T) {
	handler := HealthReady(healthConfig(), nil, HealthDeps(&stubPinger{}, &stubPinger{}))

	resp := httptest.NewRecorder()
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var payload struct {
		Data struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Equal(t, "ready", payload.Data.Status)
	require.Equal(t, "ok", payload.Data.Checks["database"])
	require.Equal(t, "ok", payload.Data.Checks["redis"])
}

func TestHealthReadyDegradesWhenDependencyDown(t *testing.T) {
	handler := HealthReady(healthConfig(), nil, HealthDeps(
		&stubPinger{},
		&stubPinger{err: errors.New("connection refused")},
	))

	resp := httptest.NewRecorder()
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	var payload struct {
		Data struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Equal(t, "degraded", payload.Data.Status)
	require.Equal(t, "ok", payload.Data.Checks["database"])
	require.Equal(t, "unavailable", payload.Data.Checks["redis"])
}
