package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscurator/internal/metrics"
)

func TestHealthHandler(t *testing.T) {
	m := &metrics.Metrics{IsHealthy: true}
	mux := monitoringMux(m)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	m.SetError("search API unavailable")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "search API unavailable", body["last_error"])
}

func TestMetricsHandler(t *testing.T) {
	m := &metrics.Metrics{}
	m.AddItemsSelected(7)

	rec := httptest.NewRecorder()
	monitoringMux(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["items_selected"])
	assert.NotContains(t, body, "llm_budget")
}

func TestMetricsHandler_IncludesBudget(t *testing.T) {
	m := &metrics.Metrics{}
	m.SetBudgetSource(func() map[string]interface{} {
		return map[string]interface{}{"total_used": 2, "gemini_limit": 5}
	})

	rec := httptest.NewRecorder()
	monitoringMux(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	budget, ok := body["llm_budget"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), budget["total_used"])
	assert.Equal(t, float64(5), budget["gemini_limit"])
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["collect"])
	assert.True(t, names["keywords"])
}
