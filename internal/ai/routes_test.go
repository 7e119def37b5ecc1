package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func setupAIRouter(t *testing.T, calls func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)) (http.Handler, *Registry) {
	t.Helper()
	registry := NewRegistry(setupSettings(t), DefaultModelID, nil)

	router := chi.NewRouter()
	RegisterRoutes(router, newTestClient(calls), registry)
	return router, registry
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestGeneratePlanSuccess(t *testing.T) {
	router, _ := setupAIRouter(t, func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
		return textMessage(`[{"time":"9-10","task":"standup"}]`), nil
	})

	rec := postJSON(t, router, "/generate-plan", map[string]any{"dailyPlan": "standup then emails"})
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	require.Equal(t, true, payload["success"])
	require.Equal(t, `[{"time":"9-10","task":"standup"}]`, payload["aiPlan"])

	metadata := payload["metadata"].(map[string]any)
	require.Equal(t, DefaultModelID, metadata["model"])
	require.EqualValues(t, 46, metadata["tokensUsed"])
	require.Contains(t, metadata, "latency")
}

func TestGeneratePlanRequiresInput(t *testing.T) {
	router, _ := setupAIRouter(t, nil)

	rec := postJSON(t, router, "/generate-plan", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeneratePlanRateLimitMapsTo429(t *testing.T) {
	router, _ := setupAIRouter(t, func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
		return nil, rateLimitErr()
	})

	rec := postJSON(t, router, "/generate-plan", map[string]any{"dailyPlan": "anything"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	payload := decode(t, rec)
	require.Equal(t, false, payload["success"])
	require.Equal(t, true, payload["retryable"])
}

func TestGeneratePlanUpstreamFailureMapsTo500(t *testing.T) {
	router, _ := setupAIRouter(t, func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
		return nil, &anthropic.Error{StatusCode: 503}
	})

	rec := postJSON(t, router, "/generate-plan", map[string]any{"dailyPlan": "anything"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	payload := decode(t, rec)
	require.NotContains(t, payload, "retryable")
}

func TestGenerateSuggestionsScheduleAware(t *testing.T) {
	router, _ := setupAIRouter(t, func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
		return textMessage("- batch your emails"), nil
	})

	rec := postJSON(t, router, "/generate-suggestions", map[string]any{
		"dailyPlan": "emails all day",
		"schedule":  []map[string]any{{"task": "emails"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	require.Equal(t, "- batch your emails", payload["suggestions"])
	metadata := payload["metadata"].(map[string]any)
	require.Equal(t, true, metadata["scheduleAware"])
}

func TestGenerateSuggestionsWithoutSchedule(t *testing.T) {
	router, _ := setupAIRouter(t, func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
		return textMessage("- start with the hard thing"), nil
	})

	rec := postJSON(t, router, "/generate-suggestions", map[string]any{"dailyPlan": "write the report"})
	require.Equal(t, http.StatusOK, rec.Code)

	metadata := decode(t, rec)["metadata"].(map[string]any)
	require.Equal(t, false, metadata["scheduleAware"])
}

func TestListModels(t *testing.T) {
	router, _ := setupAIRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	require.Equal(t, true, payload["success"])
	require.Equal(t, DefaultModelID, payload["currentModel"])
	require.Len(t, payload["models"].([]any), len(KnownModels))
}

func TestSetModelRejectsUnknown(t *testing.T) {
	router, registry := setupAIRouter(t, nil)

	rec := postJSON(t, router, "/api/models/set", map[string]any{"modelId": "not-a-real-model"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, DefaultModelID, registry.Current())

	rec = postJSON(t, router, "/api/models/set", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetModelUpdatesAndPersists(t *testing.T) {
	router, registry := setupAIRouter(t, nil)

	rec := postJSON(t, router, "/api/models/set", map[string]any{"modelId": "claude-sonnet-4-20250514"})
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	require.Equal(t, true, payload["success"])
	require.Equal(t, "claude-sonnet-4-20250514", payload["currentModel"])
	require.Equal(t, true, payload["persisted"])
	require.Equal(t, "claude-sonnet-4-20250514", registry.Current())
}
