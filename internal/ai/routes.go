package ai

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskpilot/taskpilot-go/internal/api"
	"github.com/taskpilot/taskpilot-go/internal/apperrors"
)

// RegisterRoutes wires AI generation and model selection routes.
func RegisterRoutes(router chi.Router, client *Client, registry *Registry) {
	router.Method(http.MethodPost, "/generate-plan", api.Handler(generatePlan(client, registry)))
	router.Method(http.MethodPost, "/generate-suggestions", api.Handler(generateSuggestions(client, registry)))
	router.Method(http.MethodGet, "/api/models", api.Handler(listModels(registry)))
	router.Method(http.MethodPost, "/api/models/set", api.Handler(setModel(registry)))
}

// GeneratePlanInput is the request body for POST /generate-plan.
type GeneratePlanInput struct {
	DailyPlan string `json:"dailyPlan"`
}

// generatePlan handles POST /generate-plan
func generatePlan(client *Client, registry *Registry) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var input GeneratePlanInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body")
		}
		if input.DailyPlan == "" {
			return apperrors.NewValidationError("dailyPlan is required")
		}

		model := registry.Current()
		result, err := client.GeneratePlan(r.Context(), model, input.DailyPlan)
		if err != nil {
			return mapUpstreamError(err, "Failed to generate plan")
		}

		return api.WriteJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"aiPlan":  result.Text,
			"metadata": map[string]any{
				"model":      result.Model,
				"latency":    result.Latency.Milliseconds(),
				"tokensUsed": result.TokensUsed,
			},
		})
	}
}

// GenerateSuggestionsInput is the request body for POST /generate-suggestions.
// Schedule optionally carries the current schedule so suggestions can
// reference it.
type GenerateSuggestionsInput struct {
	DailyPlan string          `json:"dailyPlan"`
	Schedule  json.RawMessage `json:"schedule"`
}

// generateSuggestions handles POST /generate-suggestions
func generateSuggestions(client *Client, registry *Registry) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var input GenerateSuggestionsInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body")
		}
		if input.DailyPlan == "" {
			return apperrors.NewValidationError("dailyPlan is required")
		}

		scheduleJSON := ""
		if len(input.Schedule) > 0 && string(input.Schedule) != "null" {
			scheduleJSON = string(input.Schedule)
		}

		model := registry.Current()
		result, err := client.GenerateSuggestions(r.Context(), model, input.DailyPlan, scheduleJSON)
		if err != nil {
			return mapUpstreamError(err, "Failed to generate suggestions")
		}

		return api.WriteJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"suggestions": result.Text,
			"metadata": map[string]any{
				"model":         result.Model,
				"latency":       result.Latency.Milliseconds(),
				"scheduleAware": scheduleJSON != "",
			},
		})
	}
}

// mapUpstreamError classifies an upstream failure: rate limiting that
// survived the retry budget maps to 429 with retryable set, everything else
// to 500.
func mapUpstreamError(err error, fallbackMessage string) error {
	if IsRateLimited(err) {
		return apperrors.NewRateLimitError("AI service is busy, please try again shortly")
	}
	return apperrors.NewUpstreamError(fallbackMessage)
}

// listModels handles GET /api/models
func listModels(registry *Registry) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"models":       KnownModels,
			"currentModel": registry.Current(),
		})
	}
}

// SetModelInput is the request body for POST /api/models/set.
type SetModelInput struct {
	ModelID string `json:"modelId"`
}

// setModel handles POST /api/models/set
func setModel(registry *Registry) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var input SetModelInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body")
		}
		if input.ModelID == "" {
			return apperrors.NewValidationError("modelId is required")
		}
		if !IsKnownModel(input.ModelID) {
			return apperrors.NewValidationError("Unknown model: " + input.ModelID)
		}

		persisted := registry.Set(input.ModelID)

		return api.WriteJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"message":      "Model updated",
			"currentModel": registry.Current(),
			"persisted":    persisted,
		})
	}
}
