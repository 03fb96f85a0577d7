package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tonmev/tonmev/internal/domain"
	"github.com/tonmev/tonmev/internal/strategy"
)

// StrategyService is the slice of the strategy manager the strategy handler
// needs.
type StrategyService interface {
	Strategies() []strategy.Info
	UpdateConfig(ctx context.Context, name string, patch domain.ConfigPatch)
}

// StrategyHandler serves strategy listing and configuration endpoints.
type StrategyHandler struct {
	svc    StrategyService
	logger *slog.Logger
}

// NewStrategyHandler creates a StrategyHandler.
func NewStrategyHandler(svc StrategyService, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{svc: svc, logger: logger}
}

// listStrategiesResponse wraps the strategy listing.
type listStrategiesResponse struct {
	Strategies []strategy.Info `json:"strategies"`
}

// List returns every registered strategy with its enabled state and config.
// GET /api/strategies
func (h *StrategyHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listStrategiesResponse{Strategies: h.svc.Strategies()})
}

// PatchConfig merges a partial config into the named strategy. Unknown
// strategy names are accepted and ignored by the manager (logged there), so
// the response reflects acceptance rather than existence.
// PATCH /api/strategies/{name}/config
func (h *StrategyHandler) PatchConfig(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "strategy name is required")
		return
	}

	var patch domain.ConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(patch) == 0 {
		writeError(w, http.StatusBadRequest, "empty config patch")
		return
	}

	h.svc.UpdateConfig(r.Context(), name, patch)
	h.logger.InfoContext(r.Context(), "strategy config patch accepted",
		slog.String("strategy", name),
	)
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "accepted",
		"name":   name,
	})
}
