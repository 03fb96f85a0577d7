package handler

import (
	"net/http"

	"github.com/tonmev/tonmev/internal/domain"
)

// StatisticsService provides the aggregate view over all strategies.
type StatisticsService interface {
	Statistics() domain.Statistics
}

// StatisticsHandler serves the aggregate statistics endpoint.
type StatisticsHandler struct {
	svc StatisticsService
}

// NewStatisticsHandler creates a StatisticsHandler.
func NewStatisticsHandler(svc StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{svc: svc}
}

// Get returns per-strategy opportunity counts and profit aggregates.
// GET /api/statistics
func (h *StatisticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Statistics())
}
