package handler

import (
	"log/slog"
	"net/http"

	"github.com/tonmev/tonmev/internal/domain"
)

// OpportunityService is the slice of the strategy manager the opportunity
// handler needs.
type OpportunityService interface {
	Opportunities(limit int, strategyFilter string) []domain.Opportunity
	ClearOpportunities(strategyFilter string)
}

// OpportunityHandler serves the opportunity query and clear endpoints.
type OpportunityHandler struct {
	svc    OpportunityService
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(svc OpportunityService, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{svc: svc, logger: logger}
}

// listOpportunitiesResponse wraps the listing payload.
type listOpportunitiesResponse struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
	Count         int                  `json:"count"`
}

// List returns opportunities sorted by profit estimate descending.
// GET /api/opportunities?limit=50&strategy=arbitrage
func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	strategy := r.URL.Query().Get("strategy")

	opps := h.svc.Opportunities(limit, strategy)
	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, listOpportunitiesResponse{
		Opportunities: opps,
		Count:         len(opps),
	})
}

// Clear drops opportunity history, globally or for a single strategy.
// DELETE /api/opportunities?strategy=arbitrage
func (h *OpportunityHandler) Clear(w http.ResponseWriter, r *http.Request) {
	strategy := r.URL.Query().Get("strategy")
	h.svc.ClearOpportunities(strategy)

	h.logger.InfoContext(r.Context(), "opportunities cleared",
		slog.String("strategy", strategy),
	)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "cleared",
		"strategy": strategy,
	})
}
