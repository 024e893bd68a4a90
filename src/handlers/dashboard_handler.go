// backend/src/handlers/dashboard_handler.go
package handlers

import (
	"net/http"

	"github.com/username/contazen/backend/src/logger"
	"github.com/username/contazen/backend/src/services"
	"github.com/username/contazen/backend/src/utils"
)

type DashboardHandler struct {
	summaryService services.SummaryService
}

func NewDashboardHandler(summaryService services.SummaryService) *DashboardHandler {
	return &DashboardHandler{summaryService: summaryService}
}

func (h *DashboardHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	summary, err := h.summaryService.GetSummary(userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to build dashboard summary", "error", err)
		sendJSONError(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, summary, http.StatusOK)
}
