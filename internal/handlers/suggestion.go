package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glancehq/glance-backend/internal/services"
	"github.com/glancehq/glance-backend/internal/types"
)

type SuggestionHandler struct {
	bus       *services.ConfirmBus
	scheduler *services.Scheduler
}

func NewSuggestionHandler(bus *services.ConfirmBus, scheduler *services.Scheduler) *SuggestionHandler {
	return &SuggestionHandler{bus: bus, scheduler: scheduler}
}

// GET /api/suggestion/latest
func (h *SuggestionHandler) GetLatest(c *gin.Context) {
	sug := h.bus.Latest()
	if sug == nil {
		RespondError(c, http.StatusNotFound, "no_suggestion", fmt.Errorf("no suggestion pending"))
		return
	}
	RespondOK(c, gin.H{"suggestion": sug, "state": h.scheduler.State()})
}

// POST /api/suggestion/response
func (h *SuggestionHandler) PostResponse(c *gin.Context) {
	var resp types.UserResponse
	if err := c.ShouldBindJSON(&resp); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_response", err)
		return
	}
	h.bus.SubmitResponse(resp)
	RespondOK(c, gin.H{"received": true})
}

// POST /api/summary/manual
func (h *SuggestionHandler) PostManualSummary(c *gin.Context) {
	var manual types.ManualSummary
	if err := c.ShouldBindJSON(&manual); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_manual_summary", err)
		return
	}
	if manual.Manual && manual.Text == "" {
		RespondError(c, http.StatusBadRequest, "empty_manual_summary", fmt.Errorf("manual summary requires text"))
		return
	}
	h.bus.SubmitManualSummary(manual)
	RespondOK(c, gin.H{"received": true})
}
