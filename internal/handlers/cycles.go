package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/glancehq/glance-backend/internal/repos"
)

type CycleHandler struct {
	records repos.CycleRecordRepo
}

func NewCycleHandler(records repos.CycleRecordRepo) *CycleHandler {
	return &CycleHandler{records: records}
}

// GET /api/cycles?limit=
func (h *CycleHandler) ListRecent(c *gin.Context) {
	if h.records == nil {
		RespondOK(c, gin.H{"cycles": []any{}})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := h.records.ListRecent(c.Request.Context(), nil, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "cycles_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"cycles": records})
}
