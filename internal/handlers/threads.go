package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/glancehq/glance-backend/internal/services"
	"github.com/glancehq/glance-backend/internal/utils"
)

type ThreadHandler struct {
	store *services.ThreadStore
	cache *services.CleanCache
	deny  *utils.Denylist
}

func NewThreadHandler(store *services.ThreadStore, cache *services.CleanCache, deny *utils.Denylist) *ThreadHandler {
	return &ThreadHandler{store: store, cache: cache, deny: deny}
}

// GET /api/threads lists active threads; ?all=1 includes finalized ones.
func (h *ThreadHandler) List(c *gin.Context) {
	if c.Query("all") != "" {
		RespondOK(c, gin.H{"threads": h.store.AllThreads()})
		return
	}
	RespondOK(c, gin.H{"threads": h.store.ActiveThreads(h.deny)})
}

// GET /api/threads/search?q=
func (h *ThreadHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		RespondError(c, http.StatusBadRequest, "missing_query", fmt.Errorf("query parameter q is required"))
		return
	}
	threads := h.store.FindByKeyword(strings.Fields(q))
	RespondOK(c, gin.H{"threads": threads})
}

// DELETE /api/threads
func (h *ThreadHandler) Clear(c *gin.Context) {
	h.store.Clear()
	if err := h.cache.Flush(c.Request.Context()); err != nil {
		RespondError(c, http.StatusInternalServerError, "cache_flush_failed", err)
		return
	}
	RespondOK(c, gin.H{"cleared": true})
}
