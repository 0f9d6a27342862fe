package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"purser/internal/services"
)

type CheckHandler struct {
	watchlist *services.WatchlistService
	worker    *services.CheckWorker
	digest    *services.DigestService
}

func NewCheckHandler(watchlist *services.WatchlistService, worker *services.CheckWorker, digest *services.DigestService) *CheckHandler {
	return &CheckHandler{
		watchlist: watchlist,
		worker:    worker,
		digest:    digest,
	}
}

// CheckNow queues checks: every non-paused item, or a single item when the
// item_id form or query parameter is present.
func (h *CheckHandler) CheckNow(c *gin.Context) {
	raw := c.PostForm("item_id")
	if raw == "" {
		raw = c.Query("item_id")
	}

	if raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item_id"})
			return
		}
		item, err := h.watchlist.ItemByID(uint(id))
		if err != nil {
			respondError(c, err)
			return
		}
		position := h.worker.QueueCheck(item.ID)
		c.JSON(http.StatusAccepted, gin.H{
			"message":  "check queued",
			"item_id":  item.ID,
			"position": position,
		})
		return
	}

	queued, err := h.worker.QueueAll()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": "checks queued",
		"queued":  queued,
	})
}

// CheckItem queues a check for one item.
func (h *CheckHandler) CheckItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	item, err := h.watchlist.ItemByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	position := h.worker.QueueCheck(item.ID)
	c.JSON(http.StatusAccepted, gin.H{
		"message":  "check queued",
		"item_id":  item.ID,
		"position": position,
	})
}

// GetCheckStatus reports the scheduler state.
func (h *CheckHandler) GetCheckStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.worker.GetStatus())
}

// PreviewDigest builds the daily digest without sending it.
func (h *CheckHandler) PreviewDigest(c *gin.Context) {
	digest, err := h.digest.Build()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, digest)
}
