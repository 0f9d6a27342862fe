package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"purser/internal/errs"
	"purser/internal/models"
	"purser/internal/services"
)

type ItemHandler struct {
	watchlist *services.WatchlistService
	worker    *services.CheckWorker
}

func NewItemHandler(watchlist *services.WatchlistService, worker *services.CheckWorker) *ItemHandler {
	return &ItemHandler{
		watchlist: watchlist,
		worker:    worker,
	}
}

// respondError maps domain errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	var vErr *errs.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		return
	}
	var nfErr *errs.NotFoundError
	if errors.As(err, &nfErr) {
		c.JSON(http.StatusNotFound, gin.H{"error": nfErr.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func itemID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return 0, false
	}
	return uint(id), true
}

// GetWatchlist returns every item with its latest price, targets, and flags.
func (h *ItemHandler) GetWatchlist(c *gin.Context) {
	views, err := h.watchlist.ListItems()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(views),
		"items": views,
	})
}

// AddItem creates a watchlist item from a form post or JSON body and queues
// an immediate first check.
func (h *ItemHandler) AddItem(c *gin.Context) {
	var req models.AddItemRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.watchlist.CreateItem(req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.worker.QueueCheck(item.ID)
	c.JSON(http.StatusCreated, item)
}

func (h *ItemHandler) GetItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	item, err := h.watchlist.ItemByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	latest, err := h.watchlist.LatestPrice(item.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	view := models.ItemView{
		Item:        *item,
		LatestPrice: latest,
		Targets:     item.Targets,
		Flags:       item.Flags,
	}
	c.JSON(http.StatusOK, view)
}

func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	if err := h.watchlist.DeleteItem(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}

// GetPriceHistory returns an item's price observations oldest-first.
func (h *ItemHandler) GetPriceHistory(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	prices, err := h.watchlist.PriceHistory(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"item_id": id,
		"count":   len(prices),
		"prices":  prices,
	})
}

func (h *ItemHandler) PauseItem(c *gin.Context) {
	h.setPaused(c, true)
}

func (h *ItemHandler) ResumeItem(c *gin.Context) {
	h.setPaused(c, false)
}

func (h *ItemHandler) setPaused(c *gin.Context, paused bool) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	item, err := h.watchlist.SetPaused(id, paused)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) UpdateItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	var req models.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var item *models.Item
	var err error
	if req.Notes != nil {
		item, err = h.watchlist.UpdateNotes(id, *req.Notes)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	if req.IsPaused != nil {
		item, err = h.watchlist.SetPaused(id, *req.IsPaused)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	if item == nil {
		item, err = h.watchlist.ItemByID(id)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, item)
}

// SetTarget replaces the item's target price.
func (h *ItemHandler) SetTarget(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	var req models.SetTargetRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, err := h.watchlist.SetTarget(id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

// ResetTarget re-arms a satisfied target so it can fire again.
func (h *ItemHandler) ResetTarget(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	if err := h.watchlist.ResetTarget(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "target reset"})
}
