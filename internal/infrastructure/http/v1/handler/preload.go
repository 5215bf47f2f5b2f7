package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"optymap/internal/infrastructure/http/v1/dto"
	"optymap/internal/tile"
	"optymap/pkg/logger"
)

// Preload queues a rectangle of tiles for background fetching.
func (h *Handler) Preload(c *gin.Context) {
	log, _ := c.Get("logger")
	l := log.(logger.Logger)

	var req dto.PreloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		l.Warn("invalid preload request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	var addrs []tile.Address
	for col := req.MinCol; col <= req.MaxCol; col++ {
		for row := req.MinRow; row <= req.MaxRow; row++ {
			a := tile.Address{Zoom: req.Zoom, Col: col, Row: row}
			if a.Valid() {
				addrs = append(addrs, a)
			}
		}
	}

	h.tiles.Preload(addrs)

	l.Info("preload accepted", "zoom", req.Zoom, "tiles", len(addrs))

	h.RespondWithJSON(c, http.StatusAccepted, "preload queued", dto.PreloadResponse{Queued: len(addrs)})
}
