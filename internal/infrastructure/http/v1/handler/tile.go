package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"optymap/internal/infrastructure/http/v1/dto"
	"optymap/internal/manager"
	"optymap/internal/tile"
	"optymap/pkg/logger"
)

// Tile serves one tile. The manager contract carries over to HTTP: a RAM
// hit returns the image bytes, anything else returns 202 with the current
// state and the client re-polls.
func (h *Handler) Tile(c *gin.Context) {
	log, _ := c.Get("logger")
	l := log.(logger.Logger)

	strZ := c.Param("z")
	strX := c.Param("x")
	strY := c.Param("y")

	z, err := strconv.Atoi(strZ)
	if err != nil {
		l.Warn("invalid z parameter", "z", strZ, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "z should be integer",
		})
		return
	}

	x, err := strconv.Atoi(strX)
	if err != nil {
		l.Warn("invalid x parameter", "x", strX, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "x should be integer",
		})
		return
	}

	y, err := strconv.Atoi(strY)
	if err != nil {
		l.Warn("invalid y parameter", "y", strY, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "y should be integer",
		})
		return
	}

	addr := tile.Address{Zoom: z, Col: x, Row: y}
	if !addr.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "tile address out of range for zoom",
		})
		return
	}

	t, state := h.tiles.Request(addr)
	if state == manager.StateCached {
		// The source format follows the URL template, so sniff instead of
		// assuming png.
		c.Data(http.StatusOK, http.DetectContentType(t.Raw), t.Raw)
		return
	}

	c.JSON(http.StatusAccepted, dto.TileStatusResponse{Status: state.String()})
}
