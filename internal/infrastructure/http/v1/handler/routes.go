package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"optymap/internal/infrastructure/http/v1/dto"
)

// Routes returns the projected GTFS geometry for overlay drawing.
func (h *Handler) Routes(c *gin.Context) {
	resp := dto.RoutesResponse{
		Shapes: make([]dto.Shape, 0, len(h.geometry.Shapes)),
		Stops:  make([]dto.Stop, 0, len(h.geometry.Stops)),
	}

	for _, s := range h.geometry.Shapes {
		shape := dto.Shape{ID: s.ID, Points: make([]dto.WorldPoint, 0, len(s.Points))}
		for _, p := range s.Points {
			shape.Points = append(shape.Points, dto.WorldPoint{X: p.X, Y: p.Y})
		}
		resp.Shapes = append(resp.Shapes, shape)
	}

	for _, s := range h.geometry.Stops {
		resp.Stops = append(resp.Stops, dto.Stop{
			ID:   s.ID,
			Name: s.Name,
			Pos:  dto.WorldPoint{X: s.Pos.X, Y: s.Pos.Y},
		})
	}

	h.RespondWithJSON(c, http.StatusOK, "got routes", resp)
}
