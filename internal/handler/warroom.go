package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradearena/internal/auth"
	"tradearena/internal/service"
	"tradearena/internal/warroom"
)

type WarRoomHandler struct {
	Service *service.WarRoomService
}

func (h *WarRoomHandler) Register(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.POST("/matches/:id/warroom/rounds", h.generate)
	api.GET("/matches/:id/warroom/rounds", h.list)
}

// generateRoundRequest carries the round number and the spectator
// interactions gathered since the previous round. Round range is checked by
// the sequencer so a zero round gets the typed out-of-sequence error.
type generateRoundRequest struct {
	Round        int                       `json:"round"`
	Interactions []warroom.UserInteraction `json:"interactions,omitempty"`
}

func (h *WarRoomHandler) generate(c *gin.Context) {
	var req generateRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request: "+err.Error(), nil)
		return
	}
	item, err := h.Service.GenerateRound(c.Request.Context(), auth.UserID(c), c.Param("id"), req.Round, req.Interactions)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *WarRoomHandler) list(c *gin.Context) {
	rounds, err := h.Service.Rounds(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	List(c, rounds, len(rounds))
}
