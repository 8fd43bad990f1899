package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"tradearena/internal/auth"
	"tradearena/internal/live"
	"tradearena/internal/service"
)

const wsWriteTimeout = 5 * time.Second

type LiveHandler struct {
	Service *service.LiveService
	Live    *live.Manager
	Logger  *zap.Logger
}

func (h *LiveHandler) Register(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.POST("/live/sessions", h.create)
	api.GET("/live/sessions/:id", h.info)
	api.DELETE("/live/sessions/:id", h.close)
	api.POST("/live/sessions/:id/reactions", h.react)

	// The upgrade path is outside /api so browsers can connect without a
	// bearer; spectator identity is an optional query parameter.
	r.GET("/ws/live/:id", h.connect)
}

type createSessionRequest struct {
	MatchID string `json:"match_id" binding:"required"`
}

func (h *LiveHandler) create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request: "+err.Error(), nil)
		return
	}
	session, err := h.Service.CreateSession(c.Request.Context(), auth.UserID(c), req.MatchID)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, session, nil)
}

func (h *LiveHandler) info(c *gin.Context) {
	info, err := h.Service.Info(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, info, nil)
}

func (h *LiveHandler) close(c *gin.Context) {
	if err := h.Service.CloseSession(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	Ok(c, gin.H{"closed": true}, nil)
}

type reactionRequest struct {
	Reaction string `json:"reaction" binding:"required"`
}

func (h *LiveHandler) react(c *gin.Context) {
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request: "+err.Error(), nil)
		return
	}
	if err := h.Service.React(c.Param("id"), auth.UserID(c), req.Reaction); err != nil {
		fail(c, err)
		return
	}
	Ok(c, gin.H{"accepted": true}, nil)
}

// connect upgrades to a websocket and pumps session events until the
// spectator leaves, the session closes, or the write stalls out.
func (h *LiveHandler) connect(c *gin.Context) {
	sessionID := c.Param("id")
	viewerID := c.Query("viewer")

	ws, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket accept failed", zap.Error(err))
		}
		return
	}

	conn, err := h.Live.AddConnection(sessionID, viewerID)
	if err != nil {
		_ = ws.Close(websocket.StatusPolicyViolation, "session not available")
		return
	}
	defer h.Live.RemoveConnection(sessionID, conn)

	// Spectators never send data frames; CloseRead surfaces the client
	// hangup through the context.
	ctx := ws.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			_ = ws.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-conn.Events():
			if !ok {
				_ = ws.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, ws, ev)
			cancel()
			if err != nil {
				_ = ws.Close(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		}
	}
}
