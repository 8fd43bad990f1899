package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tradearena/internal/auth"
	"tradearena/internal/market"
	"tradearena/internal/repository"
	"tradearena/internal/service"
)

type MatchHandler struct {
	Service *service.MatchService
}

func (h *MatchHandler) Register(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.POST("/matches", h.create)
	api.GET("/matches", h.list)
	api.GET("/matches/:id", h.get)
	api.POST("/matches/:id/draft", h.draft)
	api.POST("/matches/:id/advance", h.advance)
	api.POST("/matches/:id/hypothesis", h.hypothesis)
	api.POST("/matches/:id/windows", h.window)
	api.POST("/matches/:id/resolve", h.resolve)
}

type createMatchRequest struct {
	Pair      string `json:"pair" binding:"required"`
	Timeframe string `json:"timeframe" binding:"required"`
}

func (h *MatchHandler) create(c *gin.Context) {
	var req createMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request: "+err.Error(), nil)
		return
	}
	m, err := h.Service.CreateMatch(c.Request.Context(), auth.UserID(c), req.Pair, req.Timeframe)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, m, nil)
}

func (h *MatchHandler) list(c *gin.Context) {
	params := repository.ListMatchesParams{
		UserID: auth.UserID(c),
		Phase:  c.Query("phase"),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	items, err := h.Service.ListMatches(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	List(c, items, len(items))
}

func (h *MatchHandler) get(c *gin.Context) {
	detail, err := h.Service.GetMatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, detail, nil)
}

type draftRequest struct {
	Agents []string `json:"agents" binding:"required"`
}

func (h *MatchHandler) draft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request: "+err.Error(), nil)
		return
	}
	m, err := h.Service.SubmitDraft(c.Request.Context(), auth.UserID(c), c.Param("id"), req.Agents)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, m, nil)
}

// advanceRequest carries the target phase and, for the transition into
// analysis, the pre-assembled market snapshot to evaluate.
type advanceRequest struct {
	Target   string           `json:"target" binding:"required"`
	Snapshot *market.Snapshot `json:"snapshot,omitempty"`
}

func (h *MatchHandler) advance(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request: "+err.Error(), nil)
		return
	}
	res, err := h.Service.Advance(c.Request.Context(), auth.UserID(c), c.Param("id"), req.Target, req.Snapshot)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, res, nil)
}

func (h *MatchHandler) hypothesis(c *gin.Context) {
	var req service.Hypothesis
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request: "+err.Error(), nil)
		return
	}
	m, err := h.Service.SubmitHypothesis(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, m, nil)
}

// windowRequest's index is range-checked by the tracker, not the binder, so
// index 0 surfaces as the typed out-of-range error instead of a bind failure.
type windowRequest struct {
	Index  int             `json:"index"`
	Action string          `json:"action" binding:"required"`
	Price  decimal.Decimal `json:"price"`
}

func (h *MatchHandler) window(c *gin.Context) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request: "+err.Error(), nil)
		return
	}
	remaining, err := h.Service.SubmitWindow(c.Request.Context(), auth.UserID(c), c.Param("id"), req.Index, req.Action, req.Price)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, gin.H{"window_index": req.Index, "remaining": remaining}, nil)
}

type resolveRequest struct {
	ExitPrice *decimal.Decimal `json:"exit_price,omitempty"`
}

func (h *MatchHandler) resolve(c *gin.Context) {
	var req resolveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid request: "+err.Error(), nil)
			return
		}
	}
	res, err := h.Service.Resolve(c.Request.Context(), auth.UserID(c), c.Param("id"), req.ExitPrice)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, res, nil)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
