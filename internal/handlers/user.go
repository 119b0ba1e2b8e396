package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/sidechain/views/internal/dto"
	"github.com/zfogg/sidechain/views/internal/util"
)

// GetMe returns the requester's own profile with real view data
// GET /api/v1/users/me
func (h *Handlers) GetMe(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := h.facade.GetSelf(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetUser returns another user's profile; postViewedByCount is null when hidden
// GET /api/v1/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	requesterID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := h.facade.GetUser(c.Request.Context(), requesterID, c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetMyViewCountsHidden toggles the requester's own flag
// PUT /api/v1/users/me/view-counts-hidden
func (h *Handlers) SetMyViewCountsHidden(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	h.setViewCountsHidden(c, userID, userID)
}

// SetViewCountsHidden toggles the flag of :id, which must be the requester
// PUT /api/v1/users/:id/view-counts-hidden
func (h *Handlers) SetViewCountsHidden(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	h.setViewCountsHidden(c, userID, c.Param("id"))
}

func (h *Handlers) setViewCountsHidden(c *gin.Context, requesterID, targetID string) {
	var req dto.SetViewCountsHiddenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, "viewCountsHidden", "a boolean viewCountsHidden is required")
		return
	}

	resp, err := h.facade.SetViewCountsHidden(c.Request.Context(), requesterID, targetID, *req.ViewCountsHidden)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
