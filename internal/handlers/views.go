package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/sidechain/views/internal/dto"
	"github.com/zfogg/sidechain/views/internal/util"
)

// RecordPostView records that the requester opened a post. Viewing your own
// post succeeds with recorded=false.
// POST /api/v1/posts/:id/views
func (h *Handlers) RecordPostView(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := h.facade.RecordPostView(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordPostViews records a batch of views
// POST /api/v1/views/posts
func (h *Handlers) RecordPostViews(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req dto.RecordViewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, "postIds", "postIds must contain between 1 and 100 ids")
		return
	}

	resp, err := h.facade.RecordPostViews(c.Request.Context(), userID, req.PostIDs)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
