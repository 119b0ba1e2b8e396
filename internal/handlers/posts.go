package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/sidechain/views/internal/dto"
	"github.com/zfogg/sidechain/views/internal/util"
	"github.com/zfogg/sidechain/views/internal/views"
)

func pageFromQuery(c *gin.Context) views.Page {
	return views.Page{
		Limit:  util.QueryInt(c, "limit", views.DefaultPageSize),
		Offset: util.QueryInt(c, "offset", 0),
	}.Normalize()
}

// CreatePost stores a post owned by the requester
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, "text", "text is required and at most 2000 characters")
		return
	}

	resp, err := h.facade.CreatePost(c.Request.Context(), userID, req.Text)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetPost returns a post; viewedByCount and viewedBy are null when the owner hides them
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := h.facade.GetPost(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetPostViewers returns a page of a post's viewers
// GET /api/v1/posts/:id/viewers?limit=&offset=
func (h *Handlers) GetPostViewers(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := h.facade.GetViewers(c.Request.Context(), userID, c.Param("id"), pageFromQuery(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeletePost removes the requester's post with its views
// DELETE /api/v1/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.facade.DeletePost(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
