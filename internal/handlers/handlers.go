package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/sidechain/views/internal/visibility"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	facade *visibility.Facade
	db     *gorm.DB
}

// NewHandlers creates a new handlers instance
func NewHandlers(facade *visibility.Facade, db *gorm.DB) *Handlers {
	return &Handlers{facade: facade, db: db}
}

// RegisterRoutes mounts the API on api. auth resolves the requester;
// viewLimit guards the view-recording endpoints.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup, auth gin.HandlerFunc, viewLimit gin.HandlerFunc) {
	api.Use(auth)

	users := api.Group("/users")
	{
		users.GET("/me", h.GetMe)
		users.PUT("/me/view-counts-hidden", h.SetMyViewCountsHidden)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id/view-counts-hidden", h.SetViewCountsHidden)
	}

	posts := api.Group("/posts")
	{
		posts.POST("", h.CreatePost)
		posts.GET("/:id", h.GetPost)
		posts.DELETE("/:id", h.DeletePost)
		posts.GET("/:id/viewers", h.GetPostViewers)
		posts.POST("/:id/views", viewLimit, h.RecordPostView)
	}

	api.POST("/views/posts", viewLimit, h.RecordPostViews)
}
