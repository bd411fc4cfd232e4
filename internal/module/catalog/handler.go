package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes the model catalog over HTTP.
type Handler struct {
	registry *Registry
}

// NewHandler creates a new catalog handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes registers catalog routes on the given router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	models := r.Group("/models")
	{
		models.GET("/image", h.ListImageModels)
		models.GET("/video", h.ListVideoModels)
		models.GET("/video/:id/qualities", h.VideoQualities)
	}
}

// ListImageModels returns the static image model catalog.
func (h *Handler) ListImageModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.registry.ImageModels()})
}

// ListVideoModels returns the static video model catalog.
func (h *Handler) ListVideoModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.registry.VideoModels()})
}

// VideoQualities returns the selectable quality values for a video model.
// Dynamic endpoint descriptors resolve here too, so the UI can populate
// its quality picker for ad-hoc models.
func (h *Handler) VideoQualities(c *gin.Context) {
	id := c.Param("id")
	m, ok := h.registry.ResolveVideo(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "MODEL_NOT_FOUND",
				"message": "Unknown video model: " + id,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"model_id":  m.ID,
		"qualities": h.registry.QualityOptions(m),
		"auto":      QualityAuto,
	})
}
