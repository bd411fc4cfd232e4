package shot

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
)

// Handler handles HTTP requests for shots.
type Handler struct {
	service *Service
}

// NewHandler creates a new shot handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers shot routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	shots := r.Group("/shots")
	{
		shots.POST("", h.CreateShot)
		shots.GET("/:id", h.GetShot)
		shots.DELETE("/:id", h.DeleteShot)

		shots.POST("/:id/image", h.GenerateImage)
		shots.POST("/:id/image/cancel", h.CancelImage)
		shots.POST("/:id/video", h.GenerateVideo)
		shots.POST("/:id/video/cancel", h.CancelVideo)
		shots.POST("/:id/enhance", h.Enhance)
		shots.POST("/:id/enhance/cancel", h.CancelEnhance)

		shots.POST("/:id/approve", h.Approve)
		shots.POST("/:id/send-back", h.SendBack)
		shots.POST("/:id/reject", h.Reject)
	}

	projects := r.Group("/projects")
	{
		projects.GET("/:project_id/shots", h.ListShots)
		projects.POST("/:project_id/shots/generate-images", h.GenerateAllImages)
		projects.POST("/:project_id/shots/enhance-images", h.EnhanceAllImages)
		projects.POST("/:project_id/shots/describe", h.DescribeAllAssets)
	}
}

// CreateShotRequest is the payload for creating a shot.
type CreateShotRequest struct {
	ProjectID        uuid.UUID `json:"project_id" binding:"required"`
	Position         int       `json:"position"`
	SceneDescription string    `json:"scene_description"`
	AudioDescription string    `json:"audio_description"`
	ImagePrompt      string    `json:"image_prompt"`
	VideoPrompt      string    `json:"video_prompt"`
	DurationSeconds  int       `json:"duration_seconds"`
}

// CreateShot creates a draft shot.
func (h *Handler) CreateShot(c *gin.Context) {
	var req CreateShotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sh := &Shot{
		ProjectID:        req.ProjectID,
		Position:         req.Position,
		Status:           StatusDraft,
		SceneDescription: req.SceneDescription,
		AudioDescription: req.AudioDescription,
		ImagePrompt:      req.ImagePrompt,
		VideoPrompt:      req.VideoPrompt,
		DurationSeconds:  req.DurationSeconds,
	}
	if err := h.service.repo.CreateShot(c.Request.Context(), sh); err != nil {
		handleShotError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"shot": sh})
}

// GetShot returns one shot.
func (h *Handler) GetShot(c *gin.Context) {
	id, ok := shotID(c)
	if !ok {
		return
	}
	sh, err := h.service.repo.GetShot(c.Request.Context(), id)
	if err != nil {
		handleShotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shot": sh})
}

// ListShots returns all shots of a project in position order.
func (h *Handler) ListShots(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	shots, err := h.service.repo.ListShots(c.Request.Context(), projectID)
	if err != nil {
		handleShotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shots": shots})
}

// DeleteShot removes a shot.
func (h *Handler) DeleteShot(c *gin.Context) {
	id, ok := shotID(c)
	if !ok {
		return
	}
	if err := h.service.repo.DeleteShot(c.Request.Context(), id); err != nil {
		handleShotError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateImage starts image generation for a shot and blocks until it
// settles. Cancellation arrives through the cancel endpoint.
func (h *Handler) GenerateImage(c *gin.Context) {
	id, ok := shotID(c)
	if !ok {
		return
	}
	var req GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sh, err := h.service.GenerateImage(c.Request.Context(), id, &req)
	if err != nil {
		handleShotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shot": sh})
}

// GenerateVideo starts video generation for a shot.
func (h *Handler) GenerateVideo(c *gin.Context) {
	id, ok := shotID(c)
	if !ok {
		return
	}
	var req GenerateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sh, err := h.service.GenerateVideo(c.Request.Context(), id, &req)
	if err != nil {
		handleShotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shot": sh})
}

// Enhance post-processes the shot's current image.
func (h *Handler) Enhance(c *gin.Context) {
	id, ok := shotID(c)
	if !ok {
		return
	}
	var req EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sh, err := h.service.Enhance(c.Request.Context(), id, &req)
	if err != nil {
		handleShotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shot": sh})
}

// CancelImage cancels an in-flight image generation.
func (h *Handler) CancelImage(c *gin.Context) {
	h.cancel(c, h.service.CancelImage)
}

// CancelVideo cancels an in-flight video generation.
func (h *Handler) CancelVideo(c *gin.Context) {
	h.cancel(c, h.service.CancelVideo)
}

// CancelEnhance cancels an in-flight enhancement.
func (h *Handler) CancelEnhance(c *gin.Context) {
	h.cancel(c, h.service.CancelEnhance)
}

func (h *Handler) cancel(c *gin.Context, fn func(uuid.UUID) error) {
	id, ok := shotID(c)
	if !ok {
		return
	}
	if err := fn(id); err != nil {
		handleShotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// Approve marks a reviewed shot as approved.
func (h *Handler) Approve(c *gin.Context) {
	h.review(c, h.service.Approve)
}

// SendBack returns a shot from video review to image review.
func (h *Handler) SendBack(c *gin.Context) {
	h.review(c, h.service.SendBack)
}

// Reject sends a shot back to draft and clears its artifacts.
func (h *Handler) Reject(c *gin.Context) {
	h.review(c, h.service.Reject)
}

func (h *Handler) review(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*Shot, error)) {
	id, ok := shotID(c)
	if !ok {
		return
	}
	sh, err := fn(c.Request.Context(), id)
	if err != nil {
		handleShotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shot": sh})
}

// GenerateAllImages runs image generation for every draft shot of a
// project with bounded concurrency.
func (h *Handler) GenerateAllImages(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	var req GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results, err := h.service.GenerateAllImages(c.Request.Context(), projectID, &req)
	if err != nil {
		handleShotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// EnhanceAllImages enhances the current image of every eligible shot.
func (h *Handler) EnhanceAllImages(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	var req EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results, err := h.service.EnhanceAllImages(c.Request.Context(), projectID, &req)
	if err != nil {
		handleShotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// DescribeAllAssets fills missing scene descriptions from each shot's
// current image.
func (h *Handler) DescribeAllAssets(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	results, err := h.service.DescribeAllAssets(c.Request.Context(), projectID)
	if err != nil {
		handleShotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func shotID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shot id"})
		return uuid.Nil, false
	}
	return id, true
}

// handleShotError maps module and pipeline errors to HTTP responses.
// Cancellation is not an error condition for the operator, it gets its
// own success-shaped response.
func handleShotError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrShotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUnknownModel), errors.Is(err, ErrNoGeneratedImage),
		errors.Is(err, ErrNoSourceImage), errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrGenerationInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotGenerating):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsCancelled(err):
		c.JSON(http.StatusOK, gin.H{"cancelled": true})
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
