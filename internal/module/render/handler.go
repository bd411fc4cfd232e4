package render

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Maxborland/cutroom/internal/module/montage"
)

// PlanSource supplies the montage plan and media root for a project.
type PlanSource interface {
	GetPlan(ctx context.Context, projectID uuid.UUID) (*montage.Plan, error)
	ProjectRoot(projectID uuid.UUID) string
}

// Handler handles HTTP requests for renders.
type Handler struct {
	worker *Worker
	plans  PlanSource
}

// NewHandler creates a new render handler.
func NewHandler(worker *Worker, plans PlanSource) *Handler {
	return &Handler{worker: worker, plans: plans}
}

// RegisterRoutes registers render routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/projects/:project_id/render", h.StartRender)

	jobs := r.Group("/render/jobs")
	{
		jobs.GET("", h.ListJobs)
		jobs.GET("/:id", h.GetJob)
		jobs.GET("/:id/output", h.DownloadOutput)
	}
}

// StartRenderRequest is the payload for starting a render.
type StartRenderRequest struct {
	Quality Quality `json:"quality" binding:"required"`
}

// StartRender resolves the project's plan and queues a render job. The
// job id comes back immediately; progress is polled.
func (h *Handler) StartRender(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	var req StartRenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.plans.GetPlan(c.Request.Context(), projectID)
	if err != nil {
		handleRenderError(c, err)
		return
	}
	rt := montage.Resolve(plan, h.plans.ProjectRoot(projectID))

	jobID, err := h.worker.Start(projectID, rt, req.Quality)
	if err != nil {
		handleRenderError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// GetJob returns the current job record.
func (h *Handler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	job, err := h.worker.Status(id)
	if err != nil {
		handleRenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

// ListJobs returns every tracked job.
func (h *Handler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.worker.Jobs()})
}

// DownloadOutput serves the finished render file.
func (h *Handler) DownloadOutput(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	path, err := h.worker.Output(id)
	if err != nil {
		handleRenderError(c, err)
		return
	}
	c.FileAttachment(path, "render_"+id.String()+".mp4")
}

func handleRenderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrJobNotComplete):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidQuality), errors.Is(err, ErrEmptyTimeline):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
