package project

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Maxborland/cutroom/internal/module/montage"
)

// Handler handles HTTP requests for projects.
type Handler struct {
	service *Service
}

// NewHandler creates a new project handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers project routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	projects := r.Group("/projects")
	{
		projects.POST("", h.CreateProject)
		projects.GET("", h.ListProjects)
		projects.GET("/:project_id", h.GetProject)
		projects.DELETE("/:project_id", h.DeleteProject)
		projects.GET("/:project_id/plan", h.GetPlan)
		projects.PUT("/:project_id/plan", h.PutPlan)
	}
}

// CreateProjectRequest is the payload for creating a project.
type CreateProjectRequest struct {
	Name   string  `json:"name" binding:"required"`
	Brief  string  `json:"brief"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}

// CreateProject creates a project.
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := &Project{
		Name:   req.Name,
		Brief:  req.Brief,
		Width:  req.Width,
		Height: req.Height,
		FPS:    req.FPS,
	}
	if err := h.service.repo.CreateProject(c.Request.Context(), p); err != nil {
		handleProjectError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

// GetProject returns one project.
func (h *Handler) GetProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	p, err := h.service.repo.GetProject(c.Request.Context(), id)
	if err != nil {
		handleProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// ListProjects returns all projects, newest first.
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.service.repo.ListProjects(c.Request.Context())
	if err != nil {
		handleProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// DeleteProject removes a project.
func (h *Handler) DeleteProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	if err := h.service.repo.DeleteProject(c.Request.Context(), id); err != nil {
		handleProjectError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPlan returns the project's montage plan.
func (h *Handler) GetPlan(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	plan, err := h.service.GetPlan(c.Request.Context(), id)
	if err != nil {
		handleProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

// PutPlan replaces the project's montage plan.
func (h *Handler) PutPlan(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var plan montage.Plan
	if err := c.ShouldBindJSON(&plan); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.service.PutPlan(c.Request.Context(), id, &plan)
	if err != nil {
		handleProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

func projectID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return uuid.Nil, false
	}
	return id, true
}

func handleProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNoPlan):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
