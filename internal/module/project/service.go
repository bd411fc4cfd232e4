package project

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Maxborland/cutroom/internal/module/montage"
)

// Service implements project operations, including the plan lookup the
// render layer consumes.
type Service struct {
	repo      Repository
	mediaRoot string
}

// NewService creates a new project service. mediaRoot is the directory
// under which each project's assets live.
func NewService(repo Repository, mediaRoot string) *Service {
	return &Service{repo: repo, mediaRoot: mediaRoot}
}

// GetPlan returns the project's montage plan.
func (s *Service) GetPlan(ctx context.Context, projectID uuid.UUID) (*montage.Plan, error) {
	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Plan == nil {
		return nil, ErrNoPlan
	}
	return p.Plan, nil
}

// PutPlan replaces the project's montage plan. An empty format falls
// back to the project's defaults.
func (s *Service) PutPlan(ctx context.Context, projectID uuid.UUID, plan *montage.Plan) (*Project, error) {
	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if plan.Format.Width == 0 {
		plan.Format.Width = p.Width
	}
	if plan.Format.Height == 0 {
		plan.Format.Height = p.Height
	}
	if plan.Format.FPS == 0 {
		plan.Format.FPS = p.FPS
	}
	p.Plan = plan
	if err := s.repo.UpdateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ProjectRoot returns the asset root for a project.
func (s *Service) ProjectRoot(projectID uuid.UUID) string {
	return filepath.Join(s.mediaRoot, projectID.String())
}
