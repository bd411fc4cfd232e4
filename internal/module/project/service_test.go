package project

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maxborland/cutroom/internal/module/montage"
)

type memoryRepository struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*Project
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{projects: make(map[uuid.UUID]*Project)}
}

func (r *memoryRepository) CreateProject(_ context.Context, p *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

func (r *memoryRepository) GetProject(_ context.Context, id uuid.UUID) (*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepository) ListProjects(_ context.Context) ([]*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryRepository) UpdateProject(_ context.Context, p *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID]; !ok {
		return ErrProjectNotFound
	}
	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

func (r *memoryRepository) DeleteProject(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return ErrProjectNotFound
	}
	delete(r.projects, id)
	return nil
}

func seedProject(t *testing.T, repo Repository, mutate func(*Project)) *Project {
	t.Helper()
	p := &Project{
		ID:     uuid.New(),
		Name:   "launch teaser",
		Width:  1920,
		Height: 1080,
		FPS:    30,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, repo.CreateProject(context.Background(), p))
	return p
}

func TestService_GetPlan_NoPlan(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, "/media")
	p := seedProject(t, repo, nil)

	_, err := svc.GetPlan(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestService_GetPlan_UnknownProject(t *testing.T) {
	svc := NewService(newMemoryRepository(), "/media")
	_, err := svc.GetPlan(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestService_PutPlan_EmptyFormatFallsBackToProjectDefaults(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, "/media")
	p := seedProject(t, repo, func(p *Project) {
		p.Width = 3840
		p.Height = 2160
		p.FPS = 25
	})

	out, err := svc.PutPlan(context.Background(), p.ID, &montage.Plan{})
	require.NoError(t, err)
	require.NotNil(t, out.Plan)
	assert.Equal(t, 3840, out.Plan.Format.Width)
	assert.Equal(t, 2160, out.Plan.Format.Height)
	assert.Equal(t, 25.0, out.Plan.Format.FPS)

	got, err := svc.GetPlan(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Plan, got)
}

func TestService_PutPlan_ExplicitFormatKept(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, "/media")
	p := seedProject(t, repo, nil)

	out, err := svc.PutPlan(context.Background(), p.ID, &montage.Plan{
		Format: montage.Format{Width: 1280, Height: 720, FPS: 24},
	})
	require.NoError(t, err)
	assert.Equal(t, 1280, out.Plan.Format.Width)
	assert.Equal(t, 24.0, out.Plan.Format.FPS)
}

func TestService_ProjectRoot(t *testing.T) {
	svc := NewService(newMemoryRepository(), "/media/cutroom")
	id := uuid.New()
	assert.Equal(t, filepath.Join("/media/cutroom", id.String()), svc.ProjectRoot(id))
}
