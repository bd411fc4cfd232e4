package shot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maxborland/cutroom/internal/adapter/outbound/provider"
	"github.com/Maxborland/cutroom/internal/module/catalog"
	"github.com/Maxborland/cutroom/internal/shared/config"
	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
	"github.com/Maxborland/cutroom/internal/shared/logger"
)

// memoryRepository is an in-memory Repository for pipeline tests.
type memoryRepository struct {
	mu    sync.Mutex
	shots map[uuid.UUID]*Shot
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{shots: make(map[uuid.UUID]*Shot)}
}

func (r *memoryRepository) CreateShot(_ context.Context, s *Shot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.shots[s.ID] = &cp
	return nil
}

func (r *memoryRepository) GetShot(_ context.Context, id uuid.UUID) (*Shot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shots[id]
	if !ok {
		return nil, ErrShotNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memoryRepository) ListShots(_ context.Context, projectID uuid.UUID) ([]*Shot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Shot
	for _, s := range r.shots {
		if s.ProjectID == projectID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryRepository) UpdateShot(_ context.Context, s *Shot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.shots[s.ID] = &cp
	return nil
}

func (r *memoryRepository) DeleteShot(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shots[id]; !ok {
		return ErrShotNotFound
	}
	delete(r.shots, id)
	return nil
}

func (r *memoryRepository) ResetStaleShots(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.shots {
		switch s.Status {
		case StatusImgGen:
			s.Status = StatusDraft
			n++
		case StatusVidGen:
			s.Status = StatusImgReview
			n++
		}
	}
	return n, nil
}

// fakeClient scripts provider outcomes for the pipeline.
type fakeClient struct {
	imageURL string
	videoURL string
	err      error
	// block, when set, holds the call until released or the context is
	// cancelled.
	block chan struct{}

	mu         sync.Mutex
	imageCalls int
	videoCalls int
}

func (f *fakeClient) wait(ctx context.Context) error {
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return apperrors.Cancelled("generation")
	}
}

func (f *fakeClient) GenerateImage(ctx context.Context, _ *catalog.ImageModel, _ *provider.ImageCall) (string, error) {
	f.mu.Lock()
	f.imageCalls++
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.imageURL, f.err
}

func (f *fakeClient) GenerateVideo(ctx context.Context, _ *catalog.VideoModel, _ *provider.VideoCall) (string, error) {
	f.mu.Lock()
	f.videoCalls++
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.videoURL, f.err
}

type fakeEnhancer struct {
	out string
	err error
}

func (f *fakeEnhancer) GenerateImage(_ context.Context, _ *provider.ImageGenRequest) (string, error) {
	return f.out, f.err
}

type fakeDescriber struct {
	out   string
	err   error
	calls atomic.Int32
}

func (f *fakeDescriber) Complete(_ context.Context, _ string, _ []provider.ChatMessage, _ *float64) (string, error) {
	f.calls.Add(1)
	return f.out, f.err
}

func newTestService(repo Repository, client GeneratorClient, enhancer Enhancer) *Service {
	return newTestServiceWithDescriber(repo, client, enhancer, nil)
}

func newTestServiceWithDescriber(repo Repository, client GeneratorClient, enhancer Enhancer, describer Describer) *Service {
	clients := map[catalog.Provider]GeneratorClient{
		catalog.ProviderFal:       client,
		catalog.ProviderReplicate: client,
	}
	return NewService(
		repo,
		catalog.NewRegistry(),
		clients,
		enhancer,
		describer,
		provider.NewHealthMonitor(nil),
		&config.PipelineConfig{BatchConcurrency: 2},
		logger.New(logger.DefaultConfig()),
	)
}

func seedShot(t *testing.T, repo Repository, status ShotStatus, mutate func(*Shot)) *Shot {
	t.Helper()
	s := &Shot{
		ID:              uuid.New(),
		ProjectID:       uuid.New(),
		Status:          status,
		ImagePrompt:     "a quiet street at dawn",
		VideoPrompt:     "slow push in",
		DurationSeconds: 5,
	}
	if mutate != nil {
		mutate(s)
	}
	require.NoError(t, repo.CreateShot(context.Background(), s))
	return s
}

func TestService_GenerateImage_Success(t *testing.T) {
	repo := newMemoryRepository()
	client := &fakeClient{imageURL: "https://cdn.fal.ai/shot1.png"}
	svc := newTestService(repo, client, nil)

	s := seedShot(t, repo, StatusDraft, nil)

	out, err := svc.GenerateImage(context.Background(), s.ID, &GenerateImageRequest{ModelID: "flux-dev"})
	require.NoError(t, err)
	assert.Equal(t, StatusImgReview, out.Status)
	assert.Equal(t, []string{"https://cdn.fal.ai/shot1.png"}, out.GeneratedImages)
	assert.False(t, svc.inflight.active(opImage, s.ID))

	stored, err := repo.GetShot(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusImgReview, stored.Status)
}

func TestService_GenerateImage_FailureRollsBackToDraft(t *testing.T) {
	repo := newMemoryRepository()
	client := &fakeClient{err: apperrors.Provider("http 400: bad prompt")}
	svc := newTestService(repo, client, nil)

	s := seedShot(t, repo, StatusDraft, nil)

	_, err := svc.GenerateImage(context.Background(), s.ID, &GenerateImageRequest{ModelID: "flux-dev"})
	require.ErrorIs(t, err, apperrors.ErrProvider)

	stored, getErr := repo.GetShot(context.Background(), s.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusDraft, stored.Status)
	assert.False(t, svc.inflight.active(opImage, s.ID))
}

func TestService_GenerateImage_WrongStatus(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeClient{imageURL: "x"}, nil)

	s := seedShot(t, repo, StatusVidReview, nil)

	_, err := svc.GenerateImage(context.Background(), s.ID, &GenerateImageRequest{ModelID: "flux-dev"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_GenerateImage_UnknownModel(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeClient{}, nil)
	s := seedShot(t, repo, StatusDraft, nil)

	_, err := svc.GenerateImage(context.Background(), s.ID, &GenerateImageRequest{ModelID: "nope"})
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestService_GenerateImage_DuplicateStartIsConflict(t *testing.T) {
	repo := newMemoryRepository()
	client := &fakeClient{imageURL: "x", block: make(chan struct{})}
	svc := newTestService(repo, client, nil)

	s := seedShot(t, repo, StatusDraft, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.GenerateImage(context.Background(), s.ID, &GenerateImageRequest{ModelID: "flux-dev"})
	}()

	require.Eventually(t, func() bool {
		return svc.inflight.active(opImage, s.ID)
	}, time.Second, time.Millisecond)

	_, err := svc.GenerateImage(context.Background(), s.ID, &GenerateImageRequest{ModelID: "flux-dev"})
	assert.ErrorIs(t, err, ErrGenerationInFlight)

	close(client.block)
	<-done
}

func TestService_CancelImage_PreservesNothingButReturnsToDraft(t *testing.T) {
	repo := newMemoryRepository()
	client := &fakeClient{imageURL: "x", block: make(chan struct{})}
	svc := newTestService(repo, client, nil)

	s := seedShot(t, repo, StatusDraft, func(s *Shot) {
		s.GeneratedImages = []string{"earlier.png"}
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.GenerateImage(context.Background(), s.ID, &GenerateImageRequest{ModelID: "flux-dev"})
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return svc.inflight.active(opImage, s.ID)
	}, time.Second, time.Millisecond)
	require.NoError(t, svc.CancelImage(s.ID))

	err := <-errCh
	assert.True(t, apperrors.IsCancelled(err))

	stored, getErr := repo.GetShot(context.Background(), s.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusDraft, stored.Status)
	// Images generated by earlier runs survive a cancellation.
	assert.Equal(t, []string{"earlier.png"}, stored.GeneratedImages)
	assert.False(t, svc.inflight.active(opImage, s.ID))
}

func TestService_GenerateVideo_Success(t *testing.T) {
	repo := newMemoryRepository()
	client := &fakeClient{videoURL: "https://cdn.fal.ai/shot1.mp4"}
	svc := newTestService(repo, client, nil)

	s := seedShot(t, repo, StatusImgReview, func(s *Shot) {
		s.GeneratedImages = []string{"frame.png"}
	})

	out, err := svc.GenerateVideo(context.Background(), s.ID, &GenerateVideoRequest{ModelID: "kling-standard"})
	require.NoError(t, err)
	assert.Equal(t, StatusVidReview, out.Status)
	assert.Equal(t, "https://cdn.fal.ai/shot1.mp4", out.VideoURL)
}

func TestService_GenerateVideo_RequiresGeneratedImage(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeClient{videoURL: "x"}, nil)

	s := seedShot(t, repo, StatusImgReview, nil)

	_, err := svc.GenerateVideo(context.Background(), s.ID, &GenerateVideoRequest{ModelID: "kling-standard"})
	assert.ErrorIs(t, err, ErrNoGeneratedImage)
}

func TestService_CancelVideo_RollsBackToImgReview(t *testing.T) {
	repo := newMemoryRepository()
	client := &fakeClient{videoURL: "x", block: make(chan struct{})}
	svc := newTestService(repo, client, nil)

	s := seedShot(t, repo, StatusImgReview, func(s *Shot) {
		s.GeneratedImages = []string{"frame.png"}
		s.EnhancedImages = []string{"frame_enhanced.png"}
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.GenerateVideo(context.Background(), s.ID, &GenerateVideoRequest{ModelID: "kling-standard"})
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return svc.inflight.active(opVideo, s.ID)
	}, time.Second, time.Millisecond)
	require.NoError(t, svc.CancelVideo(s.ID))

	err := <-errCh
	assert.True(t, apperrors.IsCancelled(err))

	// Rollback target is image review, not draft: the shot keeps its
	// generated images.
	stored, getErr := repo.GetShot(context.Background(), s.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusImgReview, stored.Status)
	assert.Equal(t, []string{"frame.png"}, stored.GeneratedImages)
	assert.Equal(t, []string{"frame_enhanced.png"}, stored.EnhancedImages)
}

func TestService_Cancel_NothingInFlight(t *testing.T) {
	svc := newTestService(newMemoryRepository(), &fakeClient{}, nil)
	assert.ErrorIs(t, svc.CancelImage(uuid.New()), ErrNotGenerating)
	assert.ErrorIs(t, svc.CancelVideo(uuid.New()), ErrNotGenerating)
}

func TestService_Enhance_DoesNotChangeStatus(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeClient{}, &fakeEnhancer{out: "data:image/png;base64,enhanced"})

	s := seedShot(t, repo, StatusVidReview, func(s *Shot) {
		s.GeneratedImages = []string{"frame.png"}
	})

	out, err := svc.Enhance(context.Background(), s.ID, &EnhanceRequest{Prompt: "sharpen details"})
	require.NoError(t, err)
	assert.Equal(t, StatusVidReview, out.Status)
	assert.Equal(t, []string{"data:image/png;base64,enhanced"}, out.EnhancedImages)
}

func TestService_Enhance_RequiresSourceImage(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeClient{}, &fakeEnhancer{out: "x"})

	s := seedShot(t, repo, StatusDraft, nil)

	_, err := svc.Enhance(context.Background(), s.ID, &EnhanceRequest{Prompt: "sharpen"})
	assert.ErrorIs(t, err, ErrNoSourceImage)
}

func TestService_ApproveSendBackReject(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeClient{}, nil)

	s := seedShot(t, repo, StatusVidReview, func(s *Shot) {
		s.GeneratedImages = []string{"frame.png"}
		s.VideoURL = "https://cdn.example/out.mp4"
	})

	out, err := svc.SendBack(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusImgReview, out.Status)

	// Roundtrip back to review then approve.
	stored, _ := repo.GetShot(context.Background(), s.ID)
	stored.Status = StatusVidReview
	require.NoError(t, repo.UpdateShot(context.Background(), stored))

	out, err = svc.Approve(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, out.Status)

	out, err = svc.Reject(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, out.Status)
	assert.Empty(t, out.GeneratedImages)
	assert.Empty(t, out.VideoURL)
}

func TestService_GenerateAllImages_IsolatesFailures(t *testing.T) {
	repo := newMemoryRepository()
	projectID := uuid.New()

	good := seedShot(t, repo, StatusDraft, func(s *Shot) { s.ProjectID = projectID })
	skipped := seedShot(t, repo, StatusApproved, func(s *Shot) { s.ProjectID = projectID })

	client := &fakeClient{imageURL: "https://cdn.fal.ai/out.png"}
	svc := newTestService(repo, client, nil)

	results, err := svc.GenerateAllImages(context.Background(), projectID, &GenerateImageRequest{ModelID: "flux-dev"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, good.ID, results[0].ShotID)
	assert.Equal(t, "ok", results[0].Status)

	stored, _ := repo.GetShot(context.Background(), skipped.ID)
	assert.Equal(t, StatusApproved, stored.Status)
}

func TestService_DescribeAllAssets_FillsMissingDescriptionsOnly(t *testing.T) {
	repo := newMemoryRepository()
	projectID := uuid.New()

	missing := seedShot(t, repo, StatusImgReview, func(s *Shot) {
		s.ProjectID = projectID
		s.SceneDescription = ""
		s.GeneratedImages = []string{"frame.png"}
	})
	described := seedShot(t, repo, StatusImgReview, func(s *Shot) {
		s.ProjectID = projectID
		s.SceneDescription = "already written"
		s.GeneratedImages = []string{"frame2.png"}
	})
	noImage := seedShot(t, repo, StatusDraft, func(s *Shot) {
		s.ProjectID = projectID
		s.SceneDescription = ""
	})

	describer := &fakeDescriber{out: "A rainy street at dusk, neon reflections."}
	svc := newTestServiceWithDescriber(repo, &fakeClient{}, nil, describer)

	results, err := svc.DescribeAllAssets(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, missing.ID, results[0].ShotID)
	assert.Equal(t, "ok", results[0].Status)
	assert.Equal(t, int32(1), describer.calls.Load())

	filled, _ := repo.GetShot(context.Background(), missing.ID)
	assert.Equal(t, "A rainy street at dusk, neon reflections.", filled.SceneDescription)

	kept, _ := repo.GetShot(context.Background(), described.ID)
	assert.Equal(t, "already written", kept.SceneDescription)
	untouched, _ := repo.GetShot(context.Background(), noImage.ID)
	assert.Empty(t, untouched.SceneDescription)
}

func TestService_RecoverStaleShots(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeClient{}, nil)

	stuckImg := seedShot(t, repo, StatusImgGen, nil)
	stuckVid := seedShot(t, repo, StatusVidGen, func(s *Shot) {
		s.GeneratedImages = []string{"frame.png"}
	})
	fine := seedShot(t, repo, StatusApproved, nil)

	require.NoError(t, svc.RecoverStaleShots(context.Background()))

	img, _ := repo.GetShot(context.Background(), stuckImg.ID)
	assert.Equal(t, StatusDraft, img.Status)
	vid, _ := repo.GetShot(context.Background(), stuckVid.ID)
	assert.Equal(t, StatusImgReview, vid.Status)
	assert.Equal(t, []string{"frame.png"}, vid.GeneratedImages)
	ok, _ := repo.GetShot(context.Background(), fine.ID)
	assert.Equal(t, StatusApproved, ok.Status)
}
