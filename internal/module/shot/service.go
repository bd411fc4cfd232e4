package shot

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Maxborland/cutroom/internal/adapter/outbound/provider"
	"github.com/Maxborland/cutroom/internal/module/catalog"
	"github.com/Maxborland/cutroom/internal/shared/config"
	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
	"github.com/Maxborland/cutroom/internal/shared/logger"
	"github.com/Maxborland/cutroom/internal/utils/pool"
)

// GeneratorClient is the provider surface the pipeline drives.
type GeneratorClient interface {
	GenerateImage(ctx context.Context, m *catalog.ImageModel, call *provider.ImageCall) (string, error)
	GenerateVideo(ctx context.Context, m *catalog.VideoModel, call *provider.VideoCall) (string, error)
}

// Enhancer post-processes an existing shot image through the chat
// image modality.
type Enhancer interface {
	GenerateImage(ctx context.Context, req *provider.ImageGenRequest) (string, error)
}

// Describer produces text through the chat modality.
type Describer interface {
	Complete(ctx context.Context, model string, messages []provider.ChatMessage, temperature *float64) (string, error)
}

// GenerationRecorder receives generation outcome observations.
type GenerationRecorder interface {
	RecordGeneration(provider, kind, status string, duration time.Duration)
}

// Service owns the shot generation pipeline: the state machine, the
// in-flight operation tracking and the provider dispatch.
type Service struct {
	repo         Repository
	registry     *catalog.Registry
	clients      map[catalog.Provider]GeneratorClient
	enhancer     Enhancer
	enhanceModel string
	describer    Describer
	chatModel    string
	monitor      *provider.HealthMonitor
	sm           *StateMachine
	inflight     *inflightTable
	batchLimit   int
	recorder     GenerationRecorder
	log          *logger.Logger
}

// SetRecorder attaches an outcome recorder. A nil recorder disables
// observation.
func (s *Service) SetRecorder(rec GenerationRecorder) {
	s.recorder = rec
}

// NewService creates a new shot pipeline service.
func NewService(
	repo Repository,
	registry *catalog.Registry,
	clients map[catalog.Provider]GeneratorClient,
	enhancer Enhancer,
	describer Describer,
	monitor *provider.HealthMonitor,
	cfg *config.PipelineConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:         repo,
		registry:     registry,
		clients:      clients,
		enhancer:     enhancer,
		enhanceModel: "gpt-image-1",
		describer:    describer,
		chatModel:    "gpt-4o",
		monitor:      monitor,
		sm:           NewStateMachine(),
		inflight:     newInflightTable(),
		batchLimit:   cfg.BatchConcurrency,
		log:          log,
	}
}

// GenerateImageRequest describes one image generation run.
type GenerateImageRequest struct {
	ModelID     string `json:"model_id" binding:"required"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

// GenerateVideoRequest describes one video generation run.
type GenerateVideoRequest struct {
	ModelID string         `json:"model_id" binding:"required"`
	Prompt  string         `json:"prompt"`
	Quality string         `json:"quality"`
	Extra   map[string]any `json:"extra"`
}

// EnhanceRequest describes an image post-processing run.
type EnhanceRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// GenerateImage runs image generation for a draft shot. The shot moves
// to img_gen for the duration of the call and lands in img_review on
// success or back in draft on failure or cancellation.
func (s *Service) GenerateImage(ctx context.Context, shotID uuid.UUID, req *GenerateImageRequest) (*Shot, error) {
	sh, err := s.repo.GetShot(ctx, shotID)
	if err != nil {
		return nil, err
	}

	m, ok := s.registry.ResolveImage(req.ModelID)
	if !ok {
		return nil, ErrUnknownModel
	}
	client, ok := s.clients[m.Provider]
	if !ok {
		return nil, apperrors.Configuration("no client for provider " + string(m.Provider))
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = sh.ImagePrompt
	}
	var refs []string
	if m.SupportsImageInput {
		if img := sh.SelectedImage(); img != "" {
			refs = []string{img}
		}
	}
	if m.RequiresImageInput && len(refs) == 0 {
		return nil, ErrNoSourceImage
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := s.inflight.begin(opImage, sh.ID, cancel); err != nil {
		return nil, err
	}
	defer s.inflight.end(opImage, sh.ID)

	if err := s.sm.Transition(sh, StatusImgGen); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateShot(ctx, sh); err != nil {
		return nil, err
	}

	var url string
	start := time.Now()
	callErr := s.monitor.Guard(m.Provider, func() error {
		var genErr error
		url, genErr = client.GenerateImage(genCtx, m, &provider.ImageCall{
			Prompt:          prompt,
			ReferenceImages: refs,
			AspectRatio:     req.AspectRatio,
		})
		return genErr
	})
	s.observe(m.Provider, "image", callErr, time.Since(start))
	if callErr != nil {
		return nil, s.rollback(ctx, sh, StatusDraft, callErr)
	}

	sh.GeneratedImages = append(sh.GeneratedImages, url)
	if err := s.sm.Transition(sh, StatusImgReview); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateShot(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// GenerateVideo runs video generation for a shot in image review. The
// shot moves to vid_gen and lands in vid_review on success; failure or
// cancellation rolls back to img_review so generated images survive.
func (s *Service) GenerateVideo(ctx context.Context, shotID uuid.UUID, req *GenerateVideoRequest) (*Shot, error) {
	sh, err := s.repo.GetShot(ctx, shotID)
	if err != nil {
		return nil, err
	}

	m, ok := s.registry.ResolveVideo(req.ModelID)
	if !ok {
		return nil, ErrUnknownModel
	}
	client, ok := s.clients[m.Provider]
	if !ok {
		return nil, apperrors.Configuration("no client for provider " + string(m.Provider))
	}

	source := sh.SelectedImage()
	if m.RequiresImageInput && source == "" {
		return nil, ErrNoGeneratedImage
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = sh.VideoPrompt
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := s.inflight.begin(opVideo, sh.ID, cancel); err != nil {
		return nil, err
	}
	defer s.inflight.end(opVideo, sh.ID)

	if err := s.sm.Transition(sh, StatusVidGen); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateShot(ctx, sh); err != nil {
		return nil, err
	}

	var url string
	start := time.Now()
	callErr := s.monitor.Guard(m.Provider, func() error {
		var genErr error
		url, genErr = client.GenerateVideo(genCtx, m, &provider.VideoCall{
			Prompt:          prompt,
			SourceImageURL:  source,
			DurationSeconds: sh.DurationSeconds,
			QualityInput:    catalog.ResolveQualityInput(m, req.Quality),
			Extra:           req.Extra,
		})
		return genErr
	})
	s.observe(m.Provider, "video", callErr, time.Since(start))
	if callErr != nil {
		return nil, s.rollback(ctx, sh, StatusImgReview, callErr)
	}

	sh.VideoURL = url
	if err := s.sm.Transition(sh, StatusVidReview); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateShot(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// Enhance post-processes the shot's current image. It is tracked
// independently of the primary status and never changes it.
func (s *Service) Enhance(ctx context.Context, shotID uuid.UUID, req *EnhanceRequest) (*Shot, error) {
	sh, err := s.repo.GetShot(ctx, shotID)
	if err != nil {
		return nil, err
	}
	source := sh.SelectedImage()
	if source == "" {
		return nil, ErrNoSourceImage
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := s.inflight.begin(opEnhance, sh.ID, cancel); err != nil {
		return nil, err
	}
	defer s.inflight.end(opEnhance, sh.ID)

	start := time.Now()
	out, err := s.enhancer.GenerateImage(genCtx, &provider.ImageGenRequest{
		Model:           s.enhanceModel,
		Prompt:          req.Prompt,
		ReferenceImages: []string{source},
	})
	s.observe("openai", "enhance", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	sh.EnhancedImages = append(sh.EnhancedImages, out)
	if err := s.repo.UpdateShot(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// CancelImage cancels an in-flight image generation for the shot.
func (s *Service) CancelImage(shotID uuid.UUID) error {
	if !s.inflight.cancel(opImage, shotID) {
		return ErrNotGenerating
	}
	return nil
}

// CancelVideo cancels an in-flight video generation for the shot.
func (s *Service) CancelVideo(shotID uuid.UUID) error {
	if !s.inflight.cancel(opVideo, shotID) {
		return ErrNotGenerating
	}
	return nil
}

// CancelEnhance cancels an in-flight enhancement for the shot.
func (s *Service) CancelEnhance(shotID uuid.UUID) error {
	if !s.inflight.cancel(opEnhance, shotID) {
		return ErrNotGenerating
	}
	return nil
}

// Approve moves a reviewed shot to approved.
func (s *Service) Approve(ctx context.Context, shotID uuid.UUID) (*Shot, error) {
	return s.transitionTo(ctx, shotID, StatusApproved)
}

// SendBack returns a shot in video review to image review. The video
// artifact is kept; a later generation simply replaces it.
func (s *Service) SendBack(ctx context.Context, shotID uuid.UUID) (*Shot, error) {
	return s.transitionTo(ctx, shotID, StatusImgReview)
}

// Reject sends a shot back to draft from any status and clears all of
// its generated artifacts.
func (s *Service) Reject(ctx context.Context, shotID uuid.UUID) (*Shot, error) {
	sh, err := s.repo.GetShot(ctx, shotID)
	if err != nil {
		return nil, err
	}
	s.sm.Reject(sh)
	if err := s.repo.UpdateShot(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// BatchResult is the settled outcome of one shot in a batch run.
type BatchResult struct {
	ShotID uuid.UUID `json:"shot_id"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
}

// GenerateAllImages generates images for every draft shot of a project
// with bounded concurrency. One failing shot does not abort the rest.
func (s *Service) GenerateAllImages(ctx context.Context, projectID uuid.UUID, req *GenerateImageRequest) ([]BatchResult, error) {
	shots, err := s.repo.ListShots(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var pending []*Shot
	for _, sh := range shots {
		if sh.Status == StatusDraft {
			pending = append(pending, sh)
		}
	}

	results := pool.Map(ctx, pending, s.batchLimit, func(ctx context.Context, sh *Shot) (*Shot, error) {
		return s.GenerateImage(ctx, sh.ID, req)
	})
	return s.settle(pending, results), nil
}

// EnhanceAllImages enhances the current image of every shot that has
// one, with bounded concurrency.
func (s *Service) EnhanceAllImages(ctx context.Context, projectID uuid.UUID, req *EnhanceRequest) ([]BatchResult, error) {
	shots, err := s.repo.ListShots(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var pending []*Shot
	for _, sh := range shots {
		if sh.SelectedImage() != "" {
			pending = append(pending, sh)
		}
	}

	results := pool.Map(ctx, pending, s.batchLimit, func(ctx context.Context, sh *Shot) (*Shot, error) {
		return s.Enhance(ctx, sh.ID, req)
	})
	return s.settle(pending, results), nil
}

const describeInstruction = "Describe this image in two or three sentences, covering subject, setting and mood."

// DescribeAllAssets fills the scene description of every shot that has
// a current image but no description yet, with bounded concurrency.
// Existing descriptions are left alone.
func (s *Service) DescribeAllAssets(ctx context.Context, projectID uuid.UUID) ([]BatchResult, error) {
	shots, err := s.repo.ListShots(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var pending []*Shot
	for _, sh := range shots {
		if sh.SceneDescription == "" && sh.SelectedImage() != "" {
			pending = append(pending, sh)
		}
	}

	results := pool.Map(ctx, pending, s.batchLimit, func(ctx context.Context, sh *Shot) (*Shot, error) {
		return s.describe(ctx, sh)
	})
	return s.settle(pending, results), nil
}

func (s *Service) describe(ctx context.Context, sh *Shot) (*Shot, error) {
	msg := provider.UserImageMessage(describeInstruction, sh.SelectedImage())
	out, err := s.describer.Complete(ctx, s.chatModel, []provider.ChatMessage{msg}, nil)
	if err != nil {
		return nil, err
	}
	sh.SceneDescription = out
	if err := s.repo.UpdateShot(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// RecoverStaleShots resets shots stranded in a generation state by a
// previous process. Called once at startup.
func (s *Service) RecoverStaleShots(ctx context.Context) error {
	n, err := s.repo.ResetStaleShots(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Warn("reset stale generating shots", logger.Int("count", int(n)))
	}
	return nil
}

// settle pairs batch results back with their shots. Cancellation is
// reported as its own status, not as a failure.
func (s *Service) settle(shots []*Shot, results []pool.Result[*Shot]) []BatchResult {
	out := make([]BatchResult, len(results))
	for i, res := range results {
		br := BatchResult{ShotID: shots[i].ID}
		switch {
		case res.Err == nil:
			br.Status = "ok"
		case apperrors.IsCancelled(res.Err):
			br.Status = "cancelled"
		default:
			br.Status = "failed"
			br.Error = res.Err.Error()
		}
		out[i] = br
	}
	return out
}

// observe reports a generation outcome to the attached recorder.
func (s *Service) observe(p catalog.Provider, kind string, err error, elapsed time.Duration) {
	if s.recorder == nil {
		return
	}
	status := "ok"
	switch {
	case apperrors.IsCancelled(err):
		status = "cancelled"
	case err != nil:
		status = "failed"
	}
	s.recorder.RecordGeneration(string(p), kind, status, elapsed)
}

// rollback applies the failure transition, persists it and re-raises
// the original error. A failed persist is logged but never masks the
// generation error.
func (s *Service) rollback(ctx context.Context, sh *Shot, to ShotStatus, cause error) error {
	if err := s.sm.Transition(sh, to); err != nil {
		s.log.Error("rollback transition failed", logger.String("shot_id", sh.ID.String()), logger.Err(err))
		return cause
	}
	if err := s.repo.UpdateShot(context.WithoutCancel(ctx), sh); err != nil {
		s.log.Error("rollback persist failed", logger.String("shot_id", sh.ID.String()), logger.Err(err))
	}
	return cause
}

func (s *Service) transitionTo(ctx context.Context, shotID uuid.UUID, to ShotStatus) (*Shot, error) {
	sh, err := s.repo.GetShot(ctx, shotID)
	if err != nil {
		return nil, err
	}
	if err := s.sm.Transition(sh, to); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateShot(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}
