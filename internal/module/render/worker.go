package render

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Maxborland/cutroom/internal/module/montage"
	"github.com/Maxborland/cutroom/internal/shared/logger"
)

// Publisher pushes a finished render to object storage and returns its
// public URL.
type Publisher interface {
	PublishRender(ctx context.Context, jobID uuid.UUID, path string) (string, error)
}

// JobRecorder receives render job outcome observations.
type JobRecorder interface {
	RecordRenderJob(quality, status string, duration time.Duration)
	SetRenderFPS(quality string, fps float64)
}

// Worker runs renders as tracked background jobs. It owns the job
// registry and is its only writer; Status and Output hand out copies.
type Worker struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*RenderJob

	backend   Backend
	publisher Publisher
	outputDir string
	recorder  JobRecorder
	log       *logger.Logger
}

// SetRecorder attaches a job outcome recorder. A nil recorder disables
// observation.
func (w *Worker) SetRecorder(rec JobRecorder) {
	w.recorder = rec
}

// NewWorker creates a render worker. publisher may be nil, in which
// case finished renders stay local.
func NewWorker(backend Backend, publisher Publisher, outputDir string, log *logger.Logger) *Worker {
	return &Worker{
		jobs:      make(map[uuid.UUID]*RenderJob),
		backend:   backend,
		publisher: publisher,
		outputDir: outputDir,
		log:       log,
	}
}

// Start queues a render of the resolved timeline and returns the job
// id immediately. The render runs detached from the caller's request;
// callers poll Status.
func (w *Worker) Start(projectID uuid.UUID, rt *montage.ResolvedTimeline, quality Quality) (uuid.UUID, error) {
	if quality != QualityPreview && quality != QualityFinal {
		return uuid.Nil, ErrInvalidQuality
	}
	width, height := resolutionFor(quality, rt)

	job := &RenderJob{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Quality:     quality,
		Width:       width,
		Height:      height,
		Status:      StatusQueued,
		TotalFrames: rt.TotalFrames,
		CreatedAt:   time.Now(),
	}

	w.mu.Lock()
	w.jobs[job.ID] = job
	w.mu.Unlock()

	go w.run(job.ID, projectID, rt, width, height, quality)
	return job.ID, nil
}

// Status returns a snapshot of the job, or ErrJobNotFound.
func (w *Worker) Status(id uuid.UUID) (*RenderJob, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

// Output returns the finished file path. Any status other than done is
// a "not complete" error for this call.
func (w *Worker) Output(id uuid.UUID) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return "", ErrJobNotFound
	}
	if job.Status != StatusDone {
		return "", ErrJobNotComplete
	}
	return job.OutputPath, nil
}

// Jobs returns snapshots of every tracked job.
func (w *Worker) Jobs() []*RenderJob {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*RenderJob, 0, len(w.jobs))
	for _, job := range w.jobs {
		cp := *job
		out = append(out, &cp)
	}
	return out
}

func (w *Worker) run(id, projectID uuid.UUID, rt *montage.ResolvedTimeline, width, height int, quality Quality) {
	ctx := context.Background()
	start := time.Now()

	w.update(id, func(j *RenderJob) {
		now := time.Now()
		j.Status = StatusRendering
		j.Phase = PhaseBundling
		j.StartedAt = &now
	})

	outPath, err := w.backend.Render(ctx, &RenderSpec{
		JobID:     id,
		Timeline:  rt,
		Width:     width,
		Height:    height,
		OutputDir: w.outputDir,
	}, func(p Progress) {
		w.update(id, func(j *RenderJob) {
			j.Phase = p.Phase
			if p.FramesDone > 0 {
				j.FramesDone = p.FramesDone
			}
			if p.FPS > 0 {
				j.RenderFPS = p.FPS
			}
		})
		if p.FPS > 0 && w.recorder != nil {
			w.recorder.SetRenderFPS(string(quality), p.FPS)
		}
	})

	if err != nil {
		w.log.Error("render failed",
			logger.String("job_id", id.String()),
			logger.String("project_id", projectID.String()),
			logger.Err(err))
		w.update(id, func(j *RenderJob) {
			now := time.Now()
			j.Status = StatusFailed
			j.Error = err.Error()
			j.CompletedAt = &now
		})
		w.observe(quality, "failed", time.Since(start))
		return
	}

	var published string
	if w.publisher != nil && quality == QualityFinal {
		published, err = w.publisher.PublishRender(ctx, id, outPath)
		if err != nil {
			// Publication is best effort; the local file is the
			// authoritative output.
			w.log.Warn("render publish failed",
				logger.String("job_id", id.String()), logger.Err(err))
		}
	}

	w.update(id, func(j *RenderJob) {
		now := time.Now()
		j.Status = StatusDone
		j.Phase = PhaseFinalizing
		j.FramesDone = j.TotalFrames
		j.OutputPath = outPath
		j.PublishedURL = published
		j.CompletedAt = &now
	})
	w.observe(quality, "done", time.Since(start))
}

func (w *Worker) observe(quality Quality, status string, elapsed time.Duration) {
	if w.recorder != nil {
		w.recorder.RecordRenderJob(string(quality), status, elapsed)
	}
}

func (w *Worker) update(id uuid.UUID, fn func(*RenderJob)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if job, ok := w.jobs[id]; ok {
		fn(job)
	}
}
