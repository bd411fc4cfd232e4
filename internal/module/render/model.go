package render

import (
	"time"

	"github.com/google/uuid"

	"github.com/Maxborland/cutroom/internal/module/montage"
)

// Quality selects the render target resolution.
type Quality string

const (
	QualityPreview Quality = "preview"
	QualityFinal   Quality = "final"
)

// Preview renders at a fixed low resolution regardless of the plan's
// native format.
const (
	previewWidth  = 1280
	previewHeight = 720
)

// JobStatus is the lifecycle state of a render job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRendering JobStatus = "rendering"
	StatusDone      JobStatus = "done"
	StatusFailed    JobStatus = "failed"
)

// Phase is the render stage currently executing.
type Phase string

const (
	PhaseBundling    Phase = "bundling"
	PhaseCompositing Phase = "compositing"
	PhaseEncoding    Phase = "encoding"
	PhaseFinalizing  Phase = "finalizing"
)

// RenderJob tracks one background render. The worker is the sole
// writer; everyone else observes.
type RenderJob struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Quality   Quality   `json:"quality"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`

	Status      JobStatus `json:"status"`
	Phase       Phase     `json:"phase,omitempty"`
	FramesDone  int       `json:"frames_done"`
	TotalFrames int       `json:"total_frames"`
	RenderFPS   float64   `json:"render_fps"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	OutputPath   string `json:"output_path,omitempty"`
	PublishedURL string `json:"published_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

// IsTerminal reports whether the job has finished, either way.
func (j *RenderJob) IsTerminal() bool {
	return j.Status == StatusDone || j.Status == StatusFailed
}

// resolutionFor maps a quality tier to the output resolution. Preview
// is a fixed 720p; final uses the plan's native format.
func resolutionFor(q Quality, rt *montage.ResolvedTimeline) (int, int) {
	if q == QualityPreview {
		return previewWidth, previewHeight
	}
	return rt.Width, rt.Height
}
