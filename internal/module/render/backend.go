package render

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Maxborland/cutroom/internal/module/montage"
	"github.com/Maxborland/cutroom/internal/shared/logger"
)

// Progress is one progress report from a running render.
type Progress struct {
	Phase      Phase
	FramesDone int
	FPS        float64
}

// RenderSpec is everything a backend needs to produce the output file.
type RenderSpec struct {
	JobID     uuid.UUID
	Timeline  *montage.ResolvedTimeline
	Width     int
	Height    int
	OutputDir string
}

// Backend renders a resolved timeline to a video file. Implementations
// report phase and frame progress through the callback and return the
// final output path.
type Backend interface {
	Render(ctx context.Context, spec *RenderSpec, report func(Progress)) (string, error)
}

// FFmpegBackend renders through an external ffmpeg binary.
type FFmpegBackend struct {
	binary string
	log    *logger.Logger
}

// NewFFmpegBackend creates an ffmpeg render backend. An empty binary
// path falls back to whatever "ffmpeg" resolves to on PATH.
func NewFFmpegBackend(binary string, log *logger.Logger) *FFmpegBackend {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegBackend{binary: binary, log: log}
}

// Render runs the phase sequence bundling, compositing, encoding,
// finalizing against the external binary.
func (b *FFmpegBackend) Render(ctx context.Context, spec *RenderSpec, report func(Progress)) (string, error) {
	report(Progress{Phase: PhaseBundling})
	if err := b.bundle(spec); err != nil {
		return "", err
	}

	report(Progress{Phase: PhaseCompositing})
	args, err := b.composite(spec)
	if err != nil {
		return "", err
	}

	report(Progress{Phase: PhaseEncoding})
	workPath := filepath.Join(spec.OutputDir, fmt.Sprintf("render_%s.partial.mp4", spec.JobID))
	if err := b.encode(ctx, append(args, workPath), report); err != nil {
		os.Remove(workPath)
		return "", err
	}

	report(Progress{Phase: PhaseFinalizing, FramesDone: spec.Timeline.TotalFrames})
	outPath := filepath.Join(spec.OutputDir, fmt.Sprintf("render_%s.mp4", spec.JobID))
	if err := os.Rename(workPath, outPath); err != nil {
		return "", fmt.Errorf("finalize output: %w", err)
	}
	return outPath, nil
}

// bundle verifies every referenced input exists and prepares the output
// directory.
func (b *FFmpegBackend) bundle(spec *RenderSpec) error {
	if len(spec.Timeline.Entries) == 0 {
		return ErrEmptyTimeline
	}
	for _, e := range spec.Timeline.Entries {
		if _, err := os.Stat(e.ClipPath); err != nil {
			return fmt.Errorf("bundle clip %s: %w", e.ClipPath, err)
		}
	}
	for _, audio := range []string{spec.Timeline.Voiceover, spec.Timeline.Music} {
		if audio == "" {
			continue
		}
		if _, err := os.Stat(audio); err != nil {
			return fmt.Errorf("bundle audio %s: %w", audio, err)
		}
	}
	return os.MkdirAll(spec.OutputDir, 0o755)
}

// composite builds the ffmpeg argument list for the timeline: one
// input per clip plus audio tracks, a scale/concat filter graph, and
// the encode settings. The output path is appended by the caller.
func (b *FFmpegBackend) composite(spec *RenderSpec) ([]string, error) {
	t := spec.Timeline

	args := []string{"-y", "-hide_banner", "-progress", "pipe:1", "-nostats"}
	for _, e := range t.Entries {
		args = append(args, "-i", e.ClipPath)
	}
	audioIdx := len(t.Entries)
	if t.Voiceover != "" {
		args = append(args, "-i", t.Voiceover)
	}
	if t.Music != "" {
		args = append(args, "-i", t.Music)
	}

	var filter strings.Builder
	for i, e := range t.Entries {
		fmt.Fprintf(&filter, "[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
			i, spec.Width, spec.Height, spec.Width, spec.Height)
		if e.TrimFrames > 0 {
			fmt.Fprintf(&filter, ",trim=start_frame=%d:end_frame=%d,setpts=PTS-STARTPTS",
				e.TrimStartFrame, e.TrimStartFrame+e.TrimFrames)
		}
		fmt.Fprintf(&filter, "[v%d];", i)
	}
	for i := range t.Entries {
		fmt.Fprintf(&filter, "[v%d]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=0[vout]", len(t.Entries))

	audioMaps := b.audioFilter(&filter, t, audioIdx)

	args = append(args, "-filter_complex", filter.String(), "-map", "[vout]")
	args = append(args, audioMaps...)
	args = append(args,
		"-r", strconv.FormatFloat(t.FPS, 'f', -1, 64),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
	)
	return args, nil
}

// audioFilter appends the audio mixing graph: music ducked under the
// voiceover when both are present.
func (b *FFmpegBackend) audioFilter(filter *strings.Builder, t *montage.ResolvedTimeline, idx int) []string {
	switch {
	case t.Voiceover != "" && t.Music != "":
		fmt.Fprintf(filter, ";[%d:a]volume=%g[music];[music][%d:a]sidechaincompress=ratio=%g[aout]",
			idx+1, t.MusicVolume, idx, 1/maxDucking(t.Ducking))
		return []string{"-map", "[aout]", "-c:a", "aac"}
	case t.Voiceover != "":
		return []string{"-map", fmt.Sprintf("%d:a", idx), "-c:a", "aac"}
	case t.Music != "":
		fmt.Fprintf(filter, ";[%d:a]volume=%g[aout]", idx, t.MusicVolume)
		return []string{"-map", "[aout]", "-c:a", "aac"}
	}
	return []string{"-an"}
}

func maxDucking(d float64) float64 {
	if d <= 0 || d >= 1 {
		return 0.5
	}
	return d
}

// encode runs the binary and feeds frame progress back to the caller.
func (b *FFmpegBackend) encode(ctx context.Context, args []string, report func(Progress)) error {
	cmd := exec.CommandContext(ctx, b.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("progress pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", b.binary, err)
	}

	// ffmpeg -progress emits key=value lines; frame and fps are the
	// ones the job tracks.
	scanner := bufio.NewScanner(stdout)
	var frames int
	var fps float64
	for scanner.Scan() {
		key, value, found := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !found {
			continue
		}
		switch key {
		case "frame":
			if n, err := strconv.Atoi(value); err == nil {
				frames = n
			}
		case "fps":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				fps = f
			}
		case "progress":
			report(Progress{Phase: PhaseEncoding, FramesDone: frames, FPS: fps})
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", b.binary, err, lastLines(stderr.String(), 5))
	}
	return nil
}

// lastLines keeps the tail of ffmpeg's stderr, which is where the
// actual failure reason lives.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
