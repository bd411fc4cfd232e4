package montage

import (
	"math"
	"path/filepath"
)

// Resolve converts a duration-based plan into a frame-accurate render
// timeline. Every second-denominated field is converted independently
// with frames(s) = round(s * fps), so rounding error never compounds
// across entries. File references are made absolute against the
// project root; an empty file field stays empty.
func Resolve(plan *Plan, projectRoot string) *ResolvedTimeline {
	fps := plan.Format.FPS
	frames := func(seconds float64) int {
		return int(math.Round(seconds * fps))
	}

	rt := &ResolvedTimeline{
		Width:       plan.Format.Width,
		Height:      plan.Format.Height,
		FPS:         fps,
		MusicVolume: plan.Audio.MusicVolume,
		Ducking:     plan.Audio.DuckingLevel,
		Voiceover:   resolvePath(projectRoot, plan.Audio.VoiceoverFile),
		Music:       resolvePath(projectRoot, plan.Audio.MusicFile),
	}

	for _, e := range plan.Timeline {
		re := ResolvedEntry{
			ID:             e.ID,
			ShotID:         e.ShotID,
			ClipPath:       resolvePath(projectRoot, e.ClipFile),
			StartFrame:     frames(e.StartSeconds),
			DurationFrames: frames(e.DurationSeconds),
			Motion:         e.Motion,
		}
		if e.Trim != nil {
			re.TrimStartFrame = frames(e.Trim.StartSeconds)
			re.TrimFrames = frames(e.Trim.DurationSeconds)
		}
		rt.Entries = append(rt.Entries, re)
	}

	if plan.Graphics.Intro != nil {
		rt.IntroText = plan.Graphics.Intro.Text
		// The intro fills the gap before the first clip.
		if len(rt.Entries) > 0 {
			rt.IntroFrames = rt.Entries[0].StartFrame
		} else {
			rt.IntroFrames = frames(plan.Graphics.Intro.DurationSeconds)
		}
	}
	if plan.Graphics.Outro != nil {
		rt.OutroText = plan.Graphics.Outro.Text
		rt.OutroFrames = frames(plan.Graphics.Outro.DurationSeconds)
	}
	for _, lt := range plan.Graphics.LowerThirds {
		rt.LowerThirds = append(rt.LowerThirds, ResolvedLowerThird{
			EntryID:    lt.EntryID,
			Text:       lt.Text,
			StartFrame: frames(lt.StartSeconds),
		})
	}

	starts := make(map[string]int, len(rt.Entries))
	var lastEnd int
	for _, e := range rt.Entries {
		starts[e.ID] = e.StartFrame
		if end := e.StartFrame + e.DurationFrames; end > lastEnd {
			lastEnd = end
		}
	}

	for _, tr := range plan.Transitions {
		resolved := ResolvedTransition{
			FromID:         tr.FromID,
			ToID:           tr.ToID,
			Type:           tr.Type,
			DurationFrames: frames(tr.DurationSeconds),
		}
		if _, toEntry := starts[tr.ToID]; !toEntry {
			// Final clip to outro: the transition starts where the
			// outro begins.
			resolved.StartFrame = lastEnd
		} else if start, ok := starts[tr.FromID]; ok {
			resolved.StartFrame = start
		}
		// An intro origin keeps frame 0.
		rt.Transitions = append(rt.Transitions, resolved)
	}

	rt.TotalFrames = lastEnd + rt.OutroFrames
	return rt
}

// resolvePath joins a plan-relative file against the project root. An
// empty field is an explicit "no file" and passes through unchanged.
func resolvePath(root, file string) string {
	if file == "" {
		return ""
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(root, file)
}
