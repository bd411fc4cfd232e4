package montage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() *Plan {
	return &Plan{
		Format: Format{Width: 3840, Height: 2160, FPS: 30},
		Timeline: []TimelineEntry{
			{ID: "e1", ShotID: "s1", ClipFile: "clips/s1.mp4", StartSeconds: 2, DurationSeconds: 5},
			{ID: "e2", ShotID: "s2", ClipFile: "clips/s2.mp4", StartSeconds: 7, DurationSeconds: 4.5},
		},
		Transitions: []TransitionEntry{
			{FromID: "intro", ToID: "e1", Type: "fade", DurationSeconds: 0.5},
			{FromID: "e1", ToID: "e2", Type: "crossfade", DurationSeconds: 1},
			{FromID: "e2", ToID: "outro", Type: "fade", DurationSeconds: 0.5},
		},
		Graphics: MotionGraphics{
			Intro: &Card{Text: "Cutroom", DurationSeconds: 2},
			Outro: &Card{Text: "Fin", DurationSeconds: 3},
			LowerThirds: []LowerThird{
				{EntryID: "e1", Text: "Scene one", StartSeconds: 2.5},
			},
		},
		Audio: AudioTracks{
			VoiceoverFile: "audio/vo.wav",
			MusicFile:     "audio/bed.mp3",
			MusicVolume:   0.6,
			DuckingLevel:  0.2,
		},
	}
}

func TestResolve_FrameConversion(t *testing.T) {
	rt := Resolve(samplePlan(), "/projects/demo")

	require.Len(t, rt.Entries, 2)
	assert.Equal(t, 60, rt.Entries[0].StartFrame)
	assert.Equal(t, 150, rt.Entries[0].DurationFrames)
	assert.Equal(t, 210, rt.Entries[1].StartFrame)
	// 4.5s * 30fps = 135, converted from its own field rather than
	// accumulated from the previous entry.
	assert.Equal(t, 135, rt.Entries[1].DurationFrames)

	// Intro fills the gap before the first clip.
	assert.Equal(t, 60, rt.IntroFrames)
	assert.Equal(t, 90, rt.OutroFrames)

	// Total = last clip end + outro.
	assert.Equal(t, 210+135+90, rt.TotalFrames)
}

func TestResolve_TransitionTiming(t *testing.T) {
	rt := Resolve(samplePlan(), "/projects/demo")

	require.Len(t, rt.Transitions, 3)

	intro := rt.Transitions[0]
	assert.Equal(t, 0, intro.StartFrame)
	assert.Equal(t, 15, intro.DurationFrames)

	cut := rt.Transitions[1]
	assert.Equal(t, 60, cut.StartFrame)
	assert.Equal(t, 30, cut.DurationFrames)

	outro := rt.Transitions[2]
	assert.Equal(t, 345, outro.StartFrame)
	assert.Equal(t, 15, outro.DurationFrames)
}

func TestResolve_PathResolution(t *testing.T) {
	rt := Resolve(samplePlan(), "/projects/demo")

	assert.Equal(t, filepath.Join("/projects/demo", "clips/s1.mp4"), rt.Entries[0].ClipPath)
	assert.Equal(t, filepath.Join("/projects/demo", "audio/vo.wav"), rt.Voiceover)
	assert.Equal(t, filepath.Join("/projects/demo", "audio/bed.mp3"), rt.Music)
}

func TestResolve_EmptyAudioStaysEmpty(t *testing.T) {
	plan := samplePlan()
	plan.Audio.VoiceoverFile = ""
	plan.Audio.MusicFile = ""

	rt := Resolve(plan, "/projects/demo")
	assert.Equal(t, "", rt.Voiceover)
	assert.Equal(t, "", rt.Music)
}

func TestResolve_AbsolutePathPassesThrough(t *testing.T) {
	plan := samplePlan()
	plan.Timeline[0].ClipFile = "/mnt/assets/s1.mp4"

	rt := Resolve(plan, "/projects/demo")
	assert.Equal(t, "/mnt/assets/s1.mp4", rt.Entries[0].ClipPath)
}

func TestResolve_Deterministic(t *testing.T) {
	a := Resolve(samplePlan(), "/projects/demo")
	b := Resolve(samplePlan(), "/projects/demo")
	assert.Equal(t, a, b)
}

func TestResolve_RoundingIsIndependentPerField(t *testing.T) {
	plan := &Plan{
		Format: Format{Width: 1920, Height: 1080, FPS: 29.97},
		Timeline: []TimelineEntry{
			{ID: "e1", ClipFile: "a.mp4", StartSeconds: 0, DurationSeconds: 1.5},
			{ID: "e2", ClipFile: "b.mp4", StartSeconds: 1.5, DurationSeconds: 1.5},
			{ID: "e3", ClipFile: "c.mp4", StartSeconds: 3.0, DurationSeconds: 1.5},
		},
	}

	rt := Resolve(plan, "/p")
	// round(1.5*29.97)=45, round(3.0*29.97)=90: each start comes from
	// its own absolute offset.
	assert.Equal(t, 0, rt.Entries[0].StartFrame)
	assert.Equal(t, 45, rt.Entries[1].StartFrame)
	assert.Equal(t, 90, rt.Entries[2].StartFrame)
	assert.Equal(t, 45, rt.Entries[2].DurationFrames)
	assert.Equal(t, 135, rt.TotalFrames)
}

func TestResolve_NoIntro(t *testing.T) {
	plan := samplePlan()
	plan.Graphics.Intro = nil
	plan.Graphics.Outro = nil

	rt := Resolve(plan, "/p")
	assert.Equal(t, 0, rt.IntroFrames)
	assert.Equal(t, 0, rt.OutroFrames)
	assert.Equal(t, 345, rt.TotalFrames)
}

func TestResolve_TrimAndLowerThirds(t *testing.T) {
	plan := samplePlan()
	plan.Timeline[0].Trim = &Trim{StartSeconds: 0.5, DurationSeconds: 4}

	rt := Resolve(plan, "/p")
	assert.Equal(t, 15, rt.Entries[0].TrimStartFrame)
	assert.Equal(t, 120, rt.Entries[0].TrimFrames)

	require.Len(t, rt.LowerThirds, 1)
	assert.Equal(t, 75, rt.LowerThirds[0].StartFrame)
	assert.Equal(t, "Scene one", rt.LowerThirds[0].Text)
}
