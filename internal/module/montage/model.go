package montage

// Format describes the output format of a montage plan.
type Format struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}

// Trim cuts a source clip before placement on the timeline.
type Trim struct {
	StartSeconds    float64 `json:"start_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// MotionEffect is an optional pan/zoom applied to a still clip.
type MotionEffect struct {
	Type      string  `json:"type"`
	Intensity float64 `json:"intensity"`
}

// TimelineEntry places one shot's clip on the timeline. Start offsets
// are absolute, not relative to the previous entry.
type TimelineEntry struct {
	ID              string        `json:"id"`
	ShotID          string        `json:"shot_id"`
	ClipFile        string        `json:"clip_file"`
	StartSeconds    float64       `json:"start_seconds"`
	DurationSeconds float64       `json:"duration_seconds"`
	Trim            *Trim         `json:"trim,omitempty"`
	Motion          *MotionEffect `json:"motion,omitempty"`
}

// TransitionEntry joins two adjacent timeline boundaries.
type TransitionEntry struct {
	FromID          string  `json:"from_id"`
	ToID            string  `json:"to_id"`
	Type            string  `json:"type"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Card is an intro or outro title card.
type Card struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// LowerThird is a caption overlaid during a clip.
type LowerThird struct {
	EntryID      string  `json:"entry_id"`
	Text         string  `json:"text"`
	StartSeconds float64 `json:"start_seconds"`
}

// MotionGraphics groups the optional graphic overlays of a plan.
type MotionGraphics struct {
	Intro       *Card        `json:"intro,omitempty"`
	Outro       *Card        `json:"outro,omitempty"`
	LowerThirds []LowerThird `json:"lower_thirds,omitempty"`
}

// AudioTracks describes the plan's audio: a voiceover and a music bed
// ducked under it.
type AudioTracks struct {
	VoiceoverFile string  `json:"voiceover_file"`
	MusicFile     string  `json:"music_file"`
	MusicVolume   float64 `json:"music_volume"`
	DuckingLevel  float64 `json:"ducking_level"`
}

// Plan is the duration-based edit plan for a project.
type Plan struct {
	Format      Format            `json:"format"`
	Timeline    []TimelineEntry   `json:"timeline"`
	Transitions []TransitionEntry `json:"transitions"`
	Graphics    MotionGraphics    `json:"graphics"`
	Audio       AudioTracks       `json:"audio"`
}

// ResolvedEntry is a timeline entry with all durations in frames and
// the clip path absolute.
type ResolvedEntry struct {
	ID             string
	ShotID         string
	ClipPath       string
	StartFrame     int
	DurationFrames int
	TrimStartFrame int
	TrimFrames     int
	Motion         *MotionEffect
}

// ResolvedTransition is a transition with frame-accurate timing.
type ResolvedTransition struct {
	FromID         string
	ToID           string
	Type           string
	StartFrame     int
	DurationFrames int
}

// ResolvedLowerThird is a lower third with frame-accurate timing.
type ResolvedLowerThird struct {
	EntryID    string
	Text       string
	StartFrame int
}

// ResolvedTimeline is the frame-accurate render input derived from a
// plan. It is produced fresh for every render request and never
// mutated.
type ResolvedTimeline struct {
	Width       int
	Height      int
	FPS         float64
	Entries     []ResolvedEntry
	Transitions []ResolvedTransition
	IntroFrames int
	IntroText   string
	OutroFrames int
	OutroText   string
	LowerThirds []ResolvedLowerThird
	Voiceover   string
	Music       string
	MusicVolume float64
	Ducking     float64
	TotalFrames int
}
