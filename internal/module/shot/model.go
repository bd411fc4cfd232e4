package shot

import (
	"time"

	"github.com/google/uuid"
)

// ShotStatus represents where a shot sits in the generation lifecycle.
type ShotStatus string

const (
	StatusDraft     ShotStatus = "draft"
	StatusImgGen    ShotStatus = "img_gen"
	StatusImgReview ShotStatus = "img_review"
	StatusVidGen    ShotStatus = "vid_gen"
	StatusVidReview ShotStatus = "vid_review"
	StatusApproved  ShotStatus = "approved"
)

// Shot is one planned shot of a project's video.
type Shot struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;index"`
	Position  int        `json:"position" gorm:"not null"`
	Status    ShotStatus `json:"status" gorm:"not null;default:draft"`

	SceneDescription string `json:"scene_description"`
	AudioDescription string `json:"audio_description"`
	ImagePrompt      string `json:"image_prompt"`
	VideoPrompt      string `json:"video_prompt"`
	DurationSeconds  int    `json:"duration_seconds"`

	GeneratedImages []string `json:"generated_images" gorm:"type:jsonb;serializer:json"`
	EnhancedImages  []string `json:"enhanced_images" gorm:"type:jsonb;serializer:json"`
	VideoFile       string   `json:"video_file"`
	VideoURL        string   `json:"video_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Shot) TableName() string {
	return "shots"
}

// SelectedImage returns the most recent artifact for the video stage:
// enhanced output wins over raw generation output.
func (s *Shot) SelectedImage() string {
	if n := len(s.EnhancedImages); n > 0 {
		return s.EnhancedImages[n-1]
	}
	if n := len(s.GeneratedImages); n > 0 {
		return s.GeneratedImages[n-1]
	}
	return ""
}

// HasVideo reports whether the shot carries any video artifact.
func (s *Shot) HasVideo() bool {
	return s.VideoFile != "" || s.VideoURL != ""
}

// IsGenerating reports whether the shot is in a transient generation
// state.
func (s *Shot) IsGenerating() bool {
	return s.Status == StatusImgGen || s.Status == StatusVidGen
}

// ClearArtifacts drops every generated artifact reference. Used by the
// full rejection path when a shot is sent back to draft.
func (s *Shot) ClearArtifacts() {
	s.GeneratedImages = nil
	s.EnhancedImages = nil
	s.VideoFile = ""
	s.VideoURL = ""
}
